package dataset

import (
	"fmt"
	"math"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/statement"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// Validate checks a data set before it is stored or valued. It reports the
// same sentinel errors as the valuation engine, in the same order, and also
// rejects non-finite monetary values that the engine would silently propagate.
func Validate(ds models.DataSet) error {
	ebitda := statement.DataSetEBITDA(ds)
	if len(ebitda) == 0 {
		return valuation.ErrEmptyDataset
	}
	p := ds.Parameters
	if err := valuation.CheckGrowth(p.DiscountRate, p.PerpetuityRate); err != nil {
		return err
	}
	if _, err := valuation.CalculateFCF(0, p.CorporateTaxRate); err != nil {
		return err
	}
	for _, year := range ebitda.Years() {
		if v := ebitda[year]; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: EBITDA for %d is not a finite number", ErrDecode, year)
		}
	}
	return nil
}
