package valuation

import (
	"fmt"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/statement"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// CalculateFromDataSet values a data set using its effective EBITDA series.
func CalculateFromDataSet(ds models.DataSet) (*models.Results, error) {
	return Calculate(statement.DataSetEBITDA(ds), ds.Parameters)
}

// Valuate converts ds into the display currency and values the converted data.
// The converted data set is returned with the results so that anything charted
// next to them uses the same numbers. A data set without a base currency is
// assumed to already be in the display currency.
func Valuate(ds models.DataSet, display currency.Currency, rates *currency.RateTable) (models.DataSet, *models.Results, error) {
	from := currency.Currency(ds.BaseCurrency)
	if from == "" {
		from = display
	}

	converted := ds
	if from != display {
		rate, err := rates.Rate(from, display)
		if err != nil {
			return models.DataSet{}, nil, fmt.Errorf("failed to resolve exchange rate: %w", err)
		}
		converted, err = currency.ConvertDataSet(ds, from, display, rate)
		if err != nil {
			return models.DataSet{}, nil, fmt.Errorf("failed to convert data set: %w", err)
		}
	}
	converted.BaseCurrency = string(display)

	results, err := CalculateFromDataSet(converted)
	if err != nil {
		return models.DataSet{}, nil, err
	}
	return converted, results, nil
}
