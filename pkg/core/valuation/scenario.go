package valuation

import (
	"fmt"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// Difference is the change from a base value to a compared value.
type Difference struct {
	Base        float64 `json:"base"`
	Value       float64 `json:"value"`
	Diff        float64 `json:"diff"`
	PercentDiff float64 `json:"percentDiff"`
}

// NewDifference computes value − base and the change as a percentage of base.
// PercentDiff is 0 when base is 0.
func NewDifference(base, value float64) Difference {
	d := Difference{Base: base, Value: value, Diff: value - base}
	if base != 0 {
		d.PercentDiff = d.Diff / base * 100
	}
	return d
}

// Comparison holds two valuations side by side.
type Comparison struct {
	BaseLabel    string          `json:"baseLabel"`
	CompareLabel string          `json:"compareLabel"`
	Base         *models.Results `json:"base"`
	Compare      *models.Results `json:"compare"`

	EnterpriseValue  Difference `json:"enterpriseValue"`
	TerminalValue    Difference `json:"terminalValue"`
	TerminalValuePV  Difference `json:"terminalValuePV"`
	ProjectionsPV    Difference `json:"projectionsPV"`
	DiscountRate     Difference `json:"discountRate"`
	PerpetuityRate   Difference `json:"perpetuityRate"`
	CorporateTaxRate Difference `json:"corporateTaxRate"`
}

// Compare values both data sets and reports b relative to a.
func Compare(a, b models.DataSet) (*Comparison, error) {
	ra, err := CalculateFromDataSet(a)
	if err != nil {
		return nil, fmt.Errorf("failed to value %q: %w", labelOf(a, "A"), err)
	}
	rb, err := CalculateFromDataSet(b)
	if err != nil {
		return nil, fmt.Errorf("failed to value %q: %w", labelOf(b, "B"), err)
	}
	return compareResults(a, b, ra, rb), nil
}

// CompareAll compares every data set in others against base. The base is
// valued once.
func CompareAll(base models.DataSet, others ...models.DataSet) ([]*Comparison, error) {
	rb, err := CalculateFromDataSet(base)
	if err != nil {
		return nil, fmt.Errorf("failed to value %q: %w", labelOf(base, "base"), err)
	}

	out := make([]*Comparison, 0, len(others))
	for i, ds := range others {
		r, err := CalculateFromDataSet(ds)
		if err != nil {
			return nil, fmt.Errorf("failed to value %q: %w", labelOf(ds, fmt.Sprintf("#%d", i+1)), err)
		}
		out = append(out, compareResults(base, ds, rb, r))
	}
	return out, nil
}

func compareResults(a, b models.DataSet, ra, rb *models.Results) *Comparison {
	return &Comparison{
		BaseLabel:    labelOf(a, "A"),
		CompareLabel: labelOf(b, "B"),
		Base:         ra,
		Compare:      rb,

		EnterpriseValue:  NewDifference(ra.EnterpriseValue, rb.EnterpriseValue),
		TerminalValue:    NewDifference(ra.TerminalValue, rb.TerminalValue),
		TerminalValuePV:  NewDifference(ra.TerminalValuePV, rb.TerminalValuePV),
		ProjectionsPV:    NewDifference(ra.ProjectionsPV, rb.ProjectionsPV),
		DiscountRate:     NewDifference(a.Parameters.DiscountRate, b.Parameters.DiscountRate),
		PerpetuityRate:   NewDifference(a.Parameters.PerpetuityRate, b.Parameters.PerpetuityRate),
		CorporateTaxRate: NewDifference(a.Parameters.CorporateTaxRate, b.Parameters.CorporateTaxRate),
	}
}

func labelOf(ds models.DataSet, fallback string) string {
	if ds.Label != "" {
		return ds.Label
	}
	return fallback
}
