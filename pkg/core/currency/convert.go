// Package currency rescales financial data between currencies and formats
// monetary amounts for display.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// Currency is an ISO 4217 style currency code.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// Parse normalises a currency code. An empty string is rejected.
func Parse(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if c == "" {
		return "", errors.New("currency code is empty")
	}
	return c, nil
}

// Symbol returns the display symbol for c, falling back to the code itself.
func Symbol(c Currency) string {
	switch c {
	case EUR:
		return "€"
	case USD:
		return "$"
	default:
		return string(c) + " "
	}
}

// ErrInvalidRate is returned when a non-identity conversion is given a rate
// that is zero, negative or not finite.
var ErrInvalidRate = errors.New("exchange rate must be a positive finite number")

func validateRate(rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	return nil
}

// ConvertEBITDA multiplies every year's EBITDA by rate.
//
// When from equals to the input map itself is returned: callers must not
// assume a copy was made.
func ConvertEBITDA(series models.EBITDAData, from, to Currency, rate float64) (models.EBITDAData, error) {
	if from == to {
		return series, nil
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	return scaleEBITDA(series, rate), nil
}

// ConvertIncomeStatement multiplies every monetary line item by rate.
// Like ConvertEBITDA it returns its input when from equals to.
func ConvertIncomeStatement(data models.IncomeStatementData, from, to Currency, rate float64) (models.IncomeStatementData, error) {
	if from == to {
		return data, nil
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	return scaleIncomeStatement(data, rate), nil
}

// ConvertDataSet converts the monetary series of ds and stamps its currency.
// Parameters and adjustments are rates and are left untouched.
func ConvertDataSet(ds models.DataSet, from, to Currency, rate float64) (models.DataSet, error) {
	if from == to {
		return ds, nil
	}
	if err := validateRate(rate); err != nil {
		return models.DataSet{}, err
	}

	out := ds
	out.EBITDAData = scaleEBITDA(ds.EBITDAData, rate)
	if ds.IncomeStatementData != nil {
		out.IncomeStatementData = scaleIncomeStatement(ds.IncomeStatementData, rate)
	}
	out.BaseCurrency = string(to)
	return out, nil
}

func scaleEBITDA(series models.EBITDAData, rate float64) models.EBITDAData {
	out := make(models.EBITDAData, len(series))
	for year, v := range series {
		out[year] = v * rate
	}
	return out
}

func scaleIncomeStatement(data models.IncomeStatementData, rate float64) models.IncomeStatementData {
	out := make(models.IncomeStatementData, len(data))
	for year, e := range data {
		out[year] = models.IncomeStatementEntry{
			Revenue:      e.Revenue * rate,
			COGS:         e.COGS * rate,
			SGA:          e.SGA * rate,
			Depreciation: e.Depreciation * rate,
			Amortization: e.Amortization * rate,
		}
	}
	return out
}
