// Package valuation implements the discounted cash flow engine.
//
// Every function in this package is pure: no I/O, no shared state, and the
// same inputs always produce the same result.
package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

var (
	// ErrInvalidTaxRate is returned when the corporate tax rate is outside [0,100].
	ErrInvalidTaxRate = errors.New("tax rate out of range")
	// ErrEmptyDataset is returned when the EBITDA series has no years.
	ErrEmptyDataset = errors.New("EBITDA data required")
	// ErrNonConvergentGrowth is returned when the discount rate does not exceed
	// the perpetuity growth rate, which leaves the Gordon Growth term undefined.
	ErrNonConvergentGrowth = errors.New("discount rate must exceed perpetuity growth rate")
)

// IsValidationError reports whether err is one of the engine's input errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTaxRate) ||
		errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrNonConvergentGrowth) ||
		errors.Is(err, ErrInvalidCapitalStructure)
}

// CalculateFCF converts EBITDA into free cash flow.
//
// FORMULA: FCF = EBITDA − EBITDA × t   (EBITDA > 0)
//
//	FCF = EBITDA               (EBITDA ≤ 0, losses are not taxed)
func CalculateFCF(ebitda, taxRate float64) (float64, error) {
	if err := validateTaxRate(taxRate); err != nil {
		return 0, err
	}
	if ebitda <= 0 {
		return ebitda, nil
	}
	return ebitda - taxOn(ebitda, taxRate), nil
}

// DiscountFactor returns 1 / (1 + wacc)^period. Period is 1-based: the first
// projected year is period 1.
func DiscountFactor(wacc float64, period int) float64 {
	return 1 / math.Pow(1+wacc, float64(period))
}

// Calculate runs CalculateDCF with the rates taken from params.
func Calculate(ebitda models.EBITDAData, params models.Parameters) (*models.Results, error) {
	return CalculateDCF(ebitda, params.DiscountRate, params.PerpetuityRate, params.CorporateTaxRate)
}

// CalculateDCF performs a single-stage DCF with a Gordon Growth terminal value.
//
// Years are discounted in ascending order regardless of how the map was built.
// The terminal value is capitalised from the final year's FCF and discounted
// over the same number of periods as that final year.
//
// All rates are percentages (30 = 30%).
func CalculateDCF(ebitda models.EBITDAData, discountRate, perpetuityRate, taxRate float64) (*models.Results, error) {
	years := ebitda.Years()
	if len(years) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := CheckGrowth(discountRate, perpetuityRate); err != nil {
		return nil, err
	}
	if err := validateTaxRate(taxRate); err != nil {
		return nil, err
	}

	wacc := discountRate / 100
	growth := perpetuityRate / 100

	rows := make([]models.PresentValueBreakdown, 0, len(years))
	var projectionsPV float64

	for i, year := range years {
		value := ebitda[year]

		var tax float64
		if value > 0 {
			tax = taxOn(value, taxRate)
		}
		fcf, err := CalculateFCF(value, taxRate)
		if err != nil {
			return nil, err
		}
		factor := DiscountFactor(wacc, i+1)
		pv := fcf * factor

		rows = append(rows, models.PresentValueBreakdown{
			Year:           year,
			EBITDA:         value,
			Tax:            tax,
			FCF:            fcf,
			DiscountFactor: factor,
			PresentValue:   pv,
		})
		projectionsPV += pv
	}

	// Terminal value (Gordon Growth)
	// TV = FCF_final × (1 + g) / (WACC − g)
	finalFCF := rows[len(rows)-1].FCF
	terminalValue := finalFCF * (1 + growth) / (wacc - growth)
	terminalValuePV := terminalValue * DiscountFactor(wacc, len(years))

	return &models.Results{
		EnterpriseValue: projectionsPV + terminalValuePV,
		TerminalValue:   terminalValue,
		TerminalValuePV: terminalValuePV,
		ProjectionsPV:   projectionsPV,
		PresentValues:   rows,
	}, nil
}

func taxOn(ebitda, taxRate float64) float64 {
	return ebitda * (taxRate / 100)
}

// CheckGrowth reports ErrNonConvergentGrowth unless both rates are finite and
// the discount rate is strictly greater than the perpetuity rate.
func CheckGrowth(discountRate, perpetuityRate float64) error {
	if !(discountRate > perpetuityRate) || math.IsInf(discountRate, 0) || math.IsInf(perpetuityRate, 0) {
		return fmt.Errorf("%w (discount %.4g%%, perpetuity %.4g%%)",
			ErrNonConvergentGrowth, discountRate, perpetuityRate)
	}
	return nil
}

func validateTaxRate(taxRate float64) error {
	if taxRate < 0 || taxRate > 100 || math.IsNaN(taxRate) {
		return fmt.Errorf("%w: %.4g%% (must be between 0 and 100)", ErrInvalidTaxRate, taxRate)
	}
	return nil
}
