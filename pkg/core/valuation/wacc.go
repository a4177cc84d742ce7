package valuation

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCapitalStructure is returned for a negative or non-finite
// debt-to-equity ratio or beta.
var ErrInvalidCapitalStructure = errors.New("invalid capital structure")

// WACCInput holds the cost of capital inputs. Rates are in percent like
// Parameters; DebtToEquity is a plain ratio (0.5 = 50% debt per unit equity).
type WACCInput struct {
	UnleveredBeta     float64 `json:"unleveredBeta" yaml:"unleveredBeta"`
	RiskFreeRate      float64 `json:"riskFreeRate" yaml:"riskFreeRate"`
	MarketRiskPremium float64 `json:"marketRiskPremium" yaml:"marketRiskPremium"`
	PreTaxCostOfDebt  float64 `json:"preTaxCostOfDebt" yaml:"preTaxCostOfDebt"`
	TaxRate           float64 `json:"taxRate" yaml:"taxRate"`
	DebtToEquity      float64 `json:"debtToEquity" yaml:"debtToEquity"`
}

// WACCResult is the derived discount rate and its components, in percent.
type WACCResult struct {
	LeveredBeta  float64 `json:"leveredBeta"`
	CostOfEquity float64 `json:"costOfEquity"`
	CostOfDebt   float64 `json:"costOfDebt"` // after tax
	WeightDebt   float64 `json:"weightDebt"`
	WeightEquity float64 `json:"weightEquity"`
	WACC         float64 `json:"wacc"`
}

// CalculateWACC derives a discount rate from CAPM with a Hamada re-levered beta:
//
//	βL = βU · (1 + (1 − t) · D/E)
//	Ke = Rf + βL · ERP
//	Kd = pre-tax Kd · (1 − t)
//	WACC = Ke · 1/(1 + D/E) + Kd · (D/E)/(1 + D/E)
func CalculateWACC(in WACCInput) (*WACCResult, error) {
	if err := validateTaxRate(in.TaxRate); err != nil {
		return nil, err
	}
	if bad(in.UnleveredBeta) {
		return nil, fmt.Errorf("%w: beta %v", ErrInvalidCapitalStructure, in.UnleveredBeta)
	}
	if bad(in.DebtToEquity) {
		return nil, fmt.Errorf("%w: debt-to-equity %v", ErrInvalidCapitalStructure, in.DebtToEquity)
	}

	t := in.TaxRate / 100
	beta := in.UnleveredBeta * (1 + (1-t)*in.DebtToEquity)
	ke := in.RiskFreeRate + beta*in.MarketRiskPremium
	kd := in.PreTaxCostOfDebt * (1 - t)

	wd := in.DebtToEquity / (1 + in.DebtToEquity)
	we := 1 / (1 + in.DebtToEquity)

	return &WACCResult{
		LeveredBeta:  beta,
		CostOfEquity: ke,
		CostOfDebt:   kd,
		WeightDebt:   wd,
		WeightEquity: we,
		WACC:         ke*we + kd*wd,
	}, nil
}

func bad(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}
