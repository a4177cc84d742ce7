package valuation

import "github.com/clenisa/discounted-cashflow-analysis/pkg/models"

// BridgeStep is one bar of the EBITDA → enterprise value bridge.
// Total steps carry the running level; the others carry a change.
type BridgeStep struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Total bool    `json:"total"`
}

// Bridge walks from the sum of EBITDA to enterprise value:
//
//	Σ EBITDA − Σ tax − discounting = projections PV
//	projections PV + terminal value PV = enterprise value
//
// Only the final identity holds exactly; the discounting step absorbs the
// difference between undiscounted FCF and its present value.
func Bridge(r *models.Results) []BridgeStep {
	if r == nil {
		return nil
	}
	var ebitda, tax, fcf float64
	for _, row := range r.PresentValues {
		ebitda += row.EBITDA
		tax += row.Tax
		fcf += row.FCF
	}

	return []BridgeStep{
		{Name: "EBITDA", Value: ebitda, Total: true},
		{Name: "Taxes", Value: -tax},
		{Name: "Discounting", Value: r.ProjectionsPV - fcf},
		{Name: "Projections PV", Value: r.ProjectionsPV, Total: true},
		{Name: "Terminal Value PV", Value: r.TerminalValuePV},
		{Name: "Enterprise Value", Value: r.EnterpriseValue, Total: true},
	}
}

// TerminalValueShare returns the share of enterprise value contributed by the
// discounted terminal value, as a percentage. It is 0 when EV is 0.
func TerminalValueShare(r *models.Results) float64 {
	if r == nil || r.EnterpriseValue == 0 {
		return 0
	}
	return r.TerminalValuePV / r.EnterpriseValue * 100
}
