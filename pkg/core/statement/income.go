// Package statement derives EBITDA from income statement line items.
package statement

import "github.com/clenisa/discounted-cashflow-analysis/pkg/models"

// CalculateEBITDA derives EBITDA from one year's line items.
//
// FORMULA: EBITDA = Revenue − COGS − SG&A + Depreciation + Amortization
//
// Depreciation and amortization are stored as the charges taken to reach
// operating income, so they are added back.
func CalculateEBITDA(revenue, cogs, sga, depreciation, amortization float64) float64 {
	return revenue - cogs - sga + depreciation + amortization
}

// EntryEBITDA applies CalculateEBITDA to an entry.
func EntryEBITDA(e models.IncomeStatementEntry) float64 {
	return CalculateEBITDA(e.Revenue, e.COGS, e.SGA, e.Depreciation, e.Amortization)
}

// EBITDAForYear returns the EBITDA for a single year, or 0 when the year is absent.
func EBITDAForYear(data models.IncomeStatementData, year int) float64 {
	entry, ok := data[year]
	if !ok {
		return 0
	}
	return EntryEBITDA(entry)
}

// ToEBITDA derives one EBITDA value per income statement year.
func ToEBITDA(data models.IncomeStatementData) models.EBITDAData {
	out := make(models.EBITDAData, len(data))
	for year, entry := range data {
		out[year] = EntryEBITDA(entry)
	}
	return out
}

// ApplyAdjustments scales revenue, COGS and SG&A by (1 + adjustment) for each
// year of data. Years without an adjustment are copied unchanged; adjustments
// for years missing from data are ignored. The input is not modified.
func ApplyAdjustments(data models.IncomeStatementData, adjustments models.IncomeStatementAdjustments) models.IncomeStatementData {
	out := make(models.IncomeStatementData, len(data))
	for year, entry := range data {
		adj := adjustments[year]
		out[year] = models.IncomeStatementEntry{
			Revenue:      entry.Revenue * (1 + adj.RevenueAdjustment),
			COGS:         entry.COGS * (1 + adj.COGSAdjustment),
			SGA:          entry.SGA * (1 + adj.SGAAdjustment),
			Depreciation: entry.Depreciation,
			Amortization: entry.Amortization,
		}
	}
	return out
}

// EffectiveEBITDA selects the series that feeds the valuation engine.
//
// The direct series is returned as-is unless useIncomeStatement is set and an
// income statement is supplied, in which case the (optionally adjusted)
// statement is converted to EBITDA. The two sources are never merged.
func EffectiveEBITDA(
	direct models.EBITDAData,
	useIncomeStatement bool,
	data models.IncomeStatementData,
	adjustments models.IncomeStatementAdjustments,
) models.EBITDAData {
	if !useIncomeStatement || data == nil {
		return direct
	}
	if adjustments != nil {
		data = ApplyAdjustments(data, adjustments)
	}
	return ToEBITDA(data)
}

// DataSetEBITDA resolves the effective EBITDA of a data set.
func DataSetEBITDA(ds models.DataSet) models.EBITDAData {
	return EffectiveEBITDA(ds.EBITDAData, ds.UseIncomeStatement, ds.IncomeStatementData, ds.IncomeStatementAdjustments)
}
