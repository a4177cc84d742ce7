package models

import (
	"sort"
	"strconv"
	"time"
)

// EBITDAData maps a fiscal year to its EBITDA. Map order carries no meaning;
// consumers that need an ordering call Years.
type EBITDAData map[int]float64

// Years returns the fiscal years in ascending order.
func (d EBITDAData) Years() []int {
	years := make([]int, 0, len(d))
	for y := range d {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Clone returns an independent copy. A nil series clones to nil.
func (d EBITDAData) Clone() EBITDAData {
	if d == nil {
		return nil
	}
	out := make(EBITDAData, len(d))
	for y, v := range d {
		out[y] = v
	}
	return out
}

// Total sums every year in the series.
func (d EBITDAData) Total() float64 {
	var sum float64
	for _, y := range d.Years() {
		sum += d[y]
	}
	return sum
}

// IncomeStatementEntry holds the line items for one fiscal year.
type IncomeStatementEntry struct {
	Revenue      float64 `json:"revenue" yaml:"revenue"`
	COGS         float64 `json:"cogs" yaml:"cogs"`
	SGA          float64 `json:"sga" yaml:"sga"`
	Depreciation float64 `json:"depreciation" yaml:"depreciation"`
	Amortization float64 `json:"amortization" yaml:"amortization"`
}

// IncomeStatementData maps a fiscal year to its income statement entry.
type IncomeStatementData map[int]IncomeStatementEntry

// Years returns the fiscal years in ascending order.
func (d IncomeStatementData) Years() []int {
	years := make([]int, 0, len(d))
	for y := range d {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Clone returns an independent copy. A nil statement clones to nil.
func (d IncomeStatementData) Clone() IncomeStatementData {
	if d == nil {
		return nil
	}
	out := make(IncomeStatementData, len(d))
	for y, v := range d {
		out[y] = v
	}
	return out
}

// IncomeStatementAdjustment carries fractional multipliers for one year
// (0.1 = +10%). Depreciation and amortization are never adjusted.
type IncomeStatementAdjustment struct {
	RevenueAdjustment float64 `json:"revenueAdjustment" yaml:"revenueAdjustment"`
	COGSAdjustment    float64 `json:"cogsAdjustment" yaml:"cogsAdjustment"`
	SGAAdjustment     float64 `json:"sgaAdjustment" yaml:"sgaAdjustment"`
}

// IncomeStatementAdjustments maps a fiscal year to its adjustment.
type IncomeStatementAdjustments map[int]IncomeStatementAdjustment

// Clone returns an independent copy. A nil map clones to nil.
func (a IncomeStatementAdjustments) Clone() IncomeStatementAdjustments {
	if a == nil {
		return nil
	}
	out := make(IncomeStatementAdjustments, len(a))
	for y, v := range a {
		out[y] = v
	}
	return out
}

// Parameters are the valuation rates, all expressed in percent (20 = 20%).
type Parameters struct {
	DiscountRate     float64 `json:"discountRate" yaml:"discountRate"`
	PerpetuityRate   float64 `json:"perpetuityRate" yaml:"perpetuityRate"`
	CorporateTaxRate float64 `json:"corporateTaxRate" yaml:"corporateTaxRate"`
}

// PresentValueBreakdown is one row of the discounting schedule.
type PresentValueBreakdown struct {
	Year           int     `json:"year" yaml:"year"`
	EBITDA         float64 `json:"ebitda" yaml:"ebitda"`
	Tax            float64 `json:"tax" yaml:"tax"`
	FCF            float64 `json:"fcf" yaml:"fcf"`
	DiscountFactor float64 `json:"discountFactor" yaml:"discountFactor"`
	PresentValue   float64 `json:"presentValue" yaml:"presentValue"`
}

// Results is the output of a DCF run. PresentValues is ordered by ascending year.
type Results struct {
	EnterpriseValue float64                 `json:"enterpriseValue" yaml:"enterpriseValue"`
	TerminalValue   float64                 `json:"terminalValue" yaml:"terminalValue"`
	TerminalValuePV float64                 `json:"terminalValuePV" yaml:"terminalValuePV"`
	ProjectionsPV   float64                 `json:"projectionsPV" yaml:"projectionsPV"`
	PresentValues   []PresentValueBreakdown `json:"presentValues" yaml:"presentValues"`
}

// FiscalYearLabels maps a fiscal year to its display label (e.g. "FY24").
type FiscalYearLabels map[int]string

// DataSet is everything needed to value one scenario.
//
// When UseIncomeStatement is set and IncomeStatementData is present the EBITDA
// series is derived from the statement; otherwise EBITDAData is used as entered.
// Historical flags years holding actuals rather than projections. It only affects
// presentation.
type DataSet struct {
	ID                         string                     `json:"id,omitempty" yaml:"id,omitempty"`
	Label                      string                     `json:"label,omitempty" yaml:"label,omitempty"`
	EBITDAData                 EBITDAData                 `json:"ebitdaData" yaml:"ebitdaData"`
	Parameters                 Parameters                 `json:"parameters" yaml:"parameters"`
	UseIncomeStatement         bool                       `json:"useIncomeStatement" yaml:"useIncomeStatement"`
	IncomeStatementData        IncomeStatementData        `json:"incomeStatementData,omitempty" yaml:"incomeStatementData,omitempty"`
	IncomeStatementAdjustments IncomeStatementAdjustments `json:"incomeStatementAdjustments,omitempty" yaml:"incomeStatementAdjustments,omitempty"`
	FiscalYearLabels           FiscalYearLabels           `json:"fiscalYearLabels,omitempty" yaml:"fiscalYearLabels,omitempty"`
	BaseCurrency               string                     `json:"baseCurrency,omitempty" yaml:"baseCurrency,omitempty"`
	Historical                 map[int]bool               `json:"historical,omitempty" yaml:"historical,omitempty"`
}

// Clone returns a deep copy of the data set.
func (ds DataSet) Clone() DataSet {
	out := ds
	out.EBITDAData = ds.EBITDAData.Clone()
	out.IncomeStatementData = ds.IncomeStatementData.Clone()
	out.IncomeStatementAdjustments = ds.IncomeStatementAdjustments.Clone()
	if ds.FiscalYearLabels != nil {
		out.FiscalYearLabels = make(FiscalYearLabels, len(ds.FiscalYearLabels))
		for y, l := range ds.FiscalYearLabels {
			out.FiscalYearLabels[y] = l
		}
	}
	if ds.Historical != nil {
		out.Historical = make(map[int]bool, len(ds.Historical))
		for y, h := range ds.Historical {
			out.Historical[y] = h
		}
	}
	return out
}

// YearLabel returns the configured label for a year, or the year itself.
func (ds DataSet) YearLabel(year int) string {
	if l, ok := ds.FiscalYearLabels[year]; ok && l != "" {
		return l
	}
	return strconv.Itoa(year)
}

// IsHistorical reports whether the year is flagged as actuals.
func (ds DataSet) IsHistorical(year int) bool {
	return ds.Historical[year]
}

// Model is a named, persisted valuation.
type Model struct {
	ID          string    `json:"id,omitempty"`
	ModelName   string    `json:"modelName"`
	CompanyName string    `json:"companyName,omitempty"`
	Description string    `json:"description,omitempty"`
	DataSet     DataSet   `json:"dataSet"`
	Results     *Results  `json:"results,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Scenario is a variant of a Model's inputs, ordered by SortOrder.
type Scenario struct {
	ID             string    `json:"id,omitempty"`
	ModelID        string    `json:"modelId"`
	ScenarioName   string    `json:"scenarioName"`
	Description    string    `json:"description,omitempty"`
	DataSet        DataSet   `json:"dataSet"`
	Results        *Results  `json:"results,omitempty"`
	IsBaseScenario bool      `json:"isBaseScenario"`
	SortOrder      int       `json:"sortOrder"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
