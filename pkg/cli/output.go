package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	dcf "github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// Output formats accepted by --format.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported --format %q (want one of %s)", format, strings.Join(allowed, ", "))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table column widths
const (
	labelWidth  = 20
	amountWidth = 16
)

func funcMap(c currency.Currency) template.FuncMap {
	return template.FuncMap{
		"money":   func(v float64) string { return currency.Format(v, c) },
		"pct":     func(v float64) string { return currency.FormatPercent(v, 1) },
		"factor":  func(v float64) string { return fmt.Sprintf("%.4f", v) },
		"label":   func(s string) string { return fmt.Sprintf("%-*s", labelWidth, s) },
		"amount":  func(s string) string { return fmt.Sprintf("%*s", amountWidth, s) },
		"rule":    func(cols int) string { return strings.Repeat("-", labelWidth+cols*(amountWidth+1)) },
		"signed":  func(d dcf.Difference) string { return signed(currency.Format(d.Diff, c), d.Diff) },
		"signpct": func(d dcf.Difference) string { return signed(currency.FormatPercent(d.PercentDiff, 1), d.PercentDiff) },
	}
}

func signed(s string, v float64) string {
	if v > 0 {
		return "+" + s
	}
	return s
}

var valuationTmpl = `{{.Title}} ({{.Currency}})

WACC {{pct .DataSet.Parameters.DiscountRate}}  growth {{pct .DataSet.Parameters.PerpetuityRate}}  tax {{pct .DataSet.Parameters.CorporateTaxRate}}

{{label "Year"}} {{amount "EBITDA"}} {{amount "Tax"}} {{amount "FCF"}} {{amount "Factor"}} {{amount "PV"}}
{{rule 5}}
{{range .Rows}}{{label .Label}} {{amount (money .Row.EBITDA)}} {{amount (money .Row.Tax)}} {{amount (money .Row.FCF)}} {{amount (factor .Row.DiscountFactor)}} {{amount (money .Row.PresentValue)}}
{{end}}{{rule 5}}

{{label "Projections PV"}} {{amount (money .Results.ProjectionsPV)}}
{{label "Terminal value"}} {{amount (money .Results.TerminalValue)}}
{{label "Terminal value PV"}} {{amount (money .Results.TerminalValuePV)}}
{{label "Enterprise value"}} {{amount (money .Results.EnterpriseValue)}}
`

type scheduleRow struct {
	Label string
	Row   models.PresentValueBreakdown
}

func writeValuationTable(w io.Writer, ds models.DataSet, r *models.Results, c currency.Currency) error {
	tmpl, err := template.New("valuation").Funcs(funcMap(c)).Parse(valuationTmpl)
	if err != nil {
		return err
	}
	rows := make([]scheduleRow, 0, len(r.PresentValues))
	for _, row := range r.PresentValues {
		l := ds.YearLabel(row.Year)
		if ds.IsHistorical(row.Year) {
			l += " (A)"
		}
		rows = append(rows, scheduleRow{Label: l, Row: row})
	}
	title := ds.Label
	if title == "" {
		title = "DCF Valuation"
	}
	return tmpl.Execute(w, map[string]interface{}{
		"Title":    title,
		"Currency": c,
		"DataSet":  ds,
		"Results":  r,
		"Rows":     rows,
	})
}

var comparisonTmpl = `{{label "Scenario"}} {{amount "WACC"}} {{amount "Growth"}} {{amount "EV"}} {{amount "vs base"}} {{amount "%"}}
{{rule 5}}
{{with index .Comparisons 0}}{{label .BaseLabel}} {{amount (pct .DiscountRate.Base)}} {{amount (pct .PerpetuityRate.Base)}} {{amount (money .EnterpriseValue.Base)}} {{amount "base"}} {{amount ""}}
{{end}}{{range .Comparisons}}{{label .CompareLabel}} {{amount (pct .DiscountRate.Value)}} {{amount (pct .PerpetuityRate.Value)}} {{amount (money .EnterpriseValue.Value)}} {{amount (signed .EnterpriseValue)}} {{amount (signpct .EnterpriseValue)}}
{{end}}`

func writeComparisonTable(w io.Writer, cmps []*dcf.Comparison, c currency.Currency) error {
	if len(cmps) == 0 {
		return nil
	}
	tmpl, err := template.New("comparison").Funcs(funcMap(c)).Parse(comparisonTmpl)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, map[string]interface{}{"Comparisons": cmps})
}

var ebitdaTmpl = `{{label "Year"}} {{amount "Revenue"}} {{amount "COGS"}} {{amount "SG&A"}} {{amount "D&A"}} {{amount "EBITDA"}}
{{rule 5}}
{{range .}}{{label .Label}} {{amount (money .Entry.Revenue)}} {{amount (money .Entry.COGS)}} {{amount (money .Entry.SGA)}} {{amount (money .DA)}} {{amount (money .EBITDA)}}
{{end}}`

type ebitdaRow struct {
	Label  string
	Entry  models.IncomeStatementEntry
	DA     float64
	EBITDA float64
}

func writeEBITDATable(w io.Writer, rows []ebitdaRow, c currency.Currency) error {
	tmpl, err := template.New("ebitda").Funcs(funcMap(c)).Parse(ebitdaTmpl)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, rows)
}

var presetsTmpl = `{{label "ID"}} {{amount "Currency"}} {{amount "WACC"}} {{amount "Growth"}} {{amount "Tax"}} {{amount "EV"}}
{{rule 5}}
{{range .}}{{label .DataSet.ID}} {{amount .DataSet.BaseCurrency}} {{amount (pct .DataSet.Parameters.DiscountRate)}} {{amount (pct .DataSet.Parameters.PerpetuityRate)}} {{amount (pct .DataSet.Parameters.CorporateTaxRate)}} {{amount .EV}}
{{end}}`

type presetRow struct {
	DataSet models.DataSet  `json:"dataSet"`
	Results *models.Results `json:"results"`
	EV      string          `json:"-"`
}

func writePresetsTable(w io.Writer, rows []presetRow) error {
	tmpl, err := template.New("presets").Funcs(funcMap(currency.EUR)).Parse(presetsTmpl)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, rows)
}
