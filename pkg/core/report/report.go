// Package report renders a valuation as Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// Options control report rendering.
type Options struct {
	Title string
	// Currency used for amounts; defaults to the data set's base currency, then EUR.
	Currency currency.Currency
	// Short abbreviates amounts ($1.3M) instead of printing whole units.
	Short bool
}

func (o Options) resolve(ds models.DataSet) Options {
	if o.Currency == "" {
		o.Currency = currency.Currency(ds.BaseCurrency)
	}
	if o.Currency == "" {
		o.Currency = currency.EUR
	}
	if o.Title == "" {
		o.Title = ds.Label
	}
	if o.Title == "" {
		o.Title = "DCF Valuation"
	}
	return o
}

func (o Options) money(v float64) string {
	if o.Short {
		return currency.FormatShort(v, o.Currency)
	}
	return currency.Format(v, o.Currency)
}

// Markdown writes the report for ds and its results.
func Markdown(w io.Writer, ds models.DataSet, r *models.Results, opts Options) error {
	if r == nil {
		return fmt.Errorf("no results to report")
	}
	opts = opts.resolve(ds)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.Title)

	b.WriteString("## Parameters\n\n")
	b.WriteString("| Parameter | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Discount rate (WACC) | %s |\n", currency.FormatPercent(ds.Parameters.DiscountRate, 1))
	fmt.Fprintf(&b, "| Perpetuity growth rate | %s |\n", currency.FormatPercent(ds.Parameters.PerpetuityRate, 1))
	fmt.Fprintf(&b, "| Corporate tax rate | %s |\n", currency.FormatPercent(ds.Parameters.CorporateTaxRate, 1))
	source := "EBITDA input"
	if ds.UseIncomeStatement && ds.IncomeStatementData != nil {
		source = "Income statement"
	}
	fmt.Fprintf(&b, "| EBITDA source | %s |\n\n", source)

	b.WriteString("## Cash flow schedule\n\n")
	b.WriteString("| Year | Type | EBITDA | Tax | FCF | Discount factor | Present value |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|\n")
	for _, row := range r.PresentValues {
		kind := "Projected"
		if ds.IsHistorical(row.Year) {
			kind = "Historical"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %.4f | %s |\n",
			ds.YearLabel(row.Year), kind,
			opts.money(row.EBITDA), opts.money(row.Tax), opts.money(row.FCF),
			row.DiscountFactor, opts.money(row.PresentValue))
	}
	b.WriteString("\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Projections PV | %s |\n", opts.money(r.ProjectionsPV))
	fmt.Fprintf(&b, "| Terminal value | %s |\n", opts.money(r.TerminalValue))
	fmt.Fprintf(&b, "| Terminal value PV | %s |\n", opts.money(r.TerminalValuePV))
	fmt.Fprintf(&b, "| **Enterprise value** | **%s** |\n", opts.money(r.EnterpriseValue))
	fmt.Fprintf(&b, "| Terminal value share of EV | %s |\n\n", currency.FormatPercent(valuation.TerminalValueShare(r), 1))

	b.WriteString("## Value bridge\n\n")
	b.WriteString("| Step | Amount |\n|---|---:|\n")
	for _, step := range valuation.Bridge(r) {
		name := step.Name
		if step.Total {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", name, opts.money(step.Value))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the Markdown report to an HTML fragment.
func HTML(w io.Writer, ds models.DataSet, r *models.Results, opts Options) error {
	var src bytes.Buffer
	if err := Markdown(&src, ds, r, opts); err != nil {
		return err
	}
	if err := md.Convert(src.Bytes(), w); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}

// Comparison writes a Markdown table comparing scenarios against a base.
func Comparison(w io.Writer, cmps []*valuation.Comparison, c currency.Currency) error {
	if c == "" {
		c = currency.EUR
	}
	var b strings.Builder
	b.WriteString("| Scenario | Enterprise value | Δ EV | Δ EV % | Terminal value PV | WACC | Growth |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
	if len(cmps) > 0 {
		base := cmps[0]
		fmt.Fprintf(&b, "| %s (base) | %s | | | %s | %s | %s |\n",
			base.BaseLabel, currency.FormatShort(base.Base.EnterpriseValue, c),
			currency.FormatShort(base.Base.TerminalValuePV, c),
			currency.FormatPercent(base.DiscountRate.Base, 1), currency.FormatPercent(base.PerpetuityRate.Base, 1))
	}
	for _, cmp := range cmps {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			cmp.CompareLabel,
			currency.FormatShort(cmp.Compare.EnterpriseValue, c),
			currency.FormatShort(cmp.EnterpriseValue.Diff, c),
			currency.FormatPercent(cmp.EnterpriseValue.PercentDiff, 1),
			currency.FormatShort(cmp.Compare.TerminalValuePV, c),
			currency.FormatPercent(cmp.DiscountRate.Value, 1),
			currency.FormatPercent(cmp.PerpetuityRate.Value, 1))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
