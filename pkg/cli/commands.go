package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/dataset"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/presets"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/report"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/statement"
	dcf "github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// valuationFlags are shared by value and compare.
type valuationFlags struct {
	currency string
	rate     float64
	format   string
	short    bool
}

func (f *valuationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.currency, "currency", "", "Display currency (defaults to the configured display currency)")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "Exchange rate from the data set currency to the display currency, overriding the configured one")
	cmd.Flags().StringVarP(&f.format, "format", "o", FormatTable, "Output format")
	cmd.Flags().BoolVar(&f.short, "short", false, "Abbreviate amounts in reports")
}

// valuate converts every data set into the display currency and values it.
func (cli *CLI) valuate(f *valuationFlags, sets []models.DataSet) (currency.Currency, []models.DataSet, []*models.Results, error) {
	cfg, _, err := cli.loadConfig()
	if err != nil {
		return "", nil, nil, err
	}
	code := f.currency
	if code == "" {
		code = cfg.DisplayCurrency
	}
	display, err := currency.Parse(code)
	if err != nil {
		return "", nil, nil, err
	}

	converted := make([]models.DataSet, 0, len(sets))
	results := make([]*models.Results, 0, len(sets))
	for _, ds := range sets {
		rates, err := rateTable(cfg, currency.Currency(ds.BaseCurrency), display, f.rate)
		if err != nil {
			return "", nil, nil, err
		}
		c, r, err := dcf.Valuate(ds, display, rates)
		if err != nil {
			return "", nil, nil, fmt.Errorf("%s: %w", labelOr(ds, "data set"), err)
		}
		converted = append(converted, c)
		results = append(results, r)
	}
	return display, converted, results, nil
}

type valueCmd struct {
	cli        *CLI
	flags      valuationFlags
	preset     string
	discount   float64
	perpetuity float64
	tax        float64
}

func (cli *CLI) newValueCmd() *cobra.Command {
	vc := &valueCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "value [file]",
		Short: "Value a data set file (JSON, HJSON or YAML) or a preset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  vc.run,
	}
	vc.flags.register(cmd)
	cmd.Flags().StringVar(&vc.preset, "preset", presets.DefaultID, "Preset to value when no file is given")
	cmd.Flags().Float64Var(&vc.discount, "discount-rate", 0, "Override the discount rate (WACC), in percent")
	cmd.Flags().Float64Var(&vc.perpetuity, "perpetuity-rate", 0, "Override the perpetuity growth rate, in percent")
	cmd.Flags().Float64Var(&vc.tax, "tax-rate", 0, "Override the corporate tax rate, in percent")
	return cmd
}

func (vc *valueCmd) run(cmd *cobra.Command, args []string) error {
	if err := checkFormat(vc.flags.format, FormatTable, FormatJSON, FormatMarkdown, FormatHTML); err != nil {
		return err
	}

	var ds models.DataSet
	var err error
	if len(args) == 1 {
		ds, err = dataset.Load(args[0])
	} else {
		ds, err = presets.Get(vc.preset)
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("discount-rate") {
		ds.Parameters.DiscountRate = vc.discount
	}
	if cmd.Flags().Changed("perpetuity-rate") {
		ds.Parameters.PerpetuityRate = vc.perpetuity
	}
	if cmd.Flags().Changed("tax-rate") {
		ds.Parameters.CorporateTaxRate = vc.tax
	}

	display, sets, results, err := vc.cli.valuate(&vc.flags, []models.DataSet{ds})
	if err != nil {
		return err
	}
	converted, r := sets[0], results[0]

	out := cmd.OutOrStdout()
	opts := report.Options{Currency: display, Short: vc.flags.short}
	switch vc.flags.format {
	case FormatJSON:
		return writeJSON(out, map[string]interface{}{
			"dataSet": converted,
			"results": r,
			"bridge":  dcf.Bridge(r),
		})
	case FormatMarkdown:
		return report.Markdown(out, converted, r, opts)
	case FormatHTML:
		return report.HTML(out, converted, r, opts)
	default:
		return writeValuationTable(out, converted, r, display)
	}
}

type compareCmd struct {
	cli    *CLI
	flags  valuationFlags
	family string
	ids    []string
}

func (cli *CLI) newCompareCmd() *cobra.Command {
	cc := &compareCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "compare [files...]",
		Short: "Compare scenarios against the first one",
		Long: "Compare data sets against a base. The first data set read is the base.\n" +
			"Files may hold a single data set or a list of them.",
		RunE: cc.run,
	}
	cc.flags.register(cmd)
	cmd.Flags().StringVar(&cc.family, "family", "", "Compare a preset scenario family (its default scenario is the base)")
	cmd.Flags().StringSliceVar(&cc.ids, "preset", nil, "Preset ids to compare, base first")
	return cmd
}

func (cc *compareCmd) run(cmd *cobra.Command, args []string) error {
	if err := checkFormat(cc.flags.format, FormatTable, FormatJSON, FormatMarkdown); err != nil {
		return err
	}
	sets, err := cc.collect(args)
	if err != nil {
		return err
	}
	if len(sets) < 2 {
		return fmt.Errorf("compare needs at least two data sets, got %d", len(sets))
	}

	display, converted, _, err := cc.cli.valuate(&cc.flags, sets)
	if err != nil {
		return err
	}
	cmps, err := dcf.CompareAll(converted[0], converted[1:]...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch cc.flags.format {
	case FormatJSON:
		return writeJSON(out, cmps)
	case FormatMarkdown:
		return report.Comparison(out, cmps, display)
	default:
		return writeComparisonTable(out, cmps, display)
	}
}

func (cc *compareCmd) collect(args []string) ([]models.DataSet, error) {
	var sets []models.DataSet

	if cc.family != "" {
		fam, err := findFamily(cc.family)
		if err != nil {
			return nil, err
		}
		ids := []string{fam.DefaultID}
		for _, id := range fam.ScenarioIDs {
			if id != fam.DefaultID {
				ids = append(ids, id)
			}
		}
		cc.ids = append(ids, cc.ids...)
	}
	for _, id := range cc.ids {
		ds, err := presets.Get(id)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ds)
	}

	for _, path := range args {
		format, err := dataset.FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		list, err := dataset.DecodeMany(data, format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		sets = append(sets, list...)
	}
	return sets, nil
}

func findFamily(name string) (presets.Family, error) {
	for _, f := range presets.Families() {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return presets.Family{}, fmt.Errorf("%w: family %s", presets.ErrNotFound, name)
}

type deriveCmd struct {
	format   string
	currency string
}

func (cli *CLI) newDeriveCmd() *cobra.Command {
	dc := &deriveCmd{}
	cmd := &cobra.Command{
		Use:   "derive <file>",
		Short: "Derive EBITDA from a data set's income statement",
		Long: "Derive EBITDA = Revenue - COGS - SG&A + Depreciation + Amortization for every year\n" +
			"of incomeStatementData, after applying incomeStatementAdjustments.",
		Args: cobra.ExactArgs(1),
		RunE: dc.run,
	}
	cmd.Flags().StringVarP(&dc.format, "format", "o", FormatTable, "Output format")
	cmd.Flags().StringVar(&dc.currency, "currency", "", "Currency symbol for table output (defaults to the data set currency)")
	return cmd
}

func (dc *deriveCmd) run(cmd *cobra.Command, args []string) error {
	if err := checkFormat(dc.format, FormatTable, FormatJSON, FormatYAML); err != nil {
		return err
	}
	ds, err := dataset.Load(args[0])
	if err != nil {
		return err
	}
	if len(ds.IncomeStatementData) == 0 {
		return fmt.Errorf("%s has no incomeStatementData", args[0])
	}

	adjusted := statement.ApplyAdjustments(ds.IncomeStatementData, ds.IncomeStatementAdjustments)
	ebitda := statement.ToEBITDA(adjusted)

	out := cmd.OutOrStdout()
	switch dc.format {
	case FormatJSON:
		return writeJSON(out, map[string]interface{}{"ebitdaData": ebitda})
	case FormatYAML:
		b, err := yaml.Marshal(map[string]interface{}{"ebitdaData": ebitda})
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}

	code := dc.currency
	if code == "" {
		code = ds.BaseCurrency
	}
	c := currency.EUR
	if code != "" {
		if c, err = currency.Parse(code); err != nil {
			return err
		}
	}
	rows := make([]ebitdaRow, 0, len(ebitda))
	for _, year := range adjusted.Years() {
		e := adjusted[year]
		rows = append(rows, ebitdaRow{
			Label:  ds.YearLabel(year),
			Entry:  e,
			DA:     e.Depreciation + e.Amortization,
			EBITDA: ebitda[year],
		})
	}
	return writeEBITDATable(out, rows, c)
}

type waccCmd struct {
	in     dcf.WACCInput
	format string
}

func (cli *CLI) newWACCCmd() *cobra.Command {
	wc := &waccCmd{}
	cmd := &cobra.Command{
		Use:   "wacc",
		Short: "Derive a discount rate from CAPM and a target capital structure",
		Args:  cobra.NoArgs,
		RunE:  wc.run,
	}
	f := cmd.Flags()
	f.Float64Var(&wc.in.UnleveredBeta, "beta", 1, "Unlevered beta")
	f.Float64Var(&wc.in.RiskFreeRate, "risk-free", 4, "Risk-free rate, in percent")
	f.Float64Var(&wc.in.MarketRiskPremium, "erp", 5.5, "Equity risk premium, in percent")
	f.Float64Var(&wc.in.PreTaxCostOfDebt, "cost-of-debt", 6, "Pre-tax cost of debt, in percent")
	f.Float64Var(&wc.in.TaxRate, "tax-rate", 21, "Corporate tax rate, in percent")
	f.Float64Var(&wc.in.DebtToEquity, "debt-to-equity", 0, "Target debt-to-equity ratio")
	f.StringVarP(&wc.format, "format", "o", FormatTable, "Output format")
	return cmd
}

func (wc *waccCmd) run(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(wc.format, FormatTable, FormatJSON); err != nil {
		return err
	}
	r, err := dcf.CalculateWACC(wc.in)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if wc.format == FormatJSON {
		return writeJSON(out, r)
	}
	_, err = fmt.Fprintf(out,
		"Levered beta     %.3f\nCost of equity   %s\nCost of debt     %s (after tax)\nDebt weight      %s\nWACC             %s\n",
		r.LeveredBeta,
		currency.FormatPercent(r.CostOfEquity, 2),
		currency.FormatPercent(r.CostOfDebt, 2),
		currency.FormatPercent(r.WeightDebt*100, 1),
		currency.FormatPercent(r.WACC, 2))
	return err
}

type presetsCmd struct {
	format string
}

func (cli *CLI) newPresetsCmd() *cobra.Command {
	pc := &presetsCmd{}
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the built-in data sets and their valuations",
		Args:  cobra.NoArgs,
		RunE:  pc.run,
	}
	cmd.Flags().StringVarP(&pc.format, "format", "o", FormatTable, "Output format")
	return cmd
}

func (pc *presetsCmd) run(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(pc.format, FormatTable, FormatJSON); err != nil {
		return err
	}
	all := presets.All()
	rows := make([]presetRow, 0, len(all))
	for _, ds := range all {
		r, err := dcf.CalculateFromDataSet(ds)
		if err != nil {
			return fmt.Errorf("preset %s: %w", ds.ID, err)
		}
		rows = append(rows, presetRow{
			DataSet: ds,
			Results: r,
			EV:      currency.FormatShort(r.EnterpriseValue, currency.Currency(ds.BaseCurrency)),
		})
	}

	out := cmd.OutOrStdout()
	if pc.format == FormatJSON {
		return writeJSON(out, map[string]interface{}{
			"presets":  rows,
			"families": presets.Families(),
		})
	}
	return writePresetsTable(out, rows)
}

func labelOr(ds models.DataSet, fallback string) string {
	if ds.Label != "" {
		return ds.Label
	}
	if ds.ID != "" {
		return ds.ID
	}
	return fallback
}
