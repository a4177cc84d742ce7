package valuation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/respond"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	dcf "github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

type fixedDisplay currency.Currency

func (f fixedDisplay) DisplayCurrency() currency.Currency { return currency.Currency(f) }

const defaultBody = `{
  "ebitdaData": {"2023": -1274610, "2024": -885664, "2025": 29279, "2026": 1715988,
                 "2027": 3618470, "2028": 7840841, "2029": 15634053},
  "parameters": {"discountRate": 30, "perpetuityRate": 4, "corporateTaxRate": 21}
}`

func newRouter(t *testing.T) (http.Handler, *currency.RateTable) {
	t.Helper()
	rates := currency.NewRateTable(currency.DefaultRates()...)
	r := chi.NewRouter()
	NewHandler(rates, fixedDisplay(currency.EUR)).Routes(r)
	return r, rates
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestCalculateDCF(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodPost, "/dcf", "application/json", defaultBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var results models.Results
	decode(t, rec, &results)
	assert.InDelta(t, 49403607.48, results.TerminalValue, 0.01)
	assert.InDelta(t, 7873270.93, results.TerminalValuePV, 0.01)
	assert.InDelta(t, 3002165.04, results.ProjectionsPV, 0.01)
	assert.InDelta(t, 10875435.97, results.EnterpriseValue, 0.01)
	require.Len(t, results.PresentValues, 7)
	assert.Equal(t, 2023, results.PresentValues[0].Year)
}

func TestCalculateDCF_Errors(t *testing.T) {
	h, _ := newRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"malformed", `{"ebitdaData": `, http.StatusBadRequest, "invalid request body"},
		{"empty series", `{"ebitdaData": {}, "parameters": {"discountRate": 10, "perpetuityRate": 2}}`,
			http.StatusUnprocessableEntity, ""},
		{"wacc not above growth", `{"ebitdaData": {"2025": 100}, "parameters": {"discountRate": 4, "perpetuityRate": 4}}`,
			http.StatusUnprocessableEntity, ""},
		{"tax out of range", `{"ebitdaData": {"2025": 100}, "parameters": {"discountRate": 10, "perpetuityRate": 2, "corporateTaxRate": 120}}`,
			http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/dcf", "application/json", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body respond.ErrorBody
			decode(t, rec, &body)
			assert.NotEmpty(t, body.Error)
			if tt.msg != "" {
				assert.Contains(t, body.Error, tt.msg)
			}
		})
	}
}

func TestCalculateDataSet_CurrencyConversion(t *testing.T) {
	h, _ := newRouter(t)
	body := `{"label": "Default", "baseCurrency": "EUR", ` + strings.TrimPrefix(defaultBody, "{")

	rec := do(t, h, http.MethodPost, "/dcf/dataset?currency=usd", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DataSetResponse
	decode(t, rec, &resp)
	assert.Equal(t, currency.USD, resp.Display)
	assert.Equal(t, "USD", resp.DataSet.BaseCurrency)
	assert.InDelta(t, 1274610*-1.08, resp.DataSet.EBITDAData[2023], 0.001)
	assert.InDelta(t, 10875435.97*1.08, resp.Results.EnterpriseValue, 0.05)
	assert.NotEmpty(t, resp.Bridge)
	assert.Equal(t, "2025", resp.Labels[2025])
}

func TestCalculateDataSet_YAMLUsesDisplayCurrency(t *testing.T) {
	h, _ := newRouter(t)
	body := `
label: Plain
ebitdaData:
  2025: 1000
  2026: 1100
parameters:
  discountRate: 10
  perpetuityRate: 2
  corporateTaxRate: 0
`
	rec := do(t, h, http.MethodPost, "/dcf/dataset", "application/yaml", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DataSetResponse
	decode(t, rec, &resp)
	assert.Equal(t, currency.EUR, resp.Display)

	expected, err := dcf.CalculateDCF(models.EBITDAData{2025: 1000, 2026: 1100}, 10, 2, 0)
	require.NoError(t, err)
	assert.InDelta(t, expected.EnterpriseValue, resp.Results.EnterpriseValue, 1e-6)
}

func TestCalculateDataSet_UnknownRate(t *testing.T) {
	h, _ := newRouter(t)
	body := `{"baseCurrency": "GBP", ` + strings.TrimPrefix(defaultBody, "{")

	rec := do(t, h, http.MethodPost, "/dcf/dataset", "application/json", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCalculateDataSet_NonFiniteInput(t *testing.T) {
	h, _ := newRouter(t)
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{
			name: "infinite EBITDA",
			path: "/dcf/dataset",
			body: "ebitdaData: {2024: .inf, 2025: 100}\nparameters: {discountRate: 10, perpetuityRate: 2, corporateTaxRate: 21}\n",
			want: http.StatusBadRequest,
		},
		{
			name: "NaN discount rate",
			path: "/dcf/dataset",
			body: "ebitdaData: {2024: 100, 2025: 110}\nparameters: {discountRate: .nan, perpetuityRate: 2, corporateTaxRate: 21}\n",
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "report with NaN perpetuity rate",
			path: "/report/markdown",
			body: "ebitdaData: {2024: 100, 2025: 110}\nparameters: {discountRate: 10, perpetuityRate: .nan, corporateTaxRate: 21}\n",
			want: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, "application/yaml", tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			var body respond.ErrorBody
			decode(t, rec, &body)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestCompare(t *testing.T) {
	h, _ := newRouter(t)
	base := `{"label": "Default", ` + strings.TrimPrefix(defaultBody, "{")
	optimistic := strings.Replace(base, `"discountRate": 30, "perpetuityRate": 4`, `"discountRate": 18, "perpetuityRate": 5`, 1)
	optimistic = strings.Replace(optimistic, `"label": "Default"`, `"label": "Optimistic"`, 1)

	rec := do(t, h, http.MethodPost, "/compare", "application/json",
		`{"base": `+base+`, "scenarios": [`+optimistic+`]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cmps []dcf.Comparison
	decode(t, rec, &cmps)
	require.Len(t, cmps, 1)
	assert.Equal(t, "Default", cmps[0].BaseLabel)
	assert.Equal(t, "Optimistic", cmps[0].CompareLabel)
	assert.InDelta(t, 37734682.5, cmps[0].EnterpriseValue.Value, 1)
	assert.InDelta(t, 10875435.97, cmps[0].EnterpriseValue.Base, 0.01)
	assert.Greater(t, cmps[0].EnterpriseValue.Diff, 0.0)
}

func TestDeriveEBITDA(t *testing.T) {
	h, _ := newRouter(t)
	body := `{
  "incomeStatementData": {"2025": {"revenue": 1000, "cogs": 400, "sga": 200, "depreciation": 50, "amortization": 25}},
  "incomeStatementAdjustments": {"2025": {"revenueAdjustment": 0.1}}
}`
	rec := do(t, h, http.MethodPost, "/ebitda/derive", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DeriveResponse
	decode(t, rec, &resp)
	assert.InDelta(t, 1100.0, resp.IncomeStatementData[2025].Revenue, 1e-9)
	assert.InDelta(t, 1100-400-200+50+25, resp.EBITDAData[2025], 1e-9)
}

func TestCalculateWACC(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodPost, "/wacc", "application/json",
		`{"unleveredBeta": 1, "riskFreeRate": 4, "marketRiskPremium": 5.5, "preTaxCostOfDebt": 6, "taxRate": 21, "debtToEquity": 0.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got dcf.WACCResult
	decode(t, rec, &got)
	assert.InDelta(t, 9.361666667, got.WACC, 1e-6)

	rec = do(t, h, http.MethodPost, "/wacc", "application/json", `{"unleveredBeta": 1, "debtToEquity": -1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConvertCurrency(t *testing.T) {
	h, _ := newRouter(t)
	body := `{"dataSet": {"baseCurrency": "EUR", "ebitdaData": {"2025": 100}}, "to": "USD"}`

	rec := do(t, h, http.MethodPost, "/currency/convert", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ds models.DataSet
	decode(t, rec, &ds)
	assert.InDelta(t, 108.0, ds.EBITDAData[2025], 1e-9)
	assert.Equal(t, "USD", ds.BaseCurrency)

	rec = do(t, h, http.MethodPost, "/currency/convert", "application/json",
		`{"dataSet": {"ebitdaData": {"2025": 100}}, "from": "EUR", "to": "USD", "rate": -2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/currency/convert", "application/json",
		`{"dataSet": {"ebitdaData": {"2025": 100}}, "to": "USD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRates(t *testing.T) {
	h, rates := newRouter(t)

	rec := do(t, h, http.MethodGet, "/currency/rates", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []currency.ExchangeRate
	decode(t, rec, &list)
	assert.Len(t, list, 2)

	rec = do(t, h, http.MethodPut, "/currency/rates", "application/json", `{"from": "eur", "to": "usd", "rate": 1.2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := rates.Rate(currency.EUR, currency.USD)
	require.NoError(t, err)
	assert.Equal(t, 1.2, got)

	rec = do(t, h, http.MethodPut, "/currency/rates", "application/json", `{"from": "EUR", "to": "USD", "rate": 0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPresets(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodGet, "/presets", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list PresetList
	decode(t, rec, &list)
	assert.NotEmpty(t, list.Presets)
	assert.Len(t, list.Families, 2)

	rec = do(t, h, http.MethodGet, "/presets/nvidia-base", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var preset PresetResponse
	decode(t, rec, &preset)
	assert.Equal(t, "USD", preset.DataSet.BaseCurrency)
	assert.InDelta(t, 249.76e9, preset.Results.EnterpriseValue, 0.01e9)

	rec = do(t, h, http.MethodGet, "/presets/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport(t *testing.T) {
	h, _ := newRouter(t)
	body := `{"label": "Default", "baseCurrency": "EUR", ` + strings.TrimPrefix(defaultBody, "{")

	rec := do(t, h, http.MethodPost, "/report/markdown", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Default"))

	rec = do(t, h, http.MethodPost, "/report/html?short=true", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("<table>")))

	rec = do(t, h, http.MethodPost, "/report/pdf", "application/json", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormatFromContentType(t *testing.T) {
	assert.Equal(t, "yaml", string(formatFromContentType("application/x-yaml")))
	assert.Equal(t, "hjson", string(formatFromContentType("application/hjson; charset=utf-8")))
	assert.Equal(t, "json", string(formatFromContentType("")))
	assert.Equal(t, "json", string(formatFromContentType("application/json")))
}
