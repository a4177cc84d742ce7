package valuation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/respond"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/dataset"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/presets"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/report"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/statement"
	dcf "github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

const maxBodyBytes = 1 << 20

// DisplaySettings supplies the currency used when a request does not name one.
type DisplaySettings interface {
	DisplayCurrency() currency.Currency
}

// Handler serves the stateless valuation endpoints.
type Handler struct {
	rates    *currency.RateTable
	settings DisplaySettings
}

func NewHandler(rates *currency.RateTable, settings DisplaySettings) *Handler {
	return &Handler{rates: rates, settings: settings}
}

// Routes registers the handler under r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/dcf", h.CalculateDCF)
	r.Post("/dcf/dataset", h.CalculateDataSet)
	r.Post("/compare", h.Compare)
	r.Post("/ebitda/derive", h.DeriveEBITDA)
	r.Post("/wacc", h.CalculateWACC)
	r.Post("/currency/convert", h.ConvertCurrency)
	r.Get("/currency/rates", h.ListRates)
	r.Put("/currency/rates", h.UpdateRate)
	r.Get("/presets", h.ListPresets)
	r.Get("/presets/{id}", h.GetPreset)
	r.Post("/report/{format}", h.Report)
}

type DCFRequest struct {
	EBITDAData models.EBITDAData `json:"ebitdaData"`
	Parameters models.Parameters `json:"parameters"`
}

// CalculateDCF values a bare EBITDA series.
func (h *Handler) CalculateDCF(w http.ResponseWriter, r *http.Request) {
	var req DCFRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	results, err := dcf.Calculate(req.EBITDAData, req.Parameters)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, results)
}

type DataSetResponse struct {
	DataSet models.DataSet     `json:"dataSet"`
	Results *models.Results    `json:"results"`
	Bridge  []dcf.BridgeStep   `json:"bridge"`
	Display currency.Currency  `json:"displayCurrency"`
	Labels  map[int]string     `json:"labels"`
	Summary map[string]float64 `json:"summary"`
}

// CalculateDataSet values a full data set in the requested display currency
// (?currency=, else the server's display currency). The body may be JSON,
// HJSON or YAML, chosen by Content-Type.
func (h *Handler) CalculateDataSet(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.decodeDataSet(w, r)
	if !ok {
		return
	}
	display, err := h.displayCurrency(r)
	if err != nil {
		respond.BadRequest(w, r, err)
		return
	}
	converted, results, err := dcf.Valuate(ds, display, h.rates)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	labels := make(map[int]string, len(results.PresentValues))
	for _, row := range results.PresentValues {
		labels[row.Year] = converted.YearLabel(row.Year)
	}
	respond.JSON(w, r, http.StatusOK, DataSetResponse{
		DataSet: converted,
		Results: results,
		Bridge:  dcf.Bridge(results),
		Display: display,
		Labels:  labels,
		Summary: map[string]float64{
			"terminalValueShare": dcf.TerminalValueShare(results),
		},
	})
}

type CompareRequest struct {
	Base      models.DataSet   `json:"base"`
	Scenarios []models.DataSet `json:"scenarios"`
}

// Compare values every scenario against the base data set.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cmps, err := dcf.CompareAll(req.Base, req.Scenarios...)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, cmps)
}

type DeriveRequest struct {
	IncomeStatementData        models.IncomeStatementData        `json:"incomeStatementData"`
	IncomeStatementAdjustments models.IncomeStatementAdjustments `json:"incomeStatementAdjustments,omitempty"`
}

type DeriveResponse struct {
	EBITDAData          models.EBITDAData          `json:"ebitdaData"`
	IncomeStatementData models.IncomeStatementData `json:"incomeStatementData"`
}

// DeriveEBITDA turns an (optionally adjusted) income statement into EBITDA.
func (h *Handler) DeriveEBITDA(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data := req.IncomeStatementData
	if req.IncomeStatementAdjustments != nil {
		data = statement.ApplyAdjustments(data, req.IncomeStatementAdjustments)
	}
	respond.JSON(w, r, http.StatusOK, DeriveResponse{
		EBITDAData:          statement.ToEBITDA(data),
		IncomeStatementData: data,
	})
}

// CalculateWACC derives a discount rate from capital structure inputs.
func (h *Handler) CalculateWACC(w http.ResponseWriter, r *http.Request) {
	var in dcf.WACCInput
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := dcf.CalculateWACC(in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, result)
}

type ConvertRequest struct {
	DataSet models.DataSet `json:"dataSet"`
	From    string         `json:"from"`
	To      string         `json:"to"`
	// Rate overrides the stored rate when set.
	Rate float64 `json:"rate,omitempty"`
}

// ConvertCurrency rescales a data set. Without an explicit rate the stored
// from→to rate is used.
func (h *Handler) ConvertCurrency(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fromCode := req.From
	if fromCode == "" {
		fromCode = req.DataSet.BaseCurrency
	}
	from, err := currency.Parse(fromCode)
	if err != nil {
		respond.BadRequest(w, r, fmt.Errorf("from: %w", err))
		return
	}
	to, err := currency.Parse(req.To)
	if err != nil {
		respond.BadRequest(w, r, fmt.Errorf("to: %w", err))
		return
	}

	rate := req.Rate
	if rate == 0 {
		rate, err = h.rates.Rate(from, to)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
	}
	converted, err := currency.ConvertDataSet(req.DataSet, from, to, rate)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, converted)
}

func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, h.rates.All())
}

type RateRequest struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// UpdateRate stores one directional rate; the inverse is left alone.
func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	from, err := currency.Parse(req.From)
	if err != nil {
		respond.BadRequest(w, r, fmt.Errorf("from: %w", err))
		return
	}
	to, err := currency.Parse(req.To)
	if err != nil {
		respond.BadRequest(w, r, fmt.Errorf("to: %w", err))
		return
	}
	if err := h.rates.Update(from, to, req.Rate); err != nil {
		respond.Error(w, r, err)
		return
	}
	rate, _ := h.rates.Find(from, to)
	respond.JSON(w, r, http.StatusOK, rate)
}

type PresetList struct {
	Presets  []models.DataSet `json:"presets"`
	Families []presets.Family `json:"families"`
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, PresetList{
		Presets:  presets.All(),
		Families: presets.Families(),
	})
}

type PresetResponse struct {
	DataSet models.DataSet  `json:"dataSet"`
	Results *models.Results `json:"results"`
}

// GetPreset returns a preset with its valuation.
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	ds, err := presets.Get(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	results, err := dcf.CalculateFromDataSet(ds)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, PresetResponse{DataSet: ds, Results: results})
}

// Report renders a data set's valuation as markdown or html.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if format != "markdown" && format != "html" {
		respond.BadRequest(w, r, fmt.Errorf("unsupported report format %q (markdown or html)", format))
		return
	}
	ds, ok := h.decodeDataSet(w, r)
	if !ok {
		return
	}
	display, err := h.displayCurrency(r)
	if err != nil {
		respond.BadRequest(w, r, err)
		return
	}
	converted, results, err := dcf.Valuate(ds, display, h.rates)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	opts := report.Options{Currency: display, Short: r.URL.Query().Get("short") == "true"}
	var buf bytes.Buffer
	if format == "html" {
		err = report.HTML(&buf, converted, results, opts)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		err = report.Markdown(&buf, converted, results, opts)
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	if err != nil {
		w.Header().Del("Content-Type")
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) displayCurrency(r *http.Request) (currency.Currency, error) {
	if q := r.URL.Query().Get("currency"); q != "" {
		return currency.Parse(q)
	}
	if h.settings != nil {
		if c := h.settings.DisplayCurrency(); c != "" {
			return c, nil
		}
	}
	return currency.EUR, nil
}

func (h *Handler) decodeDataSet(w http.ResponseWriter, r *http.Request) (models.DataSet, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respond.BadRequest(w, r, fmt.Errorf("failed to read body: %w", err))
		return models.DataSet{}, false
	}
	ds, err := dataset.Decode(body, formatFromContentType(r.Header.Get("Content-Type")))
	if err == nil {
		err = dataset.Validate(ds)
	}
	if err != nil {
		respond.Error(w, r, err)
		return models.DataSet{}, false
	}
	return ds, true
}

func formatFromContentType(ct string) dataset.Format {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return dataset.FormatJSON
	}
	switch {
	case strings.Contains(mt, "yaml"):
		return dataset.FormatYAML
	case strings.Contains(mt, "hjson"):
		return dataset.FormatHJSON
	default:
		return dataset.FormatJSON
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		respond.BadRequest(w, r, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}
