// Package respond writes JSON responses and maps domain errors to HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/dataset"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/presets"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/store"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status. A value that cannot be encoded is
// reported as a 500 instead of an empty body.
func JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorBody{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// Error writes err as {"error": "..."} with the status chosen by StatusFor.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	} else {
		zerolog.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	JSON(w, r, status, ErrorBody{Error: err.Error()})
}

// BadRequest writes a 400 with the given error.
func BadRequest(w http.ResponseWriter, r *http.Request, err error) {
	JSON(w, r, http.StatusBadRequest, ErrorBody{Error: err.Error()})
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case valuation.IsValidationError(err),
		errors.Is(err, currency.ErrInvalidRate),
		errors.Is(err, currency.ErrRateNotFound),
		errors.Is(err, store.ErrInvalidOrder):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dataset.ErrDecode),
		errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, presets.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
