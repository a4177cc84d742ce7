package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/respond"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
)

// Settings holds the runtime-switchable display settings shared by handlers.
type Settings struct {
	mu      sync.RWMutex
	display currency.Currency
	driver  string
}

// NewSettings starts with the configured display currency.
func NewSettings(display currency.Currency, storeDriver string) *Settings {
	return &Settings{display: display, driver: storeDriver}
}

// DisplayCurrency is the currency results are shown in when a request does
// not name one.
func (s *Settings) DisplayCurrency() currency.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// SetDisplayCurrency switches the display currency.
func (s *Settings) SetDisplayCurrency(c currency.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = c
}

type Response struct {
	DisplayCurrency currency.Currency   `json:"displayCurrency"`
	Available       []currency.Currency `json:"available"`
	StoreDriver     string              `json:"storeDriver"`
}

const maxBodyBytes = 1 << 10

type SwitchRequest struct {
	Currency string `json:"currency"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Settings *Settings
	Rates    *currency.RateTable
}

// NewHandler creates a new config handler
func NewHandler(settings *Settings, rates *currency.RateTable) *Handler {
	return &Handler{Settings: settings, Rates: rates}
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	h.Settings.mu.RLock()
	resp := Response{
		DisplayCurrency: h.Settings.display,
		StoreDriver:     h.Settings.driver,
	}
	h.Settings.mu.RUnlock()
	resp.Available = available(resp.DisplayCurrency, h.Rates)
	respond.JSON(w, r, http.StatusOK, resp)
}

// available lists the display currency and every currency named by a stored
// rate, sorted by code.
func available(display currency.Currency, rates *currency.RateTable) []currency.Currency {
	seen := map[currency.Currency]bool{display: true}
	if rates != nil {
		for _, rate := range rates.All() {
			seen[rate.From] = true
			seen[rate.To] = true
		}
	}
	out := make([]currency.Currency, 0, len(seen))
	for c := range seen {
		if c != "" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HandleSwitch changes the display currency. The target must be the current
// currency or reachable from it with a stored rate.
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respond.BadRequest(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	target, err := currency.Parse(req.Currency)
	if err != nil {
		respond.BadRequest(w, r, err)
		return
	}
	if _, err := h.Rates.Rate(h.Settings.DisplayCurrency(), target); err != nil {
		respond.Error(w, r, err)
		return
	}

	h.Settings.SetDisplayCurrency(target)
	h.HandleConfig(w, r)
}
