package currency

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateNotFound is returned when no rate is stored for a currency pair.
var ErrRateNotFound = errors.New("no exchange rate for currency pair")

// ExchangeRate converts one unit of From into Rate units of To.
// Rates are directional: EUR→USD says nothing about USD→EUR.
type ExchangeRate struct {
	From        Currency  `json:"from" yaml:"from"`
	To          Currency  `json:"to" yaml:"to"`
	Rate        float64   `json:"rate" yaml:"rate"`
	LastUpdated time.Time `json:"lastUpdated" yaml:"lastUpdated"`
}

// DefaultRates returns the example EUR/USD pair used until real rates are supplied.
func DefaultRates() []ExchangeRate {
	now := time.Now()
	return []ExchangeRate{
		{From: EUR, To: USD, Rate: 1.08, LastUpdated: now},
		{From: USD, To: EUR, Rate: 0.93, LastUpdated: now},
	}
}

// RateTable is a concurrency-safe set of directional exchange rates.
type RateTable struct {
	mu    sync.RWMutex
	rates []ExchangeRate
	now   func() time.Time
}

// NewRateTable builds a table from the given rates. Later entries for the same
// pair replace earlier ones.
func NewRateTable(rates ...ExchangeRate) *RateTable {
	t := &RateTable{now: time.Now}
	for _, r := range rates {
		t.upsert(r)
	}
	return t
}

// Update stores rate for from→to, replacing any existing entry for the pair.
// The inverse pair is not touched.
func (t *RateTable) Update(from, to Currency, rate float64) error {
	if err := validateRate(rate); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.upsert(ExchangeRate{From: from, To: to, Rate: rate, LastUpdated: t.now()})
	return nil
}

func (t *RateTable) upsert(r ExchangeRate) {
	for i := range t.rates {
		if t.rates[i].From == r.From && t.rates[i].To == r.To {
			t.rates[i] = r
			return
		}
	}
	t.rates = append(t.rates, r)
}

// Find returns the stored rate for from→to.
func (t *RateTable) Find(from, to Currency) (ExchangeRate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.rates {
		if r.From == from && r.To == to {
			return r, true
		}
	}
	return ExchangeRate{}, false
}

// Rate returns the multiplier for from→to; identical currencies yield 1.
func (t *RateTable) Rate(from, to Currency) (float64, error) {
	if from == to {
		return 1, nil
	}
	r, ok := t.Find(from, to)
	if !ok {
		return 0, fmt.Errorf("%w: %s→%s", ErrRateNotFound, from, to)
	}
	return r.Rate, nil
}

// Convert rescales a single amount.
func (t *RateTable) Convert(amount float64, from, to Currency) (float64, error) {
	rate, err := t.Rate(from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// All returns a snapshot of every stored rate.
func (t *RateTable) All() []ExchangeRate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ExchangeRate, len(t.rates))
	copy(out, t.rates)
	return out
}
