package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		amount float64
		c      Currency
		want   string
	}{
		{0, USD, "$0"},
		{950, USD, "$950"},
		{1234.5, EUR, "€1,235"},
		{-1274610, EUR, "-€1,274,610"},
		{15634053, USD, "$15,634,053"},
		{100000, USD, "$100,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.amount, tt.c))
	}
}

func TestFormatShort(t *testing.T) {
	tests := []struct {
		amount float64
		c      Currency
		want   string
	}{
		{950, USD, "$950"},
		{1000, USD, "$1.0K"},
		{-885664, EUR, "-€885.7K"},
		{1274610, USD, "$1.3M"},
		{15634053, EUR, "€15.6M"},
		{42e9, USD, "$42.0B"},
		{-1.25e9, USD, "-$1.3B"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatShort(tt.amount, tt.c), "amount %v", tt.amount)
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "20.0%", FormatPercent(20, 1))
	assert.Equal(t, "-12.35%", FormatPercent(-12.345, 2))
	assert.Equal(t, "4%", FormatPercent(4, 0))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"-", 0},
		{".", 0},
		{"-.", 0},
		{"abc", 0},
		{"1,274,610", 1274610},
		{"€-1,274,610.5", -1274610.5},
		{"$ 42", 42},
		{"1.2.3", 1.23},
		{".5", 0.5},
		{"-.25", -0.25},
		{"00042", 42},
		{"12-3", 123},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAmount(tt.in), "input %q", tt.in)
	}
}
