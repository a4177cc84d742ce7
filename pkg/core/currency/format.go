package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	billion  = decimal.NewFromInt(1_000_000_000)
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
)

// Format renders amount in whole units with thousands separators, e.g. "-$1,274,610".
func Format(amount float64, c Currency) string {
	d := decimal.NewFromFloat(amount).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + Symbol(c) + groupThousands(d.String())
}

// FormatShort abbreviates large amounts: "$15.6M", "€1.3B", "-$885.7K".
// Amounts under one thousand fall back to Format.
func FormatShort(amount float64, c Currency) string {
	d := decimal.NewFromFloat(amount)
	abs := d.Abs()

	var unit decimal.Decimal
	var suffix string
	switch {
	case abs.GreaterThanOrEqual(billion):
		unit, suffix = billion, "B"
	case abs.GreaterThanOrEqual(million):
		unit, suffix = million, "M"
	case abs.GreaterThanOrEqual(thousand):
		unit, suffix = thousand, "K"
	default:
		return Format(amount, c)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + Symbol(c) + abs.Div(unit).StringFixed(1) + suffix
}

// FormatPercent renders a percentage value (20 → "20.0%").
func FormatPercent(value float64, digits int32) string {
	return decimal.NewFromFloat(value).StringFixed(digits) + "%"
}

// ParseAmount reads a user-typed amount, ignoring currency symbols and
// grouping characters. A leading minus makes the value negative; further dots
// after the first are dropped. Input with no digits parses as 0.
func ParseAmount(input string) float64 {
	var b strings.Builder
	for _, r := range input {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.ReplaceAll(cleaned, "-", "")

	intPart, fracPart, hasFrac := strings.Cut(cleaned, ".")
	if hasFrac {
		fracPart = strings.ReplaceAll(fracPart, ".", "")
	}
	if intPart == "" && fracPart == "" {
		return 0
	}
	if intPart == "" {
		intPart = "0"
	}

	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
