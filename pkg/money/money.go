// Package money holds the rounding, formatting and civil-date helpers shared by
// the ledger packages.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places kept for persisted and displayed amounts.
const CentPlaces = 2

var hundred = decimal.NewFromInt(100)

// Round rounds d to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// Percent returns rate/100 as a multiplier.
func Percent(rate decimal.Decimal) decimal.Decimal {
	return rate.Div(hundred)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	return Max(d, decimal.Zero)
}

// FormatBRL renders d as a pt-BR currency string, e.g. "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	s := Round(d).StringFixed(CentPlaces)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteString("-")
	}
	b.WriteString("R$ ")
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte('.')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
