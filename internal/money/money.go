// Package money converts between decimal USD strings and the persisted
// integer representation (micro-dollars, 1,000,000 units = $1).
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MicrosPerDollar is the fixed-point scale for all persisted money fields.
const MicrosPerDollar = 1_000_000

var microScale = decimal.NewFromInt(MicrosPerDollar)

// ParseUSD converts a decimal USD string (e.g. "12.50") to micro-dollars,
// flooring any precision beyond six decimal places.
func ParseUSD(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	micros := d.Mul(microScale).Floor()
	if !micros.IsInteger() || micros.BigInt().BitLen() > 62 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return micros.IntPart(), nil
}

// Dollars converts micro-dollars to a float64 for display. Aggregation must
// stay in int64; this is a formatting-step conversion only.
func Dollars(micros int64) float64 {
	f, _ := decimal.NewFromInt(micros).Div(microScale).Float64()
	return f
}

// FormatUSD renders micro-dollars as a fixed two-decimal USD string.
func FormatUSD(micros int64) string {
	return "$" + decimal.NewFromInt(micros).Div(microScale).StringFixed(2)
}

// Abs returns the absolute value of a signed amount.
func Abs(micros int64) int64 {
	if micros < 0 {
		return -micros
	}
	return micros
}
