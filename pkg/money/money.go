// Package money holds the decimal helpers used for every price and total.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept at every visible boundary.
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// Zero is a convenience zero value.
var Zero = decimal.Zero

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// NonNegative clamps negative values to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Percent returns base * pct / 100 without rounding.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// ToMinorUnits converts a major-unit amount into integer minor units.
// Amounts with more than two fractional digits are rounded first.
func ToMinorUnits(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("money: negative amount %s", d.String())
	}
	minor := Round2(d).Mul(hundred)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("money: amount %s not representable in minor units", d.String())
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts integer minor units back to a decimal amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

// Parse reads a decimal string and rejects negatives.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("money: negative amount %q", raw)
	}
	return d, nil
}
