package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits kept on a run's price.
const PriceScale = 4

// Hundred is the percentage base.
var Hundred = decimal.NewFromInt(100)

// PercentFactor returns 1 + pct/100. The division is a decimal shift,
// so it is exact for any input.
func PercentFactor(pct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(pct.Shift(-2))
}

// RoundPrice rounds to PriceScale digits, ties to even.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(PriceScale)
}

// ParseDecimal parses a decimal string, naming the field on failure.
func ParseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: invalid decimal %q", field, s)
	}
	return d, nil
}

// MustDecimal is like decimal.RequireFromString.
// Use only in tests or with constant inputs.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecimalPtr returns a pointer to d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
