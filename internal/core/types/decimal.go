// Package types provides the numeric types used by form arithmetic.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is an item count or measure. Fractional quantities are allowed.
type Quantity = decimal.Decimal

// Percent is a rate expressed in percent (11 means 11%).
type Percent = decimal.Decimal

// MinorUnitPlaces is the number of fractional digits kept for currency amounts.
const MinorUnitPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Int returns an exact decimal for an integer.
func Int(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to the currency minor unit.
func RoundMoney(m Money) Money {
	return m.Round(MinorUnitPlaces)
}

// DiscountFactor returns 1 - p/100.
func DiscountFactor(p Percent) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(p.Div(hundred))
}

// TaxFactor returns 1 + p/100.
func TaxFactor(p Percent) decimal.Decimal {
	return decimal.NewFromInt(1).Add(p.Div(hundred))
}

// PercentOf returns part / whole * 100, or zero when whole is zero.
func PercentOf(part, whole decimal.Decimal) Percent {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(MinorUnitPlaces)
}

// InPercentRange reports whether 0 <= p <= 100.
func InPercentRange(p Percent) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// Sum adds up values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
