// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Quantity counts whole stock units. Batches never hold fractional units.
type Quantity int64

// MaxQuantity bounds any single quantity taken from a caller. Two bounded
// quantities always sum inside int64.
const MaxQuantity Quantity = 1_000_000_000_000

func (q Quantity) Int64() int64 { return int64(q) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// Add returns q+o, or false when the sum overflows int64.
func (q Quantity) Add(o Quantity) (Quantity, bool) {
	if (o > 0 && q > math.MaxInt64-o) || (o < 0 && q < math.MinInt64-o) {
		return 0, false
	}
	return q + o, true
}

// SaturatingAdd is Add clamped to the int64 range.
func (q Quantity) SaturatingAdd(o Quantity) Quantity {
	if sum, ok := q.Add(o); ok {
		return sum
	}
	if o > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}

// Money converts the quantity to a decimal multiplier.
func (q Quantity) Money() Money {
	return decimal.NewFromInt(int64(q))
}

// String returns the quantity as a signed integer string.
func (q Quantity) String() string {
	return fmt.Sprintf("%d", int64(q))
}
