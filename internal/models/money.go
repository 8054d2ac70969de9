package models

import "github.com/shopspring/decimal"

// Money wraps shopspring/decimal for the cash and cost-basis accounting
// that runs for an entire session: plain float64 addition/subtraction
// across thousands of ticks can drift by fractions of a cent, which
// would eventually trip the "cash never negative" and concentration-cap
// invariants on rounding alone. Prices, bars and indicators stay
// float64 (the strategy math is defined in those terms), only the
// running cash ledger uses Money.
type Money struct {
	d decimal.Decimal
}

// NewMoney constructs a Money from a float64 (broker/account APIs report
// cash as float64).
func NewMoney(f float64) Money {
	return Money{d: decimal.NewFromFloat(f)}
}

// Add returns the sum as Money.
func (m Money) Add(delta float64) Money {
	return Money{d: m.d.Add(decimal.NewFromFloat(delta))}
}

// Sub returns the difference as Money.
func (m Money) Sub(delta float64) Money {
	return Money{d: m.d.Sub(decimal.NewFromFloat(delta))}
}

// Float64 converts back for arithmetic against float64-denominated
// prices and ratios.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// Negative reports whether the underlying balance is below zero.
func (m Money) Negative() bool {
	return m.d.IsNegative()
}
