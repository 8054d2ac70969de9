package models

import "time"

// Position is one currently-held symbol's ledger entry. Quantity is
// always > 0; a position with no remaining quantity is removed, not
// zeroed.
type Position struct {
	Symbol        string
	FirstAcquired time.Time
	LastPrice     float64
	AvgPrice      float64
	Quantity      float64
	MarketValue   float64
	CostBasis     float64
	StopValue     float64
	StopKey       string
	StopTrailing  float64
}

// NewPosition builds the first lot of a symbol.
func NewPosition(symbol string, qty, price, cost, stopValue float64, stopKey string, stopTrailing float64, acquired time.Time) *Position {
	return &Position{
		Symbol:        symbol,
		FirstAcquired: acquired,
		LastPrice:     price,
		AvgPrice:      cost / qty,
		Quantity:      qty,
		MarketValue:   cost,
		CostBasis:     cost,
		StopValue:     stopValue,
		StopKey:       stopKey,
		StopTrailing:  stopTrailing,
	}
}

// Add folds an additional buy into this position: quantity and cost
// basis accumulate, average price is recomputed, and stop fields are
// folded by taking the max so stops never ratchet down.
func (p *Position) Add(qty, price, cost, stopValue float64, stopKey string, stopTrailing float64) {
	p.LastPrice = price
	p.Quantity += qty
	p.CostBasis += cost
	p.MarketValue = price * p.Quantity
	p.AvgPrice = p.CostBasis / p.Quantity
	if stopValue > p.StopValue {
		p.StopValue = stopValue
		p.StopKey = stopKey
	}
	if stopTrailing > p.StopTrailing {
		p.StopTrailing = stopTrailing
	}
}

// UpdatePrice recomputes market value from a fresh quote. The caller
// (Positions ledger) is responsible for adjusting any aggregate value it
// tracks by the delta this returns.
func (p *Position) UpdatePrice(price float64) (delta float64) {
	prev := p.MarketValue
	p.LastPrice = price
	p.MarketValue = price * p.Quantity
	return p.MarketValue - prev
}

// RaiseStop applies a candidate stop, keeping the higher of the existing
// and proposed values (stops never ratchet down).
func (p *Position) RaiseStop(value float64, key string) {
	if value > p.StopValue {
		p.StopValue = value
		p.StopKey = key
	}
}

// RaiseTrailing applies a candidate trailing floor, keeping the max.
func (p *Position) RaiseTrailing(value float64) {
	if value > p.StopTrailing {
		p.StopTrailing = value
	}
}

// EffectiveStop is the floor below which a stop-loss sell fires: the
// higher of the indicator-derived stop and the trailing floor.
func (p *Position) EffectiveStop() float64 {
	if p.StopTrailing > p.StopValue {
		return p.StopTrailing
	}
	return p.StopValue
}
