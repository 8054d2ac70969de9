// Package positions implements the in-memory position ledger (spec
// section 4.F): a local, synchronous, single-writer table plus a
// live variant that reconciles against a broker's reported state.
package positions

import (
	"time"

	"github.com/neuralprobe/d4/internal/models"
)

// Ledger is the capability interface both the local and live position
// tables implement (Design Note: abstract base + local/live subclass
// pairs map to one interface with two implementations).
type Ledger interface {
	Add(symbol string, qty, price, cost, stopValue float64, stopKey string, stopTrailing float64, now time.Time)
	Remove(symbol string)
	UpdatePrice(symbol string, price float64)
	Get(symbol string) (*models.Position, bool)
	All() map[string]*models.Position
	Value() float64
}

// Local is the synchronous, single-writer local ledger used in backtest
// and paper-simulation mode.
type Local struct {
	assets map[string]*models.Position
	value  float64
}

// NewLocal constructs an empty local ledger.
func NewLocal() *Local {
	return &Local{assets: make(map[string]*models.Position)}
}

// Add inserts a new symbol or folds an additional buy into an existing
// one, recomputing avg_price and folding stop_* fields by taking the
// max (spec 4.F: stops never ratchet down).
func (l *Local) Add(symbol string, qty, price, cost, stopValue float64, stopKey string, stopTrailing float64, now time.Time) {
	if p, ok := l.assets[symbol]; ok {
		l.value -= p.MarketValue
		p.Add(qty, price, cost, stopValue, stopKey, stopTrailing)
		l.value += p.MarketValue
		return
	}
	p := models.NewPosition(symbol, qty, price, cost, stopValue, stopKey, stopTrailing, now)
	l.assets[symbol] = p
	l.value += p.MarketValue
}

// Remove deletes a symbol's entry and decrements the aggregate value by
// its market value.
func (l *Local) Remove(symbol string) {
	p, ok := l.assets[symbol]
	if !ok {
		return
	}
	l.value -= p.MarketValue
	delete(l.assets, symbol)
}

// UpdatePrice recomputes a symbol's market value and adjusts the
// aggregate positions value by the delta; the aggregate is forced to
// zero once no positions remain, guarding against float drift.
func (l *Local) UpdatePrice(symbol string, price float64) {
	if p, ok := l.assets[symbol]; ok {
		l.value += p.UpdatePrice(price)
	}
	if len(l.assets) == 0 {
		l.value = 0
	}
}

// Get returns a symbol's position and whether it is held.
func (l *Local) Get(symbol string) (*models.Position, bool) {
	p, ok := l.assets[symbol]
	return p, ok
}

// All returns the full position table.
func (l *Local) All() map[string]*models.Position {
	return l.assets
}

// Value returns the aggregate market value across all held positions.
func (l *Local) Value() float64 {
	return l.value
}
