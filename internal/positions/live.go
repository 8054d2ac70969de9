package positions

import (
	"context"
	"fmt"
	"time"

	"github.com/neuralprobe/d4/internal/broker"
	"github.com/neuralprobe/d4/internal/models"
)

// Live is the Ledger used in live trading: it never mutates itself
// from order submission (spec 4.F's Ownership rule — Manager submits
// orders but only broker-confirmed reconciliation changes what the
// engine believes it holds). Add/Remove/UpdatePrice are no-ops;
// Reconcile is the only way its snapshot changes.
type Live struct {
	b       broker.Broker
	assets  map[string]*models.Position
	value   float64
}

// NewLive constructs a Live ledger backed by b, empty until the first
// Reconcile call.
func NewLive(b broker.Broker) *Live {
	return &Live{b: b, assets: make(map[string]*models.Position)}
}

// Add is a no-op: live positions only change via Reconcile.
func (l *Live) Add(string, float64, float64, float64, float64, string, float64, time.Time) {}

// Remove is a no-op: live positions only change via Reconcile.
func (l *Live) Remove(string) {}

// UpdatePrice is a no-op: Reconcile refreshes market value from the
// broker's own last-trade price.
func (l *Live) UpdatePrice(string, float64) {}

// Get returns a symbol's cached position and whether it is held.
func (l *Live) Get(symbol string) (*models.Position, bool) {
	p, ok := l.assets[symbol]
	return p, ok
}

// All returns the cached position table.
func (l *Live) All() map[string]*models.Position {
	return l.assets
}

// Value returns the aggregate market value as of the last Reconcile.
func (l *Live) Value() float64 {
	return l.value
}

// Reconcile replaces the cached snapshot with the broker's current
// position list, preserving each symbol's locally-tracked stop state
// across the refresh since the broker has no notion of stops.
func (l *Live) Reconcile(ctx context.Context) error {
	reported, err := l.b.GetAllPositions(ctx)
	if err != nil {
		return fmt.Errorf("reconciling positions from broker: %w", err)
	}

	fresh := make(map[string]*models.Position, len(reported))
	var total float64
	for _, rp := range reported {
		stopValue, stopKey, stopTrailing := 0.0, "", 0.0
		if prev, ok := l.assets[rp.Symbol]; ok {
			stopValue, stopKey, stopTrailing = prev.StopValue, prev.StopKey, prev.StopTrailing
		}
		p := models.NewPosition(rp.Symbol, rp.Qty, rp.CurrentPrice, rp.Qty*rp.AvgEntryPrice, stopValue, stopKey, stopTrailing, time.Now())
		p.MarketValue = rp.MarketValue
		fresh[rp.Symbol] = p
		total += rp.MarketValue
	}

	l.assets = fresh
	l.value = total
	return nil
}
