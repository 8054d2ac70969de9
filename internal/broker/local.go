package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Local simulates a brokerage for backtests and paper runs: every
// order fills instantly at the last price SetPrice recorded for its
// symbol, matching spec section 4.H's "local mode settles immediately."
type Local struct {
	mu        sync.Mutex
	cash      float64
	prices    map[string]float64
	positions map[string]*Position
	orders    map[string]Order
}

// NewLocal constructs a Local broker with a starting cash balance.
func NewLocal(startingCash float64) *Local {
	return &Local{
		cash:      startingCash,
		prices:    make(map[string]float64),
		positions: make(map[string]*Position),
		orders:    make(map[string]Order),
	}
}

// SetPrice records the latest known price for a symbol; subsequent
// market orders against it fill at this price.
func (l *Local) SetPrice(symbol string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prices[symbol] = price
	if p, ok := l.positions[symbol]; ok {
		p.CurrentPrice = price
		p.MarketValue = price * p.Qty
	}
}

// GetAllPositions returns every currently-held simulated position.
func (l *Local) GetAllPositions(_ context.Context) ([]Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out, nil
}

// GetAccount returns simulated cash and total portfolio value.
func (l *Local) GetAccount(_ context.Context) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := l.cash
	for _, p := range l.positions {
		total += p.MarketValue
	}
	return Account{Cash: l.cash, PortfolioValue: total}, nil
}

// SubmitMarketOrder fills immediately at the last recorded price for
// the symbol, mutating the simulated cash and position tables.
func (l *Local) SubmitMarketOrder(_ context.Context, req OrderRequest) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	price, ok := l.prices[req.Symbol]
	if !ok {
		return Order{}, fmt.Errorf("no known price for %s, cannot simulate fill", req.Symbol)
	}

	notional := price * req.Qty
	if req.Side == Buy {
		l.cash -= notional
		p, ok := l.positions[req.Symbol]
		if !ok {
			l.positions[req.Symbol] = &Position{Symbol: req.Symbol, Qty: req.Qty, AvgEntryPrice: price, MarketValue: notional, CurrentPrice: price}
		} else {
			totalCost := p.AvgEntryPrice*p.Qty + notional
			p.Qty += req.Qty
			p.AvgEntryPrice = totalCost / p.Qty
			p.CurrentPrice = price
			p.MarketValue = price * p.Qty
		}
	} else {
		l.cash += notional
		if p, ok := l.positions[req.Symbol]; ok {
			p.Qty -= req.Qty
			if p.Qty <= 0 {
				delete(l.positions, req.Symbol)
			} else {
				p.MarketValue = price * p.Qty
			}
		}
	}

	id := uuid.NewString()
	ord := Order{
		ID:             id,
		ClientOrderID:  req.ClientOrderID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Status:         StatusFilled,
		Qty:            req.Qty,
		FilledQty:      req.Qty,
		FilledAvgPrice: price,
		SubmittedAt:    time.Now(),
		FilledAt:       time.Now(),
	}
	l.orders[req.ClientOrderID] = ord
	return ord, nil
}

// GetOrderByClientID looks up a previously submitted order.
func (l *Local) GetOrderByClientID(_ context.Context, clientOrderID string) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ord, ok := l.orders[clientOrderID]
	if !ok {
		return Order{}, fmt.Errorf("no order with client id %s", clientOrderID)
	}
	return ord, nil
}

// GetOpenOrders always returns empty: the Local broker fills
// synchronously, so no order is ever left open.
func (l *Local) GetOpenOrders(_ context.Context) ([]Order, error) {
	return nil, nil
}

// CancelOrders is a no-op: there is nothing open to cancel.
func (l *Local) CancelOrders(_ context.Context) error {
	return nil
}
