package positions

import (
	"context"
	"fmt"

	"github.com/neuralprobe/d4/internal/models"
)

// CashSource refreshes available cash from an external source (the
// live broker). Local mode never needs one: cash is mutated directly
// by order settlement.
type CashSource interface {
	GetCash(ctx context.Context) (float64, error)
}

// Account owns cash plus the positions ledger behind it (spec 4.G).
// Local mode mutates cash synchronously as orders settle; live mode
// refreshes cash from the broker each tick and treats it as
// authoritative.
type Account struct {
	cash   models.Money
	ledger Ledger
	live   bool
	source CashSource
}

// NewLocalAccount constructs an Account that owns its own cash balance,
// mutated directly by order settlement.
func NewLocalAccount(startingCash float64) *Account {
	return &Account{cash: models.NewMoney(startingCash), ledger: NewLocal()}
}

// NewLiveAccount constructs an Account whose cash is refreshed from a
// broker (CashSource) every Refresh call rather than mutated locally.
func NewLiveAccount(source CashSource, ledger Ledger) *Account {
	return &Account{ledger: ledger, live: true, source: source}
}

// Refresh re-reads cash from the broker in live mode; a no-op locally.
func (a *Account) Refresh(ctx context.Context) error {
	if !a.live {
		return nil
	}
	cash, err := a.source.GetCash(ctx)
	if err != nil {
		return fmt.Errorf("refresh account cash: %w", err)
	}
	a.cash = models.NewMoney(cash)
	return nil
}

// Cash returns the current cash balance.
func (a *Account) Cash() float64 {
	return a.cash.Float64()
}

// Positions returns the underlying position ledger.
func (a *Account) Positions() Ledger {
	return a.ledger
}

// TotalValue returns cash plus the aggregate market value of every
// held position.
func (a *Account) TotalValue() float64 {
	return a.cash.Float64() + a.ledger.Value()
}

// Debit reduces cash by amount; used when a buy order settles locally.
// It is a no-op in live mode, where cash only moves via Refresh.
func (a *Account) Debit(amount float64) {
	if a.live {
		return
	}
	a.cash = a.cash.Sub(amount)
}

// Credit increases cash by amount; used when a sell order settles
// locally. It is a no-op in live mode.
func (a *Account) Credit(amount float64) {
	if a.live {
		return
	}
	a.cash = a.cash.Add(amount)
}
