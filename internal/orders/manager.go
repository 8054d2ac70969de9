// Package orders implements the sell-first, buy-next order dispatch
// loop (spec section 4.H): for each tick's DecisionRecords, every
// symbol marked sell is closed before any symbol marked buy is opened,
// buys are dispatched in trading-value order up to a per-minute cap,
// and every buy is gated by an affordability and concentration check.
package orders

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/neuralprobe/d4/internal/broker"
	"github.com/neuralprobe/d4/internal/config"
	"github.com/neuralprobe/d4/internal/models"
	"github.com/neuralprobe/d4/internal/positions"
	"github.com/neuralprobe/d4/internal/retry"
)

// orderSubmitter is the order-placing capability Manager dispatches
// through: a broker directly in backtest/local mode, or a retrying
// wrapper around one in live mode, where transient network and
// rate-limit failures are routine.
type orderSubmitter interface {
	SubmitMarketOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error)
}

// Manager dispatches buy and sell orders against a broker, settling
// immediately in local mode and deferring to broker-confirmed
// reconciliation in live mode (spec section 4.F's Ownership rule: the
// strategy engine never mutates Positions directly, only Manager
// does, and only once an order is actually filled).
type Manager struct {
	broker    broker.Broker
	submitter orderSubmitter
	account   *positions.Account
	cfg       config.TradingConfig
	live      bool
	logger    *log.Logger
}

// New constructs an order manager. live selects whether buys/sells
// settle synchronously (local/backtest) or must wait for broker
// confirmation via reconciliation (live trading); live dispatch routes
// through a retry.Client so a transient broker error gets retried with
// backoff instead of dropping the order.
func New(b broker.Broker, account *positions.Account, cfg config.TradingConfig, live bool, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	var submitter orderSubmitter = b
	if live {
		submitter = retry.NewClient(b, logger, retry.DefaultConfig)
	}
	return &Manager{broker: b, submitter: submitter, account: account, cfg: cfg, live: live, logger: logger}
}

// Execute runs one tick's sell-then-buy pass over a set of
// DecisionRecords and returns the subset that actually resulted in a
// dispatched order, the slice spec section 4.H calls prophecy_history.
func (m *Manager) Execute(ctx context.Context, decisions []models.DecisionRecord) []models.DecisionRecord {
	var executed []models.DecisionRecord

	openOrders := m.openOrderSymbols(ctx)

	sellSymbols := make(map[string]bool)
	for _, d := range decisions {
		if !d.Sell {
			continue
		}
		sellSymbols[d.Symbol] = true
		if m.live && openOrders[d.Symbol] {
			continue
		}
		if m.sell(ctx, d) {
			executed = append(executed, d)
		}
	}

	var buys []models.DecisionRecord
	for _, d := range decisions {
		if d.Buy && !sellSymbols[d.Symbol] {
			buys = append(buys, d)
		}
	}
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].TradingValue > buys[j].TradingValue })

	buyCount := 0
	for _, d := range buys {
		if buyCount >= m.cfg.MaxBuyPerMin {
			break
		}
		if !m.isAffordable(d.Symbol, d.Price) {
			continue
		}
		if m.live && openOrders[d.Symbol] {
			continue
		}
		if m.buy(ctx, d) {
			executed = append(executed, d)
			buyCount++
		}
	}

	return executed
}

func (m *Manager) openOrderSymbols(ctx context.Context) map[string]bool {
	set := make(map[string]bool)
	if !m.live {
		return set
	}
	open, err := m.broker.GetOpenOrders(ctx)
	if err != nil {
		m.logger.Printf("fetching open orders: %v", err)
		return set
	}
	for _, o := range open {
		set[o.Symbol] = true
	}
	return set
}

// isAffordable implements spec section 4.H's concentration and cash
// gate: a symbol already over the per-asset concentration cap cannot
// be added to, and cash must cover at least two round-trip shares at
// the quoted price.
func (m *Manager) isAffordable(symbol string, price float64) bool {
	if pos, ok := m.account.Positions().Get(symbol); ok {
		total := m.account.TotalValue()
		if total > 0 && pos.MarketValue/total > m.cfg.MaxRatioPerAsset {
			return false
		}
	}
	return m.account.Cash() >= price*2.0
}

// qty implements spec section 4.H's position sizing: the lesser of
// one_time_invest_ratio of total account value and all available
// cash, floored to a whole share.
func (m *Manager) qty(price float64) float64 {
	if price <= 0 {
		return 0
	}
	oneTimeInvest := math.Floor(m.account.TotalValue() * m.cfg.OneTimeInvestRatio)
	byInvest := math.Floor(oneTimeInvest / price)
	byCash := math.Floor(m.account.Cash() / price)
	q := math.Min(byInvest, byCash)
	if q < 0 {
		q = 0
	}
	return math.Floor(q)
}

func (m *Manager) buy(ctx context.Context, d models.DecisionRecord) bool {
	qty := m.qty(d.Price)
	if qty == 0 {
		return false
	}
	cost := d.Price * qty

	clientID := fmt.Sprintf("buy-%s-%d", d.Symbol, d.Timestamp.UnixNano())
	if _, err := m.submitter.SubmitMarketOrder(ctx, broker.OrderRequest{
		Symbol: d.Symbol, Side: broker.Buy, Qty: qty, ClientOrderID: clientID,
	}); err != nil {
		m.logger.Printf("buy order for %s failed: %v", d.Symbol, err)
		return false
	}

	if !m.live {
		m.account.Positions().Add(d.Symbol, qty, d.Price, cost, d.StopValue, d.StopKey, d.StopTrailing, d.Timestamp)
		m.account.Debit(cost)
	}
	return true
}

func (m *Manager) sell(ctx context.Context, d models.DecisionRecord) bool {
	pos, ok := m.account.Positions().Get(d.Symbol)
	if !ok {
		return false
	}

	clientID := fmt.Sprintf("sell-%s-%d", d.Symbol, d.Timestamp.UnixNano())
	if _, err := m.submitter.SubmitMarketOrder(ctx, broker.OrderRequest{
		Symbol: d.Symbol, Side: broker.Sell, Qty: pos.Quantity, ClientOrderID: clientID,
	}); err != nil {
		m.logger.Printf("sell order for %s failed: %v", d.Symbol, err)
		return false
	}

	if !m.live {
		m.account.Credit(pos.MarketValue)
		m.account.Positions().Remove(d.Symbol)
	}
	return true
}
