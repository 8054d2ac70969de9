// Package engine composes Clock, MarketData, BarFusion, StrategyEngine
// and OrderManager into the minute-by-minute TradingLoop spec section
// 4.I describes, in both backtest and live scheduling modes.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neuralprobe/d4/internal/barfusion"
	"github.com/neuralprobe/d4/internal/broker"
	"github.com/neuralprobe/d4/internal/clock"
	"github.com/neuralprobe/d4/internal/config"
	"github.com/neuralprobe/d4/internal/marketdata"
	"github.com/neuralprobe/d4/internal/metrics"
	"github.com/neuralprobe/d4/internal/models"
	"github.com/neuralprobe/d4/internal/orders"
	"github.com/neuralprobe/d4/internal/positions"
	"github.com/neuralprobe/d4/internal/report"
	"github.com/neuralprobe/d4/internal/storage"
	"github.com/neuralprobe/d4/internal/strategy"
)

// brokerCashSource adapts a broker.Broker to positions.CashSource.
type brokerCashSource struct{ b broker.Broker }

func (s brokerCashSource) GetCash(ctx context.Context) (float64, error) {
	acct, err := s.b.GetAccount(ctx)
	if err != nil {
		return 0, err
	}
	return acct.Cash, nil
}

// Engine is the single value that owns every collaborator the trading
// loop composes, explicitly wired rather than reached for through
// package-level state (Design Note: no globals).
type Engine struct {
	cfg *config.Config

	clock      *clock.Clock
	marketData marketdata.Provider
	fuser      *barfusion.Fuser
	strategy   *strategy.Engine
	orders     *orders.Manager
	account    *positions.Account
	liveLedger *positions.Live
	store      storage.Interface
	metrics    *metrics.Registry

	sinks         *report.SinkRegistry
	accountWriter *report.Writer
	orderWriter   *report.Writer
	prophecyWriter *report.Writer
	traderWriter  *report.Writer

	logger *log.Logger
	live   bool
}

// Deps bundles every externally-constructed collaborator an Engine
// needs, so wiring choices (which broker, which provider, which
// calendar) stay in cmd/bot rather than inside this package.
type Deps struct {
	Clock      *clock.Clock
	MarketData marketdata.Provider
	Broker     broker.Broker
	Store      storage.Interface
	Metrics    *metrics.Registry
	Logger     *log.Logger
}

// New builds an Engine from cfg and its wired collaborators.
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	var account *positions.Account
	var liveLedger *positions.Live
	if cfg.IsLive() {
		liveLedger = positions.NewLive(deps.Broker)
		account = positions.NewLiveAccount(brokerCashSource{deps.Broker}, liveLedger)
	} else {
		account = positions.NewLocalAccount(deps.Store.GetCash())
		for symbol, pos := range deps.Store.GetPositions() {
			account.Positions().Add(symbol, pos.Quantity, pos.LastPrice, pos.CostBasis, pos.StopValue, pos.StopKey, pos.StopTrailing, pos.FirstAcquired)
		}
	}

	strategyEngine := strategy.New(cfg.Strategy, cfg.TrailingPct(), logger)
	orderManager := orders.New(deps.Broker, account, cfg.Trading, cfg.IsLive(), logger)

	sinks := report.NewSinkRegistry()
	now := time.Now()
	accountWriter, err := report.NewWriter(sinks, cfg.Report.Dir, report.FileName(cfg.Report.Prefix, report.KindAccount, deps.Clock.Start(), deps.Clock.End(), now),
		[]string{"timestamp", "cash", "total_value", "open_positions"})
	if err != nil {
		return nil, err
	}
	orderWriter, err := report.NewWriter(sinks, cfg.Report.Dir, report.FileName(cfg.Report.Prefix, report.KindOrder, deps.Clock.Start(), deps.Clock.End(), now),
		[]string{"timestamp", "symbol", "side", "qty", "price"})
	if err != nil {
		return nil, err
	}
	prophecyWriter, err := report.NewWriter(sinks, cfg.Report.Dir, report.FileName(cfg.Report.Prefix, report.KindProphecy, deps.Clock.Start(), deps.Clock.End(), now),
		[]string{"timestamp", "symbol", "buy", "sell", "buy_reason", "sell_reason", "price"})
	if err != nil {
		return nil, err
	}
	traderWriter, err := report.NewWriter(sinks, cfg.Report.Dir, report.FileName(cfg.Report.Prefix, report.KindTrader, deps.Clock.Start(), deps.Clock.End(), now),
		[]string{"timestamp", "symbol", "side", "qty", "price"})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:            cfg,
		clock:          deps.Clock,
		marketData:     deps.MarketData,
		fuser:          barfusion.New(models.DefaultHistoryWindow),
		strategy:       strategyEngine,
		orders:         orderManager,
		account:        account,
		liveLedger:     liveLedger,
		store:          deps.Store,
		metrics:        deps.Metrics,
		sinks:          sinks,
		accountWriter:  accountWriter,
		orderWriter:    orderWriter,
		prophecyWriter: prophecyWriter,
		traderWriter:   traderWriter,
		logger:         logger,
		live:           cfg.IsLive(),
	}, nil
}

// Seed installs a symbol universe's bulk-fetched hourly history before
// the loop starts running.
func (e *Engine) Seed(symbol string, bars []models.Bar) {
	e.fuser.Seed(symbol, bars)
}

// Close flushes every report sink; call once at shutdown.
func (e *Engine) Close() error {
	return e.sinks.CloseAll()
}

// RunBacktest iterates the clock from its current position to its end,
// one minute at a time, running the pipeline on every open minute
// (spec 4.I: Backtest mode).
func (e *Engine) RunBacktest(ctx context.Context) error {
	for !e.clock.Done() {
		open, err := e.clock.IsMarketOpen()
		if err != nil {
			return fmt.Errorf("checking market calendar: %w", err)
		}
		if open {
			if err := e.tick(ctx); err != nil {
				e.logger.Printf("tick at %s failed: %v", e.clock.Current(), err)
			}
		}
		e.clock.Tick()
	}
	return e.writeAccountSnapshot(ctx)
}

// RunLive drives the loop from a minute-scheduler callback: each
// invocation refreshes current time, runs one tick, refreshes the
// account, and writes a snapshot row. Exceptions inside a tick are
// logged, not propagated (spec 4.I: Live mode).
func (e *Engine) RunLive(ctx context.Context) {
	e.clock.Sync()
	if err := e.tick(ctx); err != nil {
		e.logger.Printf("live tick at %s failed: %v", e.clock.Current(), err)
		return
	}
	if err := e.account.Refresh(ctx); err != nil {
		e.logger.Printf("account refresh failed: %v", err)
	}
	if e.liveLedger != nil {
		if err := e.liveLedger.Reconcile(ctx); err != nil {
			e.logger.Printf("position reconciliation failed: %v", err)
		}
	}
	if err := e.writeAccountSnapshot(ctx); err != nil {
		e.logger.Printf("writing account snapshot failed: %v", err)
	}
}

// tick runs one full pass: fuse the latest minute bars, evaluate every
// tracked symbol concurrently (bounded worker pool), then dispatch
// sell/buy orders serially (spec section 5's single-writer ordering
// guarantee).
func (e *Engine) tick(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ObserveTick(time.Since(start))
		}
	}()

	symbols := e.fuser.Symbols()
	recent, err := marketdata.FetchRecent(ctx, e.marketData, symbols, e.clock.Current(), e.cfg.Trading.MaxWorkers)
	if err != nil {
		return fmt.Errorf("fetching recent bars: %w", err)
	}

	decisions := make([]models.DecisionRecord, len(symbols))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Trading.MaxWorkers)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		bar, ok := recent[symbol]
		if !ok {
			continue
		}
		g.Go(func() error {
			e.fuser.Fuse(symbol, bar)
			hist := e.fuser.History(symbol)
			pos, held := e.account.Positions().Get(symbol)
			rec := e.strategy.Evaluate(symbol, hist, bar, pos)
			if held {
				// Ratchet the held position's stop state every tick
				// (spec 4.E): stop_value and the trailing floor only
				// ever rise, never fall back with a worse quote.
				pos.RaiseStop(rec.StopValue, rec.StopKey)
				pos.RaiseTrailing(rec.StopTrailing)
			}
			decisions[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("evaluating symbols: %w", err)
	}

	compact := make([]models.DecisionRecord, 0, len(decisions))
	for _, d := range decisions {
		if d.Symbol == "" {
			continue
		}
		compact = append(compact, d)
		e.logProphecy(d)
	}

	e.fuser.CompactIfDue(e.clock.Current())

	executed := e.orders.Execute(ctx, compact)
	for _, d := range executed {
		e.logOrder(d)
		if e.metrics != nil {
			side := "sell"
			if d.Buy {
				side = "buy"
			}
			e.metrics.RecordOrder(side)
		}
	}
	if e.metrics != nil {
		buy, sell := false, false
		for _, d := range compact {
			buy = buy || d.Buy
			sell = sell || d.Sell
		}
		e.metrics.RecordDecision(buy, sell)
	}

	if !e.live {
		for symbol, bar := range recent {
			e.account.Positions().UpdatePrice(symbol, bar.Close)
		}
		positionsSnapshot := make(map[string]*models.Position, len(e.account.Positions().All()))
		for k, v := range e.account.Positions().All() {
			cp := *v
			positionsSnapshot[k] = &cp
		}
		if err := e.store.SaveSnapshot(e.account.Cash(), positionsSnapshot, nil); err != nil {
			e.logger.Printf("saving snapshot: %v", err)
		}
	}
	if err := e.store.AppendHistory(executed); err != nil {
		e.logger.Printf("appending decision history: %v", err)
	}

	return nil
}

func (e *Engine) logProphecy(d models.DecisionRecord) {
	if err := e.prophecyWriter.WriteRow([]string{
		d.Timestamp.Format(time.RFC3339), d.Symbol,
		boolStr(d.Buy), boolStr(d.Sell), d.BuyReason, d.SellReason,
		fmt.Sprintf("%.4f", d.Price),
	}); err != nil {
		e.logger.Printf("writing prophecy row for %s: %v", d.Symbol, err)
	}
}

func (e *Engine) logOrder(d models.DecisionRecord) {
	side := "sell"
	qty := 0.0
	if pos, ok := e.account.Positions().Get(d.Symbol); ok {
		qty = pos.Quantity
	}
	if d.Buy {
		side = "buy"
	}
	row := []string{d.Timestamp.Format(time.RFC3339), d.Symbol, side, fmt.Sprintf("%.4f", qty), fmt.Sprintf("%.4f", d.Price)}
	if err := e.orderWriter.WriteRow(row); err != nil {
		e.logger.Printf("writing order row for %s: %v", d.Symbol, err)
	}
	if err := e.traderWriter.WriteRow(row); err != nil {
		e.logger.Printf("writing trader row for %s: %v", d.Symbol, err)
	}
}

func (e *Engine) writeAccountSnapshot(ctx context.Context) error {
	if e.metrics != nil {
		e.metrics.SetAccountState(e.account.Cash(), e.account.TotalValue(), len(e.account.Positions().All()))
	}
	row := []string{
		e.clock.Current().Format(time.RFC3339),
		fmt.Sprintf("%.4f", e.account.Cash()),
		fmt.Sprintf("%.4f", e.account.TotalValue()),
		fmt.Sprintf("%d", len(e.account.Positions().All())),
	}
	return e.accountWriter.WriteRow(row)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
