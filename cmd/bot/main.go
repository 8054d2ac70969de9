// Package main provides the entry point for the equities trading engine.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/neuralprobe/d4/internal/broker"
	"github.com/neuralprobe/d4/internal/calendar"
	"github.com/neuralprobe/d4/internal/clock"
	"github.com/neuralprobe/d4/internal/config"
	"github.com/neuralprobe/d4/internal/dashboard"
	"github.com/neuralprobe/d4/internal/engine"
	"github.com/neuralprobe/d4/internal/marketdata"
	"github.com/neuralprobe/d4/internal/metrics"
	"github.com/neuralprobe/d4/internal/storage"
	"github.com/neuralprobe/d4/internal/universe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	var backtestStart, backtestEnd string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&backtestStart, "start", "", "Backtest start (RFC3339); required in backtest mode")
	flag.StringVar(&backtestEnd, "end", "", "Backtest end (RFC3339); required in backtest mode")
	flag.Parse()

	logger := log.New(os.Stdout, "[D4] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Printf("failed to load config: %v", err)
		return 1
	}

	logger.Printf("starting engine in %s mode", cfg.Environment.Mode)
	if cfg.IsLive() && os.Getenv("D4_SKIP_LIVE_WAIT") != "1" {
		logger.Println("LIVE TRADING MODE - real money at risk; waiting 10s to confirm (set D4_SKIP_LIVE_WAIT=1 to skip)")
		time.Sleep(10 * time.Second)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Printf("failed to resolve trading timezone: %v", err)
		return 1
	}

	deps, err := buildDeps(cfg, loc, logger)
	if err != nil {
		logger.Printf("failed to initialize dependencies: %v", err)
		return 1
	}

	var dashServer *dashboard.Server
	if cfg.Dashboard.Enabled {
		dashLogger := logrus.New()
		dashLogger.SetOutput(os.Stdout)
		if cfg.IsLive() {
			dashLogger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			dashLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
		if lvl, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
			dashLogger.SetLevel(lvl)
		} else {
			dashLogger.SetLevel(logrus.InfoLevel)
		}
		dashServer = dashboard.NewServer(dashboard.Config{
			Port:      cfg.Dashboard.Port,
			AuthToken: cfg.Dashboard.AuthToken,
		}, deps.Store, deps.Broker, dashLogger)
		logger.Printf("dashboard enabled at http://0.0.0.0:%d", cfg.Dashboard.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("shutdown signal received, stopping engine...")
		cancel()
	}()

	if dashServer != nil {
		go func() {
			if err := dashServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("dashboard server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := dashServer.Shutdown(shutdownCtx); err != nil {
				logger.Printf("error shutting down dashboard: %v", err)
			}
		}()
	}

	symbols, err := deps.Universe.Resolve(ctx)
	if err != nil {
		logger.Printf("failed to resolve symbol universe: %v", err)
		return 1
	}
	logger.Printf("trading %d symbols", len(symbols))

	var c *clock.Clock
	if cfg.IsLive() {
		now := time.Now().In(loc)
		c = clock.New(clock.Live, now, now.AddDate(1, 0, 0), loc, deps.Calendar,
			deps.StartHour, deps.StartMin, deps.EndHour, deps.EndMin)
	} else {
		start, end, perr := parseBacktestWindow(backtestStart, backtestEnd, loc)
		if perr != nil {
			logger.Printf("invalid backtest window: %v", perr)
			return 1
		}
		c = clock.New(clock.Backtest, start, end, loc, deps.Calendar,
			deps.StartHour, deps.StartMin, deps.EndHour, deps.EndMin)
	}

	eng, err := engine.New(cfg, engine.Deps{
		Clock:      c,
		MarketData: deps.MarketData,
		Broker:     deps.Broker,
		Store:      deps.Store,
		Metrics:    deps.Metrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Printf("failed to construct engine: %v", err)
		return 1
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Printf("error flushing report sinks: %v", err)
		}
	}()

	if err := seedHistory(ctx, eng, deps.MarketData, symbols, cfg, c.Current()); err != nil {
		logger.Printf("failed to seed history: %v", err)
		return 1
	}

	if cfg.IsLive() {
		runLive(ctx, eng, logger)
	} else {
		if err := eng.RunBacktest(ctx); err != nil {
			logger.Printf("backtest run failed: %v", err)
			return 1
		}
	}

	logger.Println("engine stopped")
	return 0
}

// engineDeps bundles the collaborators wired from config before the
// engine and universe resolver are constructed.
type engineDeps struct {
	Broker     broker.Broker
	MarketData marketdata.Provider
	Calendar   clock.CalendarProvider
	Store      storage.Interface
	Metrics    *metrics.Registry
	Universe   universe.Resolver

	StartHour, StartMin, EndHour, EndMin int
}

func buildDeps(cfg *config.Config, loc *time.Location, logger *log.Logger) (*engineDeps, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	var b broker.Broker
	var md marketdata.Provider
	var cal clock.CalendarProvider

	switch cfg.Broker.Provider {
	case "alpaca":
		logger.Println("wiring alpaca broker, market data, and calendar clients")
		b = broker.NewAlpaca("https://api.alpaca.markets", cfg.Broker.APIKeyID, cfg.Broker.APISecret, httpClient, 5)
		md = marketdata.NewAlpacaProvider("https://data.alpaca.markets", cfg.Broker.APIKeyID, cfg.Broker.APISecret, httpClient)
		cal = calendar.NewAlpaca("https://api.alpaca.markets", cfg.Broker.APIKeyID, cfg.Broker.APISecret, httpClient)
	default:
		logger.Println("wiring local paper broker and fixture market data")
		b = broker.NewLocal(10000)
		md = marketdata.NewLocalProvider()
		cal = calendar.Weekday{}
	}

	store, err := storage.NewJSONStorage(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	var uni universe.Resolver
	if len(cfg.Universe.Symbols) > 0 {
		uni = universe.Static{Symbols: cfg.Universe.Symbols}
	} else {
		uni = universe.Ranked{
			Provider:   md,
			Candidates: defaultCandidates(),
			TopN:       cfg.Universe.TopN,
			AsOf:       time.Now().In(loc),
			Workers:    cfg.Trading.MaxWorkers,
		}
	}

	startHour, startMin, endHour, endMin, err := cfg.TradingWindow()
	if err != nil {
		return nil, err
	}

	return &engineDeps{
		Broker:     b,
		MarketData: md,
		Calendar:   cal,
		Store:      store,
		Metrics:    reg,
		Universe:   uni,
		StartHour:  startHour, StartMin: startMin, EndHour: endHour, EndMin: endMin,
	}, nil
}

// defaultCandidates lists the ranking universe's search space when no
// static override is configured. A production deployment would source
// this from a constituent list (e.g. an index membership feed); absent
// one in this corpus, a fixed liquid-symbol seed keeps Ranked exercised.
func defaultCandidates() []string {
	return []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META", "NVDA", "TSLA", "SPY", "QQQ", "AMD"}
}

func parseBacktestWindow(startStr, endStr string, loc *time.Location) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errBacktestWindowRequired
	}
	start, err := time.ParseInLocation(time.RFC3339, startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation(time.RFC3339, endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

var errBacktestWindowRequired = errors.New("backtest mode requires -start and -end")

// seedHistory bulk-fetches each symbol's warm-up window before the loop
// starts so the first tick's indicators are not computed over empty
// history (spec 4.I: TradingLoop startup).
func seedHistory(ctx context.Context, eng *engine.Engine, md marketdata.Provider, symbols []string, cfg *config.Config, asOf time.Time) error {
	period := time.Duration(cfg.History.PeriodHours) * time.Hour
	histories, err := marketdata.FetchHistory(ctx, md, symbols, asOf, period, cfg.History.MinNumBars, cfg.Trading.MaxWorkers)
	if err != nil {
		return err
	}
	for symbol, h := range histories {
		eng.Seed(symbol, h.Bars)
	}
	return nil
}

// runLive drives the engine on a one-minute wall-clock cadence until ctx
// is cancelled (spec 4.I: Live mode). The corpus carries no cron-parsing
// library, so schedule.live_tick_cron's documented default ("fire at :05
// of every minute") is honored by waiting for the next :05 second mark
// and then driving a plain one-minute time.Ticker, rather than a parsed
// cron expression.
func runLive(ctx context.Context, eng *engine.Engine, logger *log.Logger) {
	now := time.Now()
	next := now.Truncate(time.Minute).Add(5 * time.Second)
	if !next.After(now) {
		next = next.Add(time.Minute)
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(next.Sub(now)):
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	eng.RunLive(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eng.RunLive(ctx)
		}
	}
}
