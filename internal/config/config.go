// Package config provides configuration management for the trading engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Defaults mirrored from spec section 6.
const (
	defaultOneTimeInvestRatio = 0.05
	defaultMaxBuyPerMin       = 2
	defaultMaxRatioPerAsset   = 0.10
	defaultTrailing           = 0.01
	defaultTrailingLive       = 0.002
	defaultHistoryPeriodHours = 2000
	defaultMinNumBars         = 480
	defaultMaxWorkers         = 30
)

// Config represents the complete engine configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Universe    UniverseConfig    `yaml:"universe"`
	Trading     TradingConfig     `yaml:"trading"`
	History     HistoryConfig     `yaml:"history"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Storage     StorageConfig     `yaml:"storage"`
	Report      ReportConfig      `yaml:"report"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig selects the run mode and logging verbosity.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // backtest | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BrokerConfig holds live-broker credentials and connection settings.
type BrokerConfig struct {
	Provider  string `yaml:"provider"` // alpaca | local
	APIKeyID  string `yaml:"api_key_id"`
	APISecret string `yaml:"api_secret"`
	Paper     bool   `yaml:"paper"`
}

// ScheduleConfig defines the market window and calendar.
type ScheduleConfig struct {
	Timezone      string `yaml:"timezone"`
	TradingStart  string `yaml:"trading_start"` // "HH:MM", inclusive
	TradingEnd    string `yaml:"trading_end"`   // "HH:MM", inclusive
	LiveTickCron  string `yaml:"live_tick_cron"`
}

// UniverseConfig controls symbol-universe discovery.
type UniverseConfig struct {
	TopN      int      `yaml:"top_n"`
	Symbols   []string `yaml:"symbols"` // static override; empty means use ranked discovery
}

// TradingConfig carries the OrderManager's sizing and concentration knobs.
type TradingConfig struct {
	OneTimeInvestRatio float64 `yaml:"one_time_invest_ratio"`
	MaxBuyPerMin       int     `yaml:"max_buy_per_min"`
	MaxRatioPerAsset   float64 `yaml:"max_ratio_per_asset"`
	Trailing           float64 `yaml:"trailing"`
	TrailingLive       float64 `yaml:"trailing_live"`
	MaxWorkers         int     `yaml:"max_workers"`
}

// HistoryConfig controls MarketData/BarFusion window sizing.
type HistoryConfig struct {
	PeriodHours int `yaml:"period_hours"`
	MinNumBars  int `yaml:"min_num_bars"`
}

// StrategyConfig carries the indicator parameterizations from spec 4.D/4.E.
type StrategyConfig struct {
	BB1 BandConfig    `yaml:"bb1"`
	BB2 BandConfig    `yaml:"bb2"`
	RSI RSIConfig     `yaml:"rsi"`
	SMA SMAConfig     `yaml:"sma"`
	PO  POConfig      `yaml:"po"`
}

// BandConfig parameterizes one Bollinger Bands pass.
type BandConfig struct {
	Length    int     `yaml:"length"`
	Std       float64 `yaml:"std"`
	BuyMargin float64 `yaml:"buy_margin"`
}

// RSIConfig parameterizes the RSI divergence-hill check.
type RSIConfig struct {
	Length     int `yaml:"length"`
	HillWindow int `yaml:"hill_window"`
	Hills      int `yaml:"hills"`
}

// SMAConfig lists the SMA periods checked for alignment/breakthrough.
type SMAConfig struct {
	Periods []int   `yaml:"periods"`
	Margin  float64 `yaml:"margin"`
}

// POConfig parameterizes the Price Oscillator.
type POConfig struct {
	Length int `yaml:"length"`
}

// StorageConfig points at the JSON snapshot file.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ReportConfig controls CSV/Excel audit-trail output.
type ReportConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// DashboardConfig defines the web dashboard and metrics endpoint.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", configPath, err)
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", configPath, err)
	}

	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// resolveLocation returns the configured TZ or the NY fallback.
func (c *Config) resolveLocation() (*time.Location, error) {
	tz := c.Schedule.Timezone
	if strings.TrimSpace(tz) == "" {
		tz = "America/New_York"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Normalize fills every documented default from spec section 6.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Environment.Mode) == "" {
		c.Environment.Mode = "backtest"
	}
	if strings.TrimSpace(c.Environment.LogLevel) == "" {
		c.Environment.LogLevel = "info"
	}
	if strings.TrimSpace(c.Broker.Provider) == "" {
		c.Broker.Provider = "local"
	}
	if strings.TrimSpace(c.Schedule.Timezone) == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if strings.TrimSpace(c.Schedule.TradingStart) == "" {
		c.Schedule.TradingStart = "09:31"
	}
	if strings.TrimSpace(c.Schedule.TradingEnd) == "" {
		c.Schedule.TradingEnd = "15:59"
	}
	if strings.TrimSpace(c.Schedule.LiveTickCron) == "" {
		c.Schedule.LiveTickCron = "5 * * * * *" // fire at :05 of every minute
	}
	if c.Universe.TopN == 0 {
		c.Universe.TopN = 50
	}
	if c.Trading.OneTimeInvestRatio == 0 {
		c.Trading.OneTimeInvestRatio = defaultOneTimeInvestRatio
	}
	if c.Trading.MaxBuyPerMin == 0 {
		c.Trading.MaxBuyPerMin = defaultMaxBuyPerMin
	}
	if c.Trading.MaxRatioPerAsset == 0 {
		c.Trading.MaxRatioPerAsset = defaultMaxRatioPerAsset
	}
	if c.Trading.Trailing == 0 {
		c.Trading.Trailing = defaultTrailing
	}
	if c.Trading.TrailingLive == 0 {
		c.Trading.TrailingLive = defaultTrailingLive
	}
	if c.Trading.MaxWorkers == 0 {
		c.Trading.MaxWorkers = defaultMaxWorkers
	}
	if c.History.PeriodHours == 0 {
		c.History.PeriodHours = defaultHistoryPeriodHours
	}
	if c.History.MinNumBars == 0 {
		c.History.MinNumBars = defaultMinNumBars
	}
	if c.Strategy.BB1.Length == 0 {
		c.Strategy.BB1 = BandConfig{Length: 20, Std: 2, BuyMargin: 0.01}
	}
	if c.Strategy.BB2.Length == 0 {
		c.Strategy.BB2 = BandConfig{Length: 4, Std: 4, BuyMargin: 0.01}
	}
	if c.Strategy.RSI.Length == 0 {
		c.Strategy.RSI = RSIConfig{Length: 14, HillWindow: 32, Hills: 3}
	}
	if len(c.Strategy.SMA.Periods) == 0 {
		c.Strategy.SMA.Periods = []int{5, 20, 60, 120, 240, 480}
	}
	if c.Strategy.SMA.Margin == 0 {
		c.Strategy.SMA.Margin = 0.01
	}
	if c.Strategy.PO.Length == 0 {
		c.Strategy.PO.Length = 14
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "data/engine_state.json"
	}
	if strings.TrimSpace(c.Report.Dir) == "" {
		c.Report.Dir = "reports"
	}
	if strings.TrimSpace(c.Report.Prefix) == "" {
		c.Report.Prefix = "d4"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 9847
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.Environment.Mode != "backtest" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'backtest' or 'live'")
	}
	switch strings.ToLower(c.Environment.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of: debug, info, warn, error")
	}

	switch strings.ToLower(c.Broker.Provider) {
	case "alpaca", "local":
	default:
		return fmt.Errorf("broker.provider must be 'alpaca' or 'local'")
	}
	if c.Environment.Mode == "live" && strings.ToLower(c.Broker.Provider) != "alpaca" {
		return fmt.Errorf("live mode requires broker.provider 'alpaca'")
	}
	if strings.ToLower(c.Broker.Provider) == "alpaca" {
		if strings.TrimSpace(c.Broker.APIKeyID) == "" || strings.TrimSpace(c.Broker.APISecret) == "" {
			return fmt.Errorf("broker.api_key_id and broker.api_secret are required for the alpaca provider")
		}
	}

	if c.Universe.TopN <= 0 {
		return fmt.Errorf("universe.top_n must be > 0")
	}

	if c.Trading.OneTimeInvestRatio <= 0 || c.Trading.OneTimeInvestRatio > 1 {
		return fmt.Errorf("trading.one_time_invest_ratio must be in (0,1]")
	}
	if c.Trading.MaxBuyPerMin <= 0 {
		return fmt.Errorf("trading.max_buy_per_min must be > 0")
	}
	if c.Trading.MaxRatioPerAsset <= 0 || c.Trading.MaxRatioPerAsset > 1 {
		return fmt.Errorf("trading.max_ratio_per_asset must be in (0,1]")
	}
	if c.Trading.Trailing <= 0 || c.Trading.Trailing >= 1 {
		return fmt.Errorf("trading.trailing must be in (0,1)")
	}
	if c.Trading.TrailingLive <= 0 || c.Trading.TrailingLive >= 1 {
		return fmt.Errorf("trading.trailing_live must be in (0,1)")
	}
	if c.Trading.MaxWorkers <= 0 || c.Trading.MaxWorkers > 30 {
		return fmt.Errorf("trading.max_workers must be in (0,30]")
	}

	if c.History.PeriodHours <= 0 {
		return fmt.Errorf("history.period_hours must be > 0")
	}
	if c.History.MinNumBars <= 0 || c.History.MinNumBars > c.History.PeriodHours {
		return fmt.Errorf("history.min_num_bars must be > 0 and <= history.period_hours")
	}

	if c.Strategy.BB1.Length <= 1 || c.Strategy.BB1.Std <= 0 {
		return fmt.Errorf("strategy.bb1 length/std must be positive")
	}
	if c.Strategy.BB2.Length <= 1 || c.Strategy.BB2.Std <= 0 {
		return fmt.Errorf("strategy.bb2 length/std must be positive")
	}
	if c.Strategy.RSI.Length <= 1 || c.Strategy.RSI.HillWindow <= 0 || c.Strategy.RSI.Hills <= 0 {
		return fmt.Errorf("strategy.rsi parameters must be positive")
	}
	if len(c.Strategy.SMA.Periods) == 0 {
		return fmt.Errorf("strategy.sma.periods must not be empty")
	}
	if c.Strategy.PO.Length <= 1 {
		return fmt.Errorf("strategy.po.length must be > 1")
	}

	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	if strings.TrimSpace(c.Report.Dir) == "" {
		return fmt.Errorf("report.dir is required")
	}

	if c.Dashboard.Enabled {
		if c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535 {
			return fmt.Errorf("dashboard.port must be between 1 and 65535")
		}
	}

	loc, err := c.resolveLocation()
	if err != nil {
		return fmt.Errorf("timezone resolution failed: %w", err)
	}
	s, err1 := time.ParseInLocation("15:04", c.Schedule.TradingStart, loc)
	e, err2 := time.ParseInLocation("15:04", c.Schedule.TradingEnd, loc)
	if err1 != nil || err2 != nil || !s.Before(e) {
		return fmt.Errorf("schedule trading window invalid (start/end parse/order)")
	}

	return nil
}

// IsLive reports whether the engine is configured against a live broker.
func (c *Config) IsLive() bool {
	return c.Environment.Mode == "live"
}

// TrailingPct returns the trailing percentage for the configured mode.
func (c *Config) TrailingPct() float64 {
	if c.IsLive() {
		return c.Trading.TrailingLive
	}
	return c.Trading.Trailing
}

// Location resolves the configured trading timezone.
func (c *Config) Location() (*time.Location, error) {
	return c.resolveLocation()
}

// TradingWindow returns today's trading window as hour/minute pairs.
func (c *Config) TradingWindow() (startHour, startMin, endHour, endMin int, err error) {
	loc, err := c.resolveLocation()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	s, err1 := time.ParseInLocation("15:04", c.Schedule.TradingStart, loc)
	e, err2 := time.ParseInLocation("15:04", c.Schedule.TradingEnd, loc)
	if err1 != nil || err2 != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid trading window: start=%v end=%v", err1, err2)
	}
	return s.Hour(), s.Minute(), e.Hour(), e.Minute(), nil
}
