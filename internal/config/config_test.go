package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExampleConfig(t *testing.T) {
	configPath := filepath.Join("..", "..", "config.yaml.example")
	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "backtest", cfg.Environment.Mode)
	assert.Equal(t, 0.05, cfg.Trading.OneTimeInvestRatio)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	assert.Error(t, err)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	var c Config
	c.Normalize()
	assert.Equal(t, defaultOneTimeInvestRatio, c.Trading.OneTimeInvestRatio)
	assert.Equal(t, defaultMaxBuyPerMin, c.Trading.MaxBuyPerMin)
	assert.Equal(t, defaultTrailing, c.Trading.Trailing)
	assert.Equal(t, defaultTrailingLive, c.Trading.TrailingLive)
	assert.Equal(t, []int{5, 20, 60, 120, 240, 480}, c.Strategy.SMA.Periods)
}

func TestValidateRejectsLiveWithoutAlpaca(t *testing.T) {
	c := Config{}
	c.Normalize()
	c.Environment.Mode = "live"
	c.Broker.Provider = "local"
	err := c.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsBadTradingWindow(t *testing.T) {
	c := Config{}
	c.Normalize()
	c.Broker.Provider = "local"
	c.Schedule.TradingStart = "16:00"
	c.Schedule.TradingEnd = "09:31"
	err := c.Validate()
	assert.Error(t, err)
}

func TestTrailingPctSwitchesOnMode(t *testing.T) {
	c := Config{}
	c.Normalize()
	assert.Equal(t, defaultTrailing, c.TrailingPct())
	c.Environment.Mode = "live"
	c.Broker.Provider = "alpaca"
	c.Broker.APIKeyID = "k"
	c.Broker.APISecret = "s"
	assert.Equal(t, defaultTrailingLive, c.TrailingPct())
}
