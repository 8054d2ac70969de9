package orders

import (
	"context"
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/broker"
	"github.com/neuralprobe/d4/internal/config"
	"github.com/neuralprobe/d4/internal/models"
	"github.com/neuralprobe/d4/internal/positions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		OneTimeInvestRatio: 0.1,
		MaxBuyPerMin:       5,
		MaxRatioPerAsset:   0.25,
	}
}

func TestExecuteBuysWithinAffordabilityAndSizing(t *testing.T) {
	b := broker.NewLocal(10000)
	b.SetPrice("AAA", 100)
	acct := positions.NewLocalAccount(10000)

	m := New(b, acct, testTradingConfig(), false, nil)
	decisions := []models.DecisionRecord{
		{Symbol: "AAA", Price: 100, Buy: true, TradingValue: 5000, Timestamp: time.Now(), StopValue: 90},
	}

	executed := m.Execute(context.Background(), decisions)
	require.Len(t, executed, 1)

	pos, ok := acct.Positions().Get("AAA")
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.Quantity, "one_time_invest_ratio 0.1 of 10000 / price 100 = 10 shares")
	assert.Equal(t, 9000.0, acct.Cash())
}

func TestExecuteSkipsBuyWhenOverConcentrationCap(t *testing.T) {
	b := broker.NewLocal(10000)
	b.SetPrice("AAA", 100)
	acct := positions.NewLocalAccount(10000)
	acct.Positions().Add("AAA", 30, 100, 3000, 0, "", 0, time.Now())
	acct.Debit(3000)

	m := New(b, acct, testTradingConfig(), false, nil)
	decisions := []models.DecisionRecord{
		{Symbol: "AAA", Price: 100, Buy: true, TradingValue: 1000, Timestamp: time.Now()},
	}

	executed := m.Execute(context.Background(), decisions)
	assert.Empty(t, executed, "asset already over max_ratio_per_asset must not receive more buys")
}

func TestExecuteSellsBeforeBuyingSameSymbol(t *testing.T) {
	b := broker.NewLocal(10000)
	b.SetPrice("AAA", 100)
	acct := positions.NewLocalAccount(10000)
	acct.Positions().Add("AAA", 10, 90, 900, 0, "", 0, time.Now())

	m := New(b, acct, testTradingConfig(), false, nil)
	decisions := []models.DecisionRecord{
		{Symbol: "AAA", Price: 100, Sell: true, Timestamp: time.Now()},
		{Symbol: "AAA", Price: 100, Buy: true, TradingValue: 1000, Timestamp: time.Now()},
	}

	executed := m.Execute(context.Background(), decisions)
	require.Len(t, executed, 1, "a symbol marked both sell and buy in the same tick only sells")
	_, held := acct.Positions().Get("AAA")
	assert.False(t, held)
}

func TestExecuteCapsBuysAtMaxBuyPerMin(t *testing.T) {
	b := broker.NewLocal(1000000)
	acct := positions.NewLocalAccount(1000000)
	cfg := testTradingConfig()
	cfg.MaxBuyPerMin = 1

	m := New(b, acct, cfg, false, nil)

	var decisions []models.DecisionRecord
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		b.SetPrice(sym, 50)
		decisions = append(decisions, models.DecisionRecord{Symbol: sym, Price: 50, Buy: true, TradingValue: 100, Timestamp: time.Now()})
	}

	executed := m.Execute(context.Background(), decisions)
	assert.Len(t, executed, 1, "max_buy_per_min caps dispatched buys regardless of how many signals fired")
}

func TestExecuteOrdersBuysByTradingValueDescending(t *testing.T) {
	b := broker.NewLocal(1000000)
	acct := positions.NewLocalAccount(1000000)
	cfg := testTradingConfig()
	cfg.MaxBuyPerMin = 1
	m := New(b, acct, cfg, false, nil)

	b.SetPrice("LOW", 50)
	b.SetPrice("HIGH", 50)
	decisions := []models.DecisionRecord{
		{Symbol: "LOW", Price: 50, Buy: true, TradingValue: 100, Timestamp: time.Now()},
		{Symbol: "HIGH", Price: 50, Buy: true, TradingValue: 9000, Timestamp: time.Now()},
	}

	executed := m.Execute(context.Background(), decisions)
	require.Len(t, executed, 1)
	assert.Equal(t, "HIGH", executed[0].Symbol)
}
