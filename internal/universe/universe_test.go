package universe

import (
	"context"
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/marketdata"
	"github.com/neuralprobe/d4/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolveReturnsConfiguredSymbols(t *testing.T) {
	s := Static{Symbols: []string{"AAA", "BBB"}}
	got, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, got)
}

func TestRankedResolveOrdersByMeanTradingValueDescending(t *testing.T) {
	asOf := time.Now()
	provider := marketdata.NewLocalProvider()
	provider.SetHourly("LOW", []models.Bar{
		{Timestamp: asOf.Add(-time.Hour), Open: 1, High: 1, Low: 1, Close: 1, Volume: 100, VWAP: 1, TradingValue: 100},
	})
	provider.SetHourly("HIGH", []models.Bar{
		{Timestamp: asOf.Add(-time.Hour), Open: 1, High: 1, Low: 1, Close: 1, Volume: 100, VWAP: 10, TradingValue: 10000},
	})

	r := Ranked{Provider: provider, Candidates: []string{"LOW", "HIGH"}, TopN: 1, AsOf: asOf, Workers: 2}
	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "HIGH", got[0])
}
