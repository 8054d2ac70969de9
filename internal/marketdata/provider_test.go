package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchHistoryDropsSymbolsUnderMinNumBars(t *testing.T) {
	p := NewLocalProvider()
	asOf := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	var enough, short []models.Bar
	for i := 0; i < 500; i++ {
		enough = append(enough, models.Bar{Timestamp: asOf.Add(-time.Duration(i) * time.Hour)})
	}
	for i := 0; i < 10; i++ {
		short = append(short, models.Bar{Timestamp: asOf.Add(-time.Duration(i) * time.Hour)})
	}
	p.SetHourly("AAA", enough)
	p.SetHourly("BBB", short)

	out, err := FetchHistory(context.Background(), p, []string{"AAA", "BBB"}, asOf, 2000*time.Hour, 480, 4)
	require.NoError(t, err)
	assert.Contains(t, out, "AAA")
	assert.NotContains(t, out, "BBB")
}

func TestFetchRecentOmitsMissingSymbols(t *testing.T) {
	p := NewLocalProvider()
	asOf := time.Date(2024, 7, 1, 12, 1, 0, 0, time.UTC)
	p.SetMinute("AAA", []models.Bar{{Timestamp: asOf, Close: 10}})

	out, err := FetchRecent(context.Background(), p, []string{"AAA", "ZZZ"}, asOf, 4)
	require.NoError(t, err)
	assert.Contains(t, out, "AAA")
	assert.NotContains(t, out, "ZZZ")
}
