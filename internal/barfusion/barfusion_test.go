package barfusion

import (
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFuseOpensNewHourlyBarOnLaterHour(t *testing.T) {
	f := New(10)
	t0 := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	f.Fuse("AAA", models.Bar{Timestamp: t0, Open: 10, High: 11, Low: 9, Close: 10, Volume: 100, VWAP: 10, TradingValue: 1000})
	f.Fuse("AAA", models.Bar{Timestamp: t0.Add(time.Hour), Open: 12, High: 13, Low: 11, Close: 12, Volume: 50, VWAP: 12, TradingValue: 600})

	h := f.History("AAA")
	assert.Equal(t, 2, h.Len())
}

func TestFuseMergesWithinSameHour(t *testing.T) {
	f := New(10)
	t0 := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	f.Fuse("AAA", models.Bar{Timestamp: t0, Open: 10, High: 11, Low: 9, Close: 10, Volume: 100, VWAP: 10, TradingValue: 1000})
	f.Fuse("AAA", models.Bar{Timestamp: t0.Add(5 * time.Minute), Open: 10, High: 12, Low: 8, Close: 9, Volume: 50, VWAP: 9, TradingValue: 450})

	h := f.History("AAA")
	assert.Equal(t, 1, h.Len())
	last, _ := h.Last()
	assert.Equal(t, 12.0, last.High)
	assert.Equal(t, 8.0, last.Low)
	assert.Equal(t, 9.0, last.Close)
	assert.Equal(t, 150.0, last.Volume)
	assert.Equal(t, 1450.0, last.TradingValue)
	assert.InDelta(t, 1450.0/150.0, last.VWAP, 1e-9)
}
