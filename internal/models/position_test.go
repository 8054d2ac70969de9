package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPositionAddFoldsStopsByMax(t *testing.T) {
	p := NewPosition("AAA", 10, 100, 1000, 95, "bb1_lower", 99, time.Now())
	assert.Equal(t, 100.0, p.AvgPrice)

	p.Add(10, 110, 1100, 90, "bb2_lower", 108.9)
	assert.Equal(t, 20.0, p.Quantity)
	assert.Equal(t, 2100.0, p.CostBasis)
	assert.Equal(t, 105.0, p.AvgPrice)
	// stop_value must never ratchet down even though the new candidate is lower
	assert.Equal(t, 95.0, p.StopValue)
	assert.Equal(t, "bb1_lower", p.StopKey)
	assert.Equal(t, 108.9, p.StopTrailing)
}

func TestPositionUpdatePriceReportsDelta(t *testing.T) {
	p := NewPosition("AAA", 10, 100, 1000, 0, "", 99, time.Now())
	delta := p.UpdatePrice(110)
	assert.Equal(t, 100.0, delta)
	assert.Equal(t, 1100.0, p.MarketValue)
}

func TestEffectiveStopIsMaxOfStopValueAndTrailing(t *testing.T) {
	p := NewPosition("AAA", 10, 100, 1000, 101, "", 99, time.Now())
	assert.Equal(t, 101.0, p.EffectiveStop())
	p.RaiseTrailing(108.9)
	assert.Equal(t, 108.9, p.EffectiveStop())
}
