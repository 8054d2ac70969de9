package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSymbolHistoryAppendBoundsWindow(t *testing.T) {
	h := NewSymbolHistory("AAA", 3)
	base := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		h.Append(Bar{Timestamp: base.Add(time.Duration(i) * time.Hour), Close: float64(i)})
	}
	assert.Equal(t, 3, h.Len())
	last, ok := h.Last()
	assert.True(t, ok)
	assert.Equal(t, 4.0, last.Close)
}

func TestBarValidateRejectsBrokenInvariant(t *testing.T) {
	b := Bar{Open: 10, High: 9, Low: 8, Close: 9.5}
	assert.Error(t, b.Validate())
}

func TestRingBoundsDepth(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Push(DecisionRecord{BuyStrength: float64(i)})
	}
	all := r.All()
	assert.Len(t, all, 3)
	assert.Equal(t, 2.0, all[0].BuyStrength)
	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, 4.0, last.BuyStrength)
}
