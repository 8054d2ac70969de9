// Package barfusion merges incoming minute bars into each symbol's
// hourly SymbolHistory, preserving the OHLCV and VWAP invariants spec
// section 4.C requires.
package barfusion

import (
	"time"

	"github.com/neuralprobe/d4/internal/models"
)

// Fuser owns the per-symbol hourly histories and applies incoming
// minute bars to them.
type Fuser struct {
	window     int
	histories  map[string]*models.SymbolHistory
	lastCompact time.Time
}

// New creates a Fuser bounding each symbol's history to window bars.
func New(window int) *Fuser {
	return &Fuser{window: window, histories: make(map[string]*models.SymbolHistory)}
}

// Seed installs a bulk-fetched history for a symbol at startup.
func (f *Fuser) Seed(symbol string, bars []models.Bar) {
	h := models.NewSymbolHistory(symbol, f.window)
	for _, b := range bars {
		h.Append(b)
	}
	f.histories[symbol] = h
}

// History returns the current hourly history for a symbol, or nil if
// none has been seeded or fused yet.
func (f *Fuser) History(symbol string) *models.SymbolHistory {
	return f.histories[symbol]
}

// Symbols lists every symbol currently tracked.
func (f *Fuser) Symbols() []string {
	out := make([]string, 0, len(f.histories))
	for s := range f.histories {
		out = append(out, s)
	}
	return out
}

// Fuse merges one minute bar into the symbol's hourly history per spec
// section 4.C: a new hourly bar is appended when the minute bar's hour
// bucket is strictly later than the last bar's, otherwise the last bar
// is updated in place.
func (f *Fuser) Fuse(symbol string, minute models.Bar) {
	h, ok := f.histories[symbol]
	if !ok {
		h = models.NewSymbolHistory(symbol, f.window)
		f.histories[symbol] = h
	}

	last, exists := h.Last()
	if !exists {
		h.Append(minute)
		return
	}

	if models.HourKey(minute.Timestamp).After(models.HourKey(last.Timestamp)) {
		h.Append(minute)
		return
	}

	merged := last
	merged.High = max(last.High, minute.High)
	merged.Low = min(last.Low, minute.Low)
	merged.Close = minute.Close
	merged.Volume += minute.Volume
	merged.TradeCount += minute.TradeCount
	merged.TradingValue += minute.TradingValue
	if merged.Volume > 0 {
		merged.VWAP = merged.TradingValue / merged.Volume
	} else {
		merged.VWAP = 0
	}
	h.ReplaceLast(merged)
}

// CompactIfDue reallocates every tracked history's backing storage once
// at least 24 hours of logical time has elapsed since the last
// compaction. Purely a latency-smoothing step; it never changes any bar.
func (f *Fuser) CompactIfDue(now time.Time) {
	if !f.lastCompact.IsZero() && now.Sub(f.lastCompact) < 24*time.Hour {
		return
	}
	for _, h := range f.histories {
		h.Compact()
	}
	f.lastCompact = now
}
