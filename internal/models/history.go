package models

// DefaultHistoryWindow is the maximum number of hourly bars retained per
// symbol (spec default: 2000 hourly bars).
const DefaultHistoryWindow = 2000

// DefaultMinNumBars is the minimum hourly bar count a symbol must have
// after the initial history fetch to stay in the universe.
const DefaultMinNumBars = 480

// SymbolHistory is an ordered, strictly-increasing-by-timestamp sequence
// of hourly bars for one symbol. It is mutated only by BarFusion.
type SymbolHistory struct {
	Symbol string
	Bars   []Bar
	Window int
}

// NewSymbolHistory creates an empty history bounded at window bars
// (DefaultHistoryWindow if window <= 0).
func NewSymbolHistory(symbol string, window int) *SymbolHistory {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &SymbolHistory{Symbol: symbol, Window: window}
}

// Last returns the most recent bar, or the zero Bar and false if empty.
func (h *SymbolHistory) Last() (Bar, bool) {
	if len(h.Bars) == 0 {
		return Bar{}, false
	}
	return h.Bars[len(h.Bars)-1], true
}

// Append adds a new hourly bar, dropping the oldest if the window is
// exceeded.
func (h *SymbolHistory) Append(b Bar) {
	h.Bars = append(h.Bars, b)
	if len(h.Bars) > h.Window {
		h.Bars = h.Bars[len(h.Bars)-h.Window:]
	}
}

// ReplaceLast overwrites the most recent bar in place, used when fusing a
// minute bar into the currently open hourly bar.
func (h *SymbolHistory) ReplaceLast(b Bar) {
	if len(h.Bars) == 0 {
		h.Bars = append(h.Bars, b)
		return
	}
	h.Bars[len(h.Bars)-1] = b
}

// Len reports the number of bars currently retained.
func (h *SymbolHistory) Len() int {
	return len(h.Bars)
}

// Column extracts a named field across all bars, used by the indicators
// package to compute SMA/RSI/BB over plain float64 slices without every
// caller re-implementing the same loop.
func (h *SymbolHistory) Column(field func(Bar) float64) []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = field(b)
	}
	return out
}

// Compact reallocates the backing slice to its current length, releasing
// any capacity retained from repeated Append/ReplaceLast churn. This is a
// periodic memory-defrag step with no observable semantic effect.
func (h *SymbolHistory) Compact() {
	if cap(h.Bars) == len(h.Bars) {
		return
	}
	fresh := make([]Bar, len(h.Bars))
	copy(fresh, h.Bars)
	h.Bars = fresh
}
