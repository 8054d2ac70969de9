package strategy

import "github.com/neuralprobe/d4/internal/config"

// lastTwo returns the indices of the last two true flags in
// chronological order (oldest first), or ok=false if fewer than two
// exist.
func lastTwo(flags []bool) (first, second int, ok bool) {
	idx := make([]int, 0, 2)
	for i := len(flags) - 1; i >= 0 && len(idx) < 2; i-- {
		if flags[i] {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return 0, 0, false
	}
	// idx[0] is the most recent, idx[1] the one before it.
	return idx[1], idx[0], true
}

// poDivergence implements spec 4.E signal 3: the close series and the
// Price Oscillator are compared across their last two dips (bullish)
// and last two peaks (bearish). Either series disagreeing with the
// other's direction counts as divergence, in both directions, plus the
// case where the close leg is flat and the oscillator still moves;
// ties (both bullish and bearish holding) are resolved in favor of
// whichever extrema pair's most recent occurrence is later.
func poDivergence(closes, po []float64, closePeaks, closeDips, poPeaks, poDips []bool) int {
	bullish := false
	bullishAt := -1
	if cf, cs, ok := lastTwo(closeDips); ok {
		if pf, ps, ok2 := lastTwo(poDips); ok2 {
			if (closes[cf] > closes[cs] && po[pf] < po[ps]) ||
				(closes[cf] < closes[cs] && po[pf] > po[ps]) ||
				(closes[cf] == closes[cs] && po[pf] > po[ps]) {
				bullish = true
				bullishAt = cs
			}
		}
	}

	bearish := false
	bearishAt := -1
	if cf, cs, ok := lastTwo(closePeaks); ok {
		if pf, ps, ok2 := lastTwo(poPeaks); ok2 {
			if (closes[cf] < closes[cs] && po[pf] > po[ps]) ||
				(closes[cf] > closes[cs] && po[pf] < po[ps]) ||
				(closes[cf] == closes[cs] && po[pf] > po[ps]) {
				bearish = true
				bearishAt = cs
			}
		}
	}

	switch {
	case bullish && bearish:
		if bullishAt >= bearishAt {
			return 1
		}
		return -1
	case bullish:
		return 1
	case bearish:
		return -1
	default:
		return 0
	}
}

// rsiCheck implements spec 4.E signal 4: +1 if current RSI < 30 and the
// last hill_window bars contain at least `hills` local dips below 30;
// -1 mirrors for RSI > 70 using peaks; else 0.
func rsiCheck(rsi []float64, rsiDips, rsiPeaks []bool, cfg config.RSIConfig) int {
	n := len(rsi)
	if n == 0 {
		return 0
	}
	current := rsi[n-1]

	windowStart := n - cfg.HillWindow
	if windowStart < 0 {
		windowStart = 0
	}

	if current < 30 {
		dipCount := 0
		for i := windowStart; i < n; i++ {
			if rsiDips[i] && rsi[i] < 30 {
				dipCount++
			}
		}
		if dipCount >= cfg.Hills {
			return 1
		}
	}
	if current > 70 {
		peakCount := 0
		for i := windowStart; i < n; i++ {
			if rsiPeaks[i] && rsi[i] > 70 {
				peakCount++
			}
		}
		if peakCount >= cfg.Hills {
			return -1
		}
	}
	return 0
}
