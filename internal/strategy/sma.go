package strategy

import (
	"github.com/neuralprobe/d4/internal/indicators"
	"github.com/neuralprobe/d4/internal/models"
)

// smaAlignStrength implements spec 4.E signal 5: the signed count of
// adjacent-pair orderings over the available SMAs (shortest period
// first), normalized by (n-1). A fully bullish stack (every shorter SMA
// above every longer one) sums to +1; fully bearish sums to -1.
func smaAlignStrength(last []float64) float64 {
	n := len(last)
	if n < 2 {
		return 0
	}
	var signed float64
	for i := 0; i < n-1; i++ {
		if last[i] > last[i+1] {
			signed++
		} else {
			signed--
		}
	}
	return signed / float64(n-1)
}

// smaBreakthrough implements spec 4.E signal 6: counts how many SMA
// lines are broken upward (with margin) by the current bar, and
// remembers the value of the highest such SMA as SMA_below_close — the
// stop-loss candidate a later resistance check reads back.
func smaBreakthrough(periods []int, cols map[int][]float64, margin float64, hourlyBar, minuteBar models.Bar, prevClose float64) (count float64, smaBelowClose float64) {
	highestBroken := -1.0
	for _, p := range periods {
		col, ok := cols[p]
		if !ok {
			continue
		}
		if upwardBreakout(col, margin, hourlyBar, minuteBar, prevClose) {
			count++
			if last, ok := indicators.LastNonNaN(col); ok && last > highestBroken {
				highestBroken = last
			}
		}
	}
	if highestBroken < 0 {
		return count, 0
	}
	return count, highestBroken
}
