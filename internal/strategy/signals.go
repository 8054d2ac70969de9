package strategy

import (
	"time"

	"github.com/neuralprobe/d4/internal/indicators"
	"github.com/neuralprobe/d4/internal/models"
)

// upwardBreakout implements spec 4.E signal 1: true when low <= threshold
// and close > threshold, where threshold = metric.last + close*offset.
// When the hourly bar is more than 4 hours older than the minute bar, low
// falls back to prevClose.
func upwardBreakout(metric []float64, offset float64, hourlyBar models.Bar, minuteBar models.Bar, prevClose float64) bool {
	last, ok := indicators.LastNonNaN(metric)
	if !ok {
		return false
	}
	threshold := last + minuteBar.Close*offset

	low := minuteBar.Low
	if minuteBar.Timestamp.Sub(hourlyBar.Timestamp) > 4*time.Hour {
		low = prevClose
	}
	return low <= threshold && minuteBar.Close > threshold
}

// touchState is the two-level breakthrough result for one band, plus the
// raw breakout flag the next tick's "keep" logic needs.
type touchState struct {
	BreakoutRaw bool
	Touch       bool
}

// computeTouch implements spec 4.E signal 2: a two-level breakthrough.
// breakout_raw is a zero-offset upward breakout; the "keep" state holds
// the breakthrough open while price stays above threshold and the
// previous tick's breakout was set, unless the previous tick's touch was
// already true (in which case keep no longer applies — the confirmed
// touch has already fired). Touch requires both the combined
// raw-or-keep breakthrough AND a breakout at the configured margin.
func computeTouch(metric []float64, margin float64, hourlyBar, minuteBar models.Bar, prevClose float64, prevRaw, prevTouch bool) touchState {
	raw := upwardBreakout(metric, 0, hourlyBar, minuteBar, prevClose)

	last, ok := indicators.LastNonNaN(metric)
	keep := false
	if ok && !prevTouch {
		threshold := last
		keep = minuteBar.Close > threshold && prevRaw
	}

	breakthrough := raw || keep
	marginBreakout := upwardBreakout(metric, margin, hourlyBar, minuteBar, prevClose)

	return touchState{BreakoutRaw: raw, Touch: breakthrough && marginBreakout}
}
