package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every case below marks dips (or peaks) true at index 0 (older) and
// index 2 (newer); only those two values are read by poDivergence, the
// rest are filler. Covers every disagreement direction plus the
// close-flat/oscillator-moves case from the underlying Maengja logic.
func TestPoDivergenceBullishLowerLowHigherPOLow(t *testing.T) {
	closes := []float64{10, 9, 8, 7}
	po := []float64{-3, -2, -1, -2}
	dips := []bool{true, false, true, false}
	noPeaks := []bool{false, false, false, false}

	got := poDivergence(closes, po, noPeaks, dips, noPeaks, dips)
	assert.Equal(t, 1, got, "close lower low + PO higher low is classic bullish divergence")
}

func TestPoDivergenceBullishHigherLowLowerPOLow(t *testing.T) {
	closes := []float64{7, 8, 9, 10}
	po := []float64{-1, -2, -3, -2}
	dips := []bool{true, false, true, false}
	noPeaks := []bool{false, false, false, false}

	got := poDivergence(closes, po, noPeaks, dips, noPeaks, dips)
	assert.Equal(t, 1, got, "close higher low + PO lower low is the opposite-disagreement bullish case")
}

func TestPoDivergenceBullishFlatCloseFallingPO(t *testing.T) {
	closes := []float64{7, 100, 7, 100}
	po := []float64{-1, 0, -3, 0}
	dips := []bool{true, false, true, false}
	noPeaks := []bool{false, false, false, false}

	got := poDivergence(closes, po, noPeaks, dips, noPeaks, dips)
	assert.Equal(t, 1, got, "equal close dips with a lower PO dip still counts as bullish")
}

func TestPoDivergenceBearishHigherHighLowerPOHigh(t *testing.T) {
	closes := []float64{10, 11, 13, 11}
	po := []float64{3, 2, 1, 2}
	peaks := []bool{true, false, true, false}
	noDips := []bool{false, false, false, false}

	got := poDivergence(closes, po, peaks, noDips, peaks, noDips)
	assert.Equal(t, -1, got, "close higher high + PO lower high is classic bearish divergence")
}

func TestPoDivergenceBearishLowerHighHigherPOHigh(t *testing.T) {
	closes := []float64{13, 11, 12, 11}
	po := []float64{0, 1, 2, 1}
	peaks := []bool{true, false, true, false}
	noDips := []bool{false, false, false, false}

	got := poDivergence(closes, po, peaks, noDips, peaks, noDips)
	assert.Equal(t, -1, got, "close lower high + PO higher high is the opposite-disagreement bearish case")
}

func TestPoDivergenceNoSignalWhenBothSeriesAgree(t *testing.T) {
	closes := []float64{7, 8, 9, 10}
	po := []float64{-3, -2, -1, 0}
	dips := []bool{true, false, true, false}
	noPeaks := []bool{false, false, false, false}

	got := poDivergence(closes, po, noPeaks, dips, noPeaks, dips)
	assert.Equal(t, 0, got, "close and PO both making higher lows together is not divergence")
}
