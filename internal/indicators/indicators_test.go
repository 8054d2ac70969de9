package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMAInsufficientSamplesIsNaN(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	assert.True(t, math.IsNaN(out[1]))
}

func TestSMAComputesRollingMean(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestBollingerBandsFlatSeriesHasZeroWidth(t *testing.T) {
	series := make([]float64, 25)
	for i := range series {
		series[i] = 100
	}
	b := BollingerBands(series, 20, 2)
	assert.InDelta(t, 100.0, b.Mid[24], 1e-9)
	assert.InDelta(t, 100.0, b.Upper[24], 1e-9)
	assert.InDelta(t, 100.0, b.Lower[24], 1e-9)
}

func TestRSIAllGainsApproaches100(t *testing.T) {
	series := make([]float64, 20)
	for i := range series {
		series[i] = float64(i)
	}
	out := RSI(series, 14)
	last, ok := LastNonNaN(out)
	assert.True(t, ok)
	assert.Greater(t, last, 95.0)
}

func TestExtremaFlagsLastIndexByDirection(t *testing.T) {
	peaks, dips := Extrema([]float64{1, 3, 2, 2.5})
	assert.True(t, peaks[1])
	assert.True(t, dips[2])
	assert.True(t, peaks[3])
}
