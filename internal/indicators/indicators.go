// Package indicators computes the technical indicators the strategy
// engine reasons over: Bollinger Bands, the Price Oscillator, RSI, SMA,
// and local peak/dip extrema. There is no third-party indicator library
// in the example corpus (the Python original leans on pandas_ta, which
// has no idiomatic Go analogue among the example repos), so this package
// is plain math over float64 slices.
package indicators

import "math"

// SMA computes the simple moving average at the given period. Indices
// before period-1 samples are available are NaN.
func SMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// Bands holds one Bollinger Bands parameterization's output columns.
type Bands struct {
	Lower      []float64
	Mid        []float64
	Upper      []float64
	Bandwidth  []float64
	Percent    []float64
}

// BollingerBands computes bands at the given length and standard
// deviation multiplier.
func BollingerBands(series []float64, length int, std float64) Bands {
	n := len(series)
	b := Bands{
		Lower:     make([]float64, n),
		Mid:       make([]float64, n),
		Upper:     make([]float64, n),
		Bandwidth: make([]float64, n),
		Percent:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		b.Lower[i] = math.NaN()
		b.Mid[i] = math.NaN()
		b.Upper[i] = math.NaN()
		b.Bandwidth[i] = math.NaN()
		b.Percent[i] = math.NaN()
	}
	if length <= 0 {
		return b
	}
	for i := length - 1; i < n; i++ {
		window := series[i-length+1 : i+1]
		mean := meanOf(window)
		sd := stdDevOf(window, mean)
		lower := mean - std*sd
		upper := mean + std*sd
		b.Mid[i] = mean
		b.Lower[i] = lower
		b.Upper[i] = upper
		if mean != 0 {
			b.Bandwidth[i] = (upper - lower) / mean
		}
		if upper != lower {
			b.Percent[i] = (series[i] - lower) / (upper - lower)
		}
	}
	return b
}

func meanOf(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdDevOf(vals []float64, mean float64) float64 {
	var sum float64
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}

// PriceOscillator computes 100*(close-SMA(close,length))/SMA(close,length).
func PriceOscillator(series []float64, length int) []float64 {
	sma := SMA(series, length)
	out := make([]float64, len(series))
	for i, v := range series {
		s := sma[i]
		if math.IsNaN(s) || s == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = 100 * (v - s) / s
	}
	return out
}

// RSI computes the Relative Strength Index at the given length using
// Wilder's smoothing.
func RSI(series []float64, length int) []float64 {
	n := len(series)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if length <= 0 || n <= length {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= length; i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(length)
	avgLoss /= float64(length)
	out[length] = rsiFromAverages(avgGain, avgLoss)

	for i := length + 1; i < n; i++ {
		change := series[i] - series[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(length-1) + gain) / float64(length)
		avgLoss = (avgLoss*float64(length-1) + loss) / float64(length)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Extrema marks, for each index, whether it is a local peak or dip. The
// most recent index is included as a peak if the last value exceeds the
// previous one, or a dip if it is below, matching spec 4.D's definition
// of "the most recent index" extrema handling (it would otherwise never
// qualify as an interior extremum).
func Extrema(series []float64) (peaks []bool, dips []bool) {
	n := len(series)
	peaks = make([]bool, n)
	dips = make([]bool, n)
	for i := 1; i < n-1; i++ {
		if series[i] > series[i-1] && series[i] > series[i+1] {
			peaks[i] = true
		}
		if series[i] < series[i-1] && series[i] < series[i+1] {
			dips[i] = true
		}
	}
	if n >= 2 {
		last := n - 1
		if series[last] > series[last-1] {
			peaks[last] = true
		} else if series[last] < series[last-1] {
			dips[last] = true
		}
	}
	return peaks, dips
}

// LastNonNaN returns the most recent non-NaN value in series, or (0,
// false) if every value is NaN.
func LastNonNaN(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i], true
		}
	}
	return 0, false
}
