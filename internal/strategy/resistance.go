package strategy

import (
	"github.com/neuralprobe/d4/internal/config"
	"github.com/neuralprobe/d4/internal/indicators"
	"github.com/neuralprobe/d4/internal/models"
)

// resistanceLevels collects the current value of every candidate
// resistance line (available SMAs plus both bands' upper lines), the
// set spec 4.E's sell-side checks iterate over.
func resistanceLevels(periods []int, smaCols map[int][]float64, bb1Upper, bb2Upper []float64) (values []float64, cols [][]float64) {
	for _, p := range periods {
		col := smaCols[p]
		if v, ok := indicators.LastNonNaN(col); ok {
			values = append(values, v)
			cols = append(cols, col)
		}
	}
	if v, ok := indicators.LastNonNaN(bb1Upper); ok {
		values = append(values, v)
		cols = append(cols, bb1Upper)
	}
	if v, ok := indicators.LastNonNaN(bb2Upper); ok {
		values = append(values, v)
		cols = append(cols, bb2Upper)
	}
	return values, cols
}

// resistanceUpwardBreakout implements spec 4.E's "resistance upward
// breakout": among resistance lines strictly above the current
// stop_value, any with an upward breakout marks this true, and the
// highest such level becomes new_stop_hubo.
func resistanceUpwardBreakout(periods []int, smaCols map[int][]float64, bb1Upper, bb2Upper []float64, currentStopValue float64, cfg config.StrategyConfig, hourlyBar, minuteBar models.Bar, prevClose float64) (bool, float64) {
	values, cols := resistanceLevels(periods, smaCols, bb1Upper, bb2Upper)

	found := false
	newStopHubo := 0.0
	for i, v := range values {
		if v <= currentStopValue {
			continue
		}
		if upwardBreakout(cols[i], cfg.SMA.Margin, hourlyBar, minuteBar, prevClose) {
			found = true
			if v > newStopHubo {
				newStopHubo = v
			}
		}
	}
	return found, newStopHubo
}

// topResistanceDownwardBreak implements spec 4.E's "top resistance
// downward break": the minute bar's high clears every resistance line
// but its close falls back at or below at least one — a bearish
// rejection at the top of the stack.
func topResistanceDownwardBreak(periods []int, smaCols map[int][]float64, bb1Upper, bb2Upper []float64, minuteBar models.Bar) bool {
	values, _ := resistanceLevels(periods, smaCols, bb1Upper, bb2Upper)
	if len(values) == 0 {
		return false
	}
	clearsAll := true
	rejectsOne := false
	for _, v := range values {
		if minuteBar.High <= v {
			clearsAll = false
		}
		if minuteBar.Close <= v {
			rejectsOne = true
		}
	}
	return clearsAll && rejectsOne
}
