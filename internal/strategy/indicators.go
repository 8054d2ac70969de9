// Package strategy implements the per-symbol StrategyEngine: it turns an
// hourly history, the latest minute bar, and a read-only view of the
// held position into a DecisionRecord (spec section 4.E).
package strategy

import (
	"sort"

	"github.com/neuralprobe/d4/internal/config"
	"github.com/neuralprobe/d4/internal/indicators"
	"github.com/neuralprobe/d4/internal/models"
)

// snapshot bundles every indicator column computed from one hourly
// history, read once at the top of Evaluate and never mutated
// afterward (Design Note: separate read model from write model).
type snapshot struct {
	closes []float64

	bb1 indicators.Bands
	bb2 indicators.Bands
	po  []float64
	rsi []float64

	smaPeriods []int
	sma        map[int][]float64

	closePeaks, closeDips []bool
	poPeaks, poDips        []bool
}

func computeSnapshot(h *models.SymbolHistory, cfg config.StrategyConfig) snapshot {
	closes := h.Column(func(b models.Bar) float64 { return b.Close })

	s := snapshot{
		closes:     closes,
		bb1:        indicators.BollingerBands(closes, cfg.BB1.Length, cfg.BB1.Std),
		bb2:        indicators.BollingerBands(closes, cfg.BB2.Length, cfg.BB2.Std),
		po:         indicators.PriceOscillator(closes, cfg.PO.Length),
		rsi:        indicators.RSI(closes, cfg.RSI.Length),
		smaPeriods: sortedPeriods(cfg.SMA.Periods),
		sma:        make(map[int][]float64, len(cfg.SMA.Periods)),
	}
	for _, p := range cfg.SMA.Periods {
		// Only compute/retain SMAs with enough samples, per spec 4.D.
		if h.Len() >= p {
			s.sma[p] = indicators.SMA(closes, p)
		}
	}
	s.closePeaks, s.closeDips = indicators.Extrema(closes)
	s.poPeaks, s.poDips = indicators.Extrema(s.po)
	return s
}

func sortedPeriods(periods []int) []int {
	out := append([]int(nil), periods...)
	sort.Ints(out)
	return out
}

// availableSMAs returns the SMAs that have enough samples, in ascending
// period order, paired with their most recent value.
func (s snapshot) availableSMAs() (periods []int, last []float64) {
	for _, p := range s.smaPeriods {
		col, ok := s.sma[p]
		if !ok {
			continue
		}
		v, ok := indicators.LastNonNaN(col)
		if !ok {
			continue
		}
		periods = append(periods, p)
		last = append(last, v)
	}
	return periods, last
}
