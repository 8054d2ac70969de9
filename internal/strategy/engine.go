package strategy

import (
	"log"
	"strings"
	"sync"

	"github.com/neuralprobe/d4/internal/config"
	"github.com/neuralprobe/d4/internal/indicators"
	"github.com/neuralprobe/d4/internal/models"
)

// Engine is the per-symbol StrategyEngine (spec section 4.E). One Engine
// instance is shared across symbols; it keeps a bounded note ring per
// symbol and is safe for concurrent Evaluate calls from the bounded
// worker pool spec section 5 describes.
type Engine struct {
	cfg         config.StrategyConfig
	trailingPct float64
	logger      *log.Logger

	mu    sync.Mutex
	notes map[string]*models.Ring
}

// New constructs a StrategyEngine. trailingPct is resolved by the
// caller from config.TrailingPct() (local vs live default).
func New(cfg config.StrategyConfig, trailingPct float64, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{cfg: cfg, trailingPct: trailingPct, logger: logger, notes: make(map[string]*models.Ring)}
}

func (e *Engine) ring(symbol string) *models.Ring {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.notes[symbol]
	if !ok {
		r = models.NewRing(models.DefaultNoteDepth)
		e.notes[symbol] = r
	}
	return r
}

// Evaluate is a pure function of (hourly snapshot, minute bar, position
// snapshot): called twice on identical inputs and an identical prior
// note ring, it returns identical DecisionRecords. The ring's prior
// entry is the only external state it reads, and Evaluate is the only
// thing that pushes to it.
func (e *Engine) Evaluate(symbol string, hourly *models.SymbolHistory, minute models.Bar, pos *models.Position) models.DecisionRecord {
	ring := e.ring(symbol)
	prev, hasPrev := ring.Last()

	rec := e.evaluate(symbol, hourly, minute, pos, prev, hasPrev)
	ring.Push(rec)
	return rec
}

func (e *Engine) evaluate(symbol string, hourly *models.SymbolHistory, minute models.Bar, pos *models.Position, prev models.DecisionRecord, hasPrev bool) models.DecisionRecord {
	rec := models.DecisionRecord{
		Symbol:       symbol,
		Timestamp:    minute.Timestamp,
		Price:        minute.Close,
		TradingValue: minute.TradingValue,
	}

	if hourly == nil || hourly.Len() == 0 {
		if hasPrev {
			rec.StopValue, rec.StopKey, rec.StopTrailing = prev.StopValue, prev.StopKey, prev.StopTrailing
		}
		return rec
	}

	snap := computeSnapshot(hourly, e.cfg)
	rsiPeaks, rsiDips := indicators.Extrema(snap.rsi)

	hourlyBar, _ := hourly.Last()
	prevClose := minute.Close
	if hasPrev {
		prevClose = prev.Price
	}

	var prevStopValue, prevStopKey, prevStopTrailing = 0.0, "", 0.0
	if pos != nil {
		prevStopValue, prevStopKey, prevStopTrailing = pos.StopValue, pos.StopKey, pos.StopTrailing
	}

	touch1 := computeTouch(snap.bb1.Lower, e.cfg.BB1.BuyMargin, hourlyBar, minute, prevClose, prev.BreakoutBB1LowerRaw, prev.TouchBB1Lower)
	touch2 := computeTouch(snap.bb2.Lower, e.cfg.BB2.BuyMargin, hourlyBar, minute, prevClose, prev.BreakoutBB2LowerRaw, prev.TouchBB2Lower)

	poDiv := poDivergence(snap.closes, snap.po, snap.closePeaks, snap.closeDips, snap.poPeaks, snap.poDips)
	rsiChk := rsiCheck(snap.rsi, rsiDips, rsiPeaks, e.cfg.RSI)

	periods, last := snap.availableSMAs()
	alignStrength := smaAlignStrength(last)
	aligned := alignStrength > 0.99

	availableCols := make(map[int][]float64, len(periods))
	for _, p := range periods {
		availableCols[p] = snap.sma[p]
	}
	smaBreakCount, smaBelowClose := smaBreakthrough(periods, availableCols, e.cfg.SMA.Margin, hourlyBar, minute, prevClose)

	rec.TouchBB1Lower = touch1.Touch
	rec.TouchBB2Lower = touch2.Touch
	rec.BreakoutBB1LowerRaw = touch1.BreakoutRaw
	rec.BreakoutBB2LowerRaw = touch2.BreakoutRaw
	rec.PODivergence = poDiv
	rec.RSICheck = rsiChk
	rec.SMAAlignStrength = alignStrength
	rec.SMABreakthroughCnt = smaBreakCount
	rec.SMABelowClose = smaBelowClose

	// Buy decision (spec 4.E).
	bearish := poDiv < 0 || rsiChk < 0
	rec.Buy = aligned && (touch1.Touch || touch2.Touch || smaBreakCount > 0.1) && !bearish

	var reasons []string
	var strength float64
	if touch1.Touch {
		reasons = append(reasons, "bb1")
		strength++
	}
	if touch2.Touch {
		reasons = append(reasons, "bb2")
		strength++
	}
	if smaBreakCount > 0.1 {
		reasons = append(reasons, "sma")
		strength++
	}
	rec.BuyReason = strings.Join(reasons, "-")
	rec.BuyStrength = strength + float64(poDiv) + float64(rsiChk)

	// Proposed stops at buy (spec 4.E).
	trail := 1 - e.trailingPct
	bb1Last, _ := indicators.LastNonNaN(snap.bb1.Lower)
	bb2Last, _ := indicators.LastNonNaN(snap.bb2.Lower)

	type candidate struct {
		value float64
		key   string
	}
	candidates := []candidate{
		{bb1Last * trail, "bb1_lower"},
		{bb2Last * trail, "bb2_lower"},
		{smaBelowClose * trail, "sma_below_close"},
		{prevStopValue, prevStopKey},
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.value > best.value {
			best = c
		}
	}
	rec.StopValue = best.value
	rec.StopKey = best.key
	rec.StopTrailing = max64(prevStopTrailing, minute.Close*trail)

	// Sell decision requires a held position.
	if pos == nil {
		return rec
	}

	effectiveStop := pos.EffectiveStop()
	stopLoss := minute.Close < effectiveStop

	resistanceBreak, newStopHubo := resistanceUpwardBreakout(periods, availableCols, snap.bb1.Upper, snap.bb2.Upper, pos.StopValue, e.cfg, hourlyBar, minute, prevClose)
	topResistBreak := topResistanceDownwardBreak(periods, availableCols, snap.bb1.Upper, snap.bb2.Upper, minute)

	takeProfit := resistanceBreak && !aligned
	keepProfit := resistanceBreak && (poDiv > 0 || rsiChk > 0)

	rec.ResistanceUpwardBreak = resistanceBreak
	rec.TopResistDownwardBreak = topResistBreak
	rec.NewStopHubo = newStopHubo
	rec.StopLossDownwardBreak = stopLoss
	rec.KeepProfit = keepProfit

	if keepProfit && newStopHubo >= pos.StopValue {
		rec.StopValue = newStopHubo
		rec.StopKey = "resistance_hubo"
	}

	var sellReasons []string
	if stopLoss {
		sellReasons = append(sellReasons, "stop_loss")
	}
	if takeProfit {
		sellReasons = append(sellReasons, "take_profit")
	}
	if topResistBreak {
		sellReasons = append(sellReasons, "top_resist_break")
	}
	rec.SellReason = strings.Join(sellReasons, "-")
	rec.Sell = (stopLoss || takeProfit || topResistBreak) && !keepProfit

	return rec
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
