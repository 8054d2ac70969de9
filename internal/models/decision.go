package models

import "time"

// DefaultNoteDepth is the number of most-recent DecisionRecords kept per
// symbol (the strategy's bounded "note" ring).
const DefaultNoteDepth = 3

// DecisionRecord is one symbol's per-minute verdict: the buy/sell flags
// plus every intermediate signal that produced them, kept for audit.
type DecisionRecord struct {
	Symbol    string
	Timestamp time.Time
	Price     float64

	Buy         bool
	BuyReason   string
	BuyStrength float64

	Sell       bool
	SellReason string
	KeepProfit bool

	StopValue    float64
	StopKey      string
	StopTrailing float64
	TradingValue float64

	// Intermediate signals, retained for audit and for the "keep" state
	// carried into the next tick's touch computation.
	TouchBB1Lower       bool
	TouchBB2Lower       bool
	BreakoutBB1LowerRaw bool
	BreakoutBB2LowerRaw bool
	PODivergence        int
	RSICheck            int
	SMAAlignStrength    float64
	SMABreakthroughCnt  float64
	SMABelowClose       float64

	StopLossDownwardBreak bool
	ResistanceUpwardBreak bool
	TopResistDownwardBreak bool
	NewStopHubo           float64
}

// Ring is a fixed-depth history of DecisionRecords for one symbol,
// append-only from the caller's perspective but bounded in length.
type Ring struct {
	depth   int
	records []DecisionRecord
}

// NewRing creates a ring of the given depth (DefaultNoteDepth if <= 0).
func NewRing(depth int) *Ring {
	if depth <= 0 {
		depth = DefaultNoteDepth
	}
	return &Ring{depth: depth}
}

// Push appends a record, trimming the oldest entries beyond depth.
func (r *Ring) Push(rec DecisionRecord) {
	r.records = append(r.records, rec)
	if len(r.records) > r.depth {
		r.records = r.records[len(r.records)-r.depth:]
	}
}

// Last returns the most recently pushed record and whether one exists.
func (r *Ring) Last() (DecisionRecord, bool) {
	if len(r.records) == 0 {
		return DecisionRecord{}, false
	}
	return r.records[len(r.records)-1], true
}

// All returns every retained record, oldest first.
func (r *Ring) All() []DecisionRecord {
	return r.records
}
