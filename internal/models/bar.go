// Package models defines the data types shared across the engine: bars,
// per-symbol history, positions and decision records.
package models

import (
	"fmt"
	"time"
)

// Bar is a single OHLCV record at some timeframe, carrying the derived
// trading_value (volume * vwap) alongside the raw fields a provider returns.
type Bar struct {
	Timestamp   time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	TradeCount  float64
	VWAP        float64
	TradingValue float64
}

// Validate checks the OHLC invariants a fused bar must satisfy.
func (b Bar) Validate() error {
	if b.High < b.Open || b.High < b.Close || b.High < b.Low {
		return fmt.Errorf("bar %s: high %.4f is not the max of open/high/low/close", b.Timestamp, b.High)
	}
	if b.Low > b.Open || b.Low > b.Close || b.Low > b.High {
		return fmt.Errorf("bar %s: low %.4f is not the min of open/high/low/close", b.Timestamp, b.Low)
	}
	if b.TradingValue < 0 {
		return fmt.Errorf("bar %s: trading_value %.4f is negative", b.Timestamp, b.TradingValue)
	}
	return nil
}

// TradingValueOf computes volume * vwap, the ingest-time derived field
// required for every bar regardless of provider.
func TradingValueOf(volume, vwap float64) float64 {
	return volume * vwap
}

// HourKey returns the (date, hour) bucket a bar belongs to, used by
// BarFusion to decide whether a minute bar opens a new hourly bar or
// merges into the current one.
func HourKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
