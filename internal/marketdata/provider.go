// Package marketdata pulls hourly history and recent minute bars for a
// symbol universe from an external provider (spec section 4.B), batching
// and parallelizing requests behind a bounded worker pool.
package marketdata

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/neuralprobe/d4/internal/models"
)

// Timeframe selects the bar period a provider call fetches.
type Timeframe int

const (
	Hourly Timeframe = iota
	Minute
)

// Provider is the external market-data collaborator (spec section 6):
// getBars(symbols, timeframe, start, end) -> OHLCV+vwap+trade_count.
type Provider interface {
	GetBars(ctx context.Context, symbols []string, tf Timeframe, start, end time.Time) (map[string][]models.Bar, error)
}

// BatchSize is the maximum number of symbols per provider request (spec
// default: 1024).
const BatchSize = 1024

// FetchHistory pulls `period` of hourly history ending at asOf for every
// symbol, dropping any whose returned series has fewer than minNumBars
// rows. Requests are batched and issued in parallel via the supplied
// worker pool size.
func FetchHistory(ctx context.Context, p Provider, symbols []string, asOf time.Time, period time.Duration, minNumBars, workers int) (map[string]*models.SymbolHistory, error) {
	start := asOf.Add(-period)
	batches := chunk(symbols, BatchSize)

	results := make(map[string][]models.Bar)
	var mu sync.Mutex

	err := runBounded(ctx, workers, len(batches), func(i int) error {
		bars, err := p.GetBars(ctx, batches[i], Hourly, start, asOf)
		if err != nil {
			// Per spec 4.B: per-batch errors are logged here and do not
			// abort the whole fetch; the batch's symbols are simply
			// absent from the result.
			log.Printf("marketdata: history batch %d failed: %v", i, err)
			return nil
		}
		mu.Lock()
		for sym, b := range bars {
			results[sym] = b
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.SymbolHistory, len(results))
	for sym, bars := range results {
		if len(bars) < minNumBars {
			continue
		}
		h := models.NewSymbolHistory(sym, models.DefaultHistoryWindow)
		for _, b := range bars {
			h.Append(b)
		}
		out[sym] = h
	}
	return out, nil
}

// FetchRecent pulls the last minute bar for every symbol as of asOf,
// parallelized in symbol chunks of size max(1, |symbols|/workers).
// Symbols with no data are silently omitted.
func FetchRecent(ctx context.Context, p Provider, symbols []string, asOf time.Time, workers int) (map[string]models.Bar, error) {
	chunkSize := 1
	if workers > 0 {
		if s := len(symbols) / workers; s > 1 {
			chunkSize = s
		}
	}
	batches := chunk(symbols, chunkSize)

	out := make(map[string]models.Bar)
	var mu sync.Mutex

	err := runBounded(ctx, workers, len(batches), func(i int) error {
		bars, err := p.GetBars(ctx, batches[i], Minute, asOf.Add(-time.Minute), asOf)
		if err != nil {
			return nil
		}
		mu.Lock()
		for sym, b := range bars {
			if len(b) == 0 {
				continue
			}
			out[sym] = b[len(b)-1]
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = len(symbols)
	}
	if size == 0 {
		return nil
	}
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}
