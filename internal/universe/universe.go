// Package universe resolves the symbol set the engine trades each
// run: either a fixed override list or a ranked top-N by 60-day mean
// trading_value (spec section 6, "Symbol universe").
package universe

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/neuralprobe/d4/internal/marketdata"
)

// Resolver returns the symbols the engine should track this run.
type Resolver interface {
	Resolve(ctx context.Context) ([]string, error)
}

// Static always returns a fixed, user-configured symbol list.
type Static struct {
	Symbols []string
}

// Resolve returns the configured symbols verbatim.
func (s Static) Resolve(_ context.Context) ([]string, error) {
	return s.Symbols, nil
}

// Ranked resolves the top-N candidates by 60-day mean trading_value,
// fetched as hourly bars from a market-data provider.
type Ranked struct {
	Provider   marketdata.Provider
	Candidates []string
	TopN       int
	AsOf       time.Time
	Workers    int
}

// Resolve fetches 60 days of hourly history for every candidate,
// ranks by mean trading_value descending, and returns the top TopN
// symbols.
func (r Ranked) Resolve(ctx context.Context) ([]string, error) {
	histories, err := marketdata.FetchHistory(ctx, r.Provider, r.Candidates, r.AsOf, 60*24*time.Hour, 1, r.Workers)
	if err != nil {
		return nil, fmt.Errorf("fetching candidate history for universe ranking: %w", err)
	}

	type ranked struct {
		symbol string
		mean   float64
	}
	scored := make([]ranked, 0, len(histories))
	for sym, h := range histories {
		if h.Len() == 0 {
			continue
		}
		var total float64
		for _, b := range h.Bars {
			total += b.TradingValue
		}
		scored = append(scored, ranked{symbol: sym, mean: total / float64(h.Len())})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].mean > scored[j].mean })

	n := r.TopN
	if n > len(scored) {
		n = len(scored)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = scored[i].symbol
	}
	return out, nil
}
