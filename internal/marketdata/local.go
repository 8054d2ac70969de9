package marketdata

import (
	"context"
	"time"

	"github.com/neuralprobe/d4/internal/models"
)

// LocalProvider serves bars from an in-memory fixture, the offline
// fallback the Python original's LocalDataFetcher stub gestured at but
// never completed. Used for backtests run against pre-recorded data and
// in tests.
type LocalProvider struct {
	// Hourly and Minute hold every known bar per symbol for their
	// timeframe, pre-sorted by timestamp ascending.
	Hourly map[string][]models.Bar
	Minute map[string][]models.Bar
}

// NewLocalProvider constructs an empty fixture provider ready for Set
// calls.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{Hourly: make(map[string][]models.Bar), Minute: make(map[string][]models.Bar)}
}

// SetHourly installs a symbol's hourly fixture bars.
func (l *LocalProvider) SetHourly(symbol string, bars []models.Bar) {
	l.Hourly[symbol] = bars
}

// SetMinute installs a symbol's minute fixture bars.
func (l *LocalProvider) SetMinute(symbol string, bars []models.Bar) {
	l.Minute[symbol] = bars
}

// GetBars implements Provider by slicing the fixture to [start,end].
func (l *LocalProvider) GetBars(ctx context.Context, symbols []string, tf Timeframe, start, end time.Time) (map[string][]models.Bar, error) {
	source := l.Hourly
	if tf == Minute {
		source = l.Minute
	}
	out := make(map[string][]models.Bar)
	for _, sym := range symbols {
		var matched []models.Bar
		for _, b := range source[sym] {
			if (b.Timestamp.Equal(start) || b.Timestamp.After(start)) && (b.Timestamp.Equal(end) || b.Timestamp.Before(end)) {
				matched = append(matched, b)
			}
		}
		if len(matched) > 0 {
			out[sym] = matched
		}
	}
	return out, nil
}
