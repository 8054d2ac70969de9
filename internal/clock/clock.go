// Package clock drives the engine's logical timeline, in either
// backtest or live mode, gated on a market calendar.
package clock

import (
	"fmt"
	"time"
)

// Mode selects whether the clock advances a logical timeline or tracks
// wall-clock time.
type Mode int

const (
	// Backtest advances current by exactly one minute per Tick call.
	Backtest Mode = iota
	// Live re-reads wall-clock time on every Tick call.
	Live
)

// CalendarProvider resolves valid trading days for a date range, the
// thin external collaborator spec section 6 names.
type CalendarProvider interface {
	ValidDays(start, end time.Time, loc *time.Location) ([]time.Time, error)
}

// Clock is the engine's logical/wall-clock timeline with market-calendar
// gating (spec section 4.A).
type Clock struct {
	mode     Mode
	loc      *time.Location
	start    time.Time
	end      time.Time
	current  time.Time
	calendar CalendarProvider

	startHour, startMin, endHour, endMin int

	openDates map[string]bool
}

// New constructs a Clock. start/end must already be in loc.
func New(mode Mode, start, end time.Time, loc *time.Location, calendar CalendarProvider, startHour, startMin, endHour, endMin int) *Clock {
	return &Clock{
		mode:      mode,
		loc:       loc,
		start:     start,
		end:       end,
		current:   start,
		calendar:  calendar,
		startHour: startHour, startMin: startMin, endHour: endHour, endMin: endMin,
	}
}

// Current returns the clock's current time.
func (c *Clock) Current() time.Time {
	return c.current
}

// Start returns the clock's configured start time.
func (c *Clock) Start() time.Time {
	return c.start
}

// End returns the clock's configured end time.
func (c *Clock) End() time.Time {
	return c.end
}

// Done reports whether the clock has passed its end time; the end
// minute itself is not yet done, so a backtest processes it.
func (c *Clock) Done() bool {
	return c.current.After(c.end)
}

// Tick advances the clock by one step: exactly one minute in Backtest
// mode, or a fresh wall-clock read in Live mode.
func (c *Clock) Tick() {
	switch c.mode {
	case Backtest:
		c.current = c.current.Add(time.Minute)
	case Live:
		c.current = time.Now().In(c.loc)
	}
}

// Sync forces current to wall-clock time regardless of mode; used by the
// live scheduler to resync between callback invocations.
func (c *Clock) Sync() {
	c.current = time.Now().In(c.loc)
}

// ensureOpenDates lazily materializes and caches the valid trading days
// for [start,end] from the external calendar provider.
func (c *Clock) ensureOpenDates() error {
	if c.openDates != nil {
		return nil
	}
	days, err := c.calendar.ValidDays(c.start, c.end, c.loc)
	if err != nil {
		return fmt.Errorf("resolving market calendar: %w", err)
	}
	c.openDates = make(map[string]bool, len(days))
	for _, d := range days {
		c.openDates[d.Format("2006-01-02")] = true
	}
	return nil
}

// IsMarketOpen reports whether current falls on a valid trading day and
// within the configured [start,end] trading window, inclusive on both
// ends (spec section 4.A).
func (c *Clock) IsMarketOpen() (bool, error) {
	if err := c.ensureOpenDates(); err != nil {
		return false, err
	}
	if !c.openDates[c.current.Format("2006-01-02")] {
		return false, nil
	}
	h, m := c.current.Hour(), c.current.Minute()
	afterStart := h > c.startHour || (h == c.startHour && m >= c.startMin)
	beforeEnd := h < c.endHour || (h == c.endHour && m <= c.endMin)
	return afterStart && beforeEnd, nil
}
