package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCalendar struct {
	days []time.Time
}

func (f fixedCalendar) ValidDays(start, end time.Time, loc *time.Location) ([]time.Time, error) {
	return f.days, nil
}

func TestBacktestClockAdvancesOneMinutePerTick(t *testing.T) {
	loc := time.UTC
	start := time.Date(2024, 7, 1, 9, 31, 0, 0, loc)
	end := time.Date(2024, 7, 1, 9, 33, 0, 0, loc)
	cal := fixedCalendar{days: []time.Time{time.Date(2024, 7, 1, 0, 0, 0, 0, loc)}}

	c := New(Backtest, start, end, loc, cal, 9, 31, 15, 59)
	assert.Equal(t, start, c.Current())
	c.Tick()
	assert.Equal(t, start.Add(time.Minute), c.Current())
	assert.False(t, c.Done())
}

func TestIsMarketOpenGatesOnCalendarAndWindow(t *testing.T) {
	loc := time.UTC
	start := time.Date(2024, 7, 1, 9, 30, 0, 0, loc)
	end := time.Date(2024, 7, 1, 16, 0, 0, 0, loc)
	cal := fixedCalendar{days: []time.Time{time.Date(2024, 7, 1, 0, 0, 0, 0, loc)}}
	c := New(Backtest, start, end, loc, cal, 9, 31, 15, 59)

	open, err := c.IsMarketOpen()
	require.NoError(t, err)
	assert.False(t, open, "09:30 is before the 09:31 window start")

	c.current = time.Date(2024, 7, 1, 9, 31, 0, 0, loc)
	open, err = c.IsMarketOpen()
	require.NoError(t, err)
	assert.True(t, open)

	c.current = time.Date(2024, 7, 1, 16, 0, 0, 0, loc)
	open, err = c.IsMarketOpen()
	require.NoError(t, err)
	assert.False(t, open, "16:00 is after the 15:59 window end")

	c.current = time.Date(2024, 7, 2, 10, 0, 0, 0, loc)
	open, err = c.IsMarketOpen()
	require.NoError(t, err)
	assert.False(t, open, "2024-07-02 is not in the cached open_dates")
}
