package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBacktestWindowRequiresBothFlags(t *testing.T) {
	_, _, err := parseBacktestWindow("", "2026-08-03T09:31:00-04:00", time.UTC)
	assert.ErrorIs(t, err, errBacktestWindowRequired)

	_, _, err = parseBacktestWindow("2026-08-03T09:31:00-04:00", "", time.UTC)
	assert.ErrorIs(t, err, errBacktestWindowRequired)
}

func TestParseBacktestWindowParsesRFC3339InLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start, end, err := parseBacktestWindow("2026-08-03T09:31:00-04:00", "2026-08-03T15:59:00-04:00", loc)
	require.NoError(t, err)
	assert.Equal(t, 9, start.Hour())
	assert.Equal(t, 31, start.Minute())
	assert.Equal(t, 15, end.Hour())
	assert.Equal(t, 59, end.Minute())
}

func TestDefaultCandidatesIsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, defaultCandidates())
}
