package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/models"
	"github.com/neuralprobe/d4/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	f()
	assertCloseNoError(t, w)
	os.Stdout = orig

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

func assertCloseNoError(t *testing.T, f *os.File) {
	t.Helper()
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPrintAccountSummaryReportsCashAndTotalValue(t *testing.T) {
	store := storage.NewMockStorage()
	pos := models.NewPosition("AAA", 10, 12, 100, 0, "", 0, time.Now())
	pos.MarketValue = 120
	require.NoError(t, store.SaveSnapshot(500, map[string]*models.Position{"AAA": pos}, nil))

	out := captureStdout(t, func() { printAccountSummary(store) })
	assert.Contains(t, out, "Cash: $500.00")
	assert.Contains(t, out, "Open positions: 1")
	assert.Contains(t, out, "Total value: $620.00")
}

func TestPrintPositionsTableRendersNoOpenPositions(t *testing.T) {
	store := storage.NewMockStorage()
	out := captureStdout(t, func() { printPositionsTable(store) })
	assert.Contains(t, out, "No open positions.")
}

func TestPrintDecisionSummaryCountsBuysAndSells(t *testing.T) {
	store := storage.NewMockStorage()
	_ = store.AppendHistory([]models.DecisionRecord{
		{Symbol: "AAA", Buy: true, Timestamp: time.Now()},
		{Symbol: "AAA", Sell: true, Timestamp: time.Now()},
		{Symbol: "BBB", Buy: true, Timestamp: time.Now()},
	})

	out := captureStdout(t, func() { printDecisionSummary(store) })
	assert.Contains(t, out, "Decisions recorded: 3")
	assert.Contains(t, out, "buys: 2")
	assert.Contains(t, out, "sells: 1")
}
