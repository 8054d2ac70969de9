package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAssembleWorkbookGroupsCSVsIntoSheetsByKind(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	wall := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	reg := NewSinkRegistry()
	accountWriter, err := NewWriter(reg, dir, FileName("d4", KindAccount, start, end, wall), []string{"date", "cash"})
	require.NoError(t, err)
	require.NoError(t, accountWriter.WriteRow([]string{"2026-01-02", "10000"}))

	orderWriter, err := NewWriter(reg, dir, FileName("d4", KindOrder, start, end, wall), []string{"symbol", "side"})
	require.NoError(t, err)
	require.NoError(t, orderWriter.WriteRow([]string{"AAA", "buy"}))
	require.NoError(t, reg.CloseAll())

	outPath, err := AssembleWorkbook(dir, "d4", start, end, wall)
	require.NoError(t, err)

	wb, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer wb.Close()

	sheets := wb.GetSheetList()
	assert.Contains(t, sheets, string(KindAccount))
	assert.Contains(t, sheets, string(KindOrder))
	assert.NotContains(t, sheets, "Sheet1")

	rows, err := wb.GetRows(string(KindOrder))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"AAA", "buy"}, rows[1])
}

func TestAssembleWorkbookWritesDefaultSheetWhenNoCSVsMatch(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	wall := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	outPath, err := AssembleWorkbook(dir, "d4", start, end, wall)
	require.NoError(t, err)

	wb, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Default"}, wb.GetSheetList())
}
