package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNameIncludesPrefixKindAndStamps(t *testing.T) {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	wall := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	name := FileName("d4", KindOrder, start, end, wall)
	assert.Equal(t, "d4_order_20260102_20260131_20260201T093000.csv", name)
}

func TestWriterWritesHeaderOnceThenQuotesFieldsWithCommas(t *testing.T) {
	dir := t.TempDir()
	reg := NewSinkRegistry()
	w, err := NewWriter(reg, dir, "rows.csv", []string{"symbol", "note"})
	require.NoError(t, err)

	require.NoError(t, w.WriteRow([]string{"AAA", "plain"}))
	require.NoError(t, w.WriteRow([]string{"BBB", "has,comma"}))
	require.NoError(t, reg.CloseAll())

	content, err := os.ReadFile(filepath.Join(dir, "rows.csv")) // #nosec G304
	require.NoError(t, err)
	got := string(content)
	assert.Equal(t, "symbol,note\nAAA,plain\nBBB,\"has,comma\"\n", got)
}
