package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStorageSaveSnapshotRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine_state.json")

	s, err := NewJSONStorage(path)
	require.NoError(t, err)

	positions := map[string]*models.Position{
		"AAA": models.NewPosition("AAA", 10, 100, 1000, 90, "bb1_lower", 95, time.Now()),
	}
	openOrders := map[string]string{"BBB": "client-order-1"}

	require.NoError(t, s.SaveSnapshot(5000, positions, openOrders))

	reloaded, err := NewJSONStorage(path)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, reloaded.GetCash())
	assert.Equal(t, "client-order-1", reloaded.GetOpenOrders()["BBB"])
	p := reloaded.GetPositions()["AAA"]
	require.NotNil(t, p)
	assert.Equal(t, 10.0, p.Quantity)
	assert.Equal(t, 90.0, p.StopValue)
}

func TestJSONStorageAppendHistoryPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine_state.json")

	s, err := NewJSONStorage(path)
	require.NoError(t, err)

	rec := models.DecisionRecord{Symbol: "AAA", Buy: true, Price: 100, Timestamp: time.Now()}
	require.NoError(t, s.AppendHistory([]models.DecisionRecord{rec}))

	reloaded, err := NewJSONStorage(path)
	require.NoError(t, err)
	history := reloaded.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "AAA", history[0].Symbol)
}

func TestJSONStorageSnapshotDoesNotMutateCallerSlicesAfterSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine_state.json")
	s, err := NewJSONStorage(path)
	require.NoError(t, err)

	positions := map[string]*models.Position{
		"AAA": models.NewPosition("AAA", 1, 10, 10, 0, "", 0, time.Now()),
	}
	require.NoError(t, s.SaveSnapshot(100, positions, nil))

	positions["AAA"].Quantity = 999
	assert.Equal(t, 1.0, s.GetPositions()["AAA"].Quantity, "storage must hold its own copy, not alias the caller's position")
}

func testInterfaceConformance(t *testing.T, s Interface) {
	t.Helper()

	assert.Equal(t, 0.0, s.GetCash())
	assert.Empty(t, s.GetPositions())
	assert.Empty(t, s.GetOpenOrders())

	pos := map[string]*models.Position{"AAA": models.NewPosition("AAA", 1, 10, 10, 0, "", 0, time.Now())}
	require.NoError(t, s.SaveSnapshot(500, pos, map[string]string{"AAA": "c1"}))
	assert.Equal(t, 500.0, s.GetCash())
	assert.Len(t, s.GetPositions(), 1)

	require.NoError(t, s.AppendHistory([]models.DecisionRecord{{Symbol: "AAA", Buy: true}}))
	assert.Len(t, s.GetHistory(), 1)
}

func TestInterfaceConformance(t *testing.T) {
	t.Run("MockStorage", func(t *testing.T) {
		testInterfaceConformance(t, NewMockStorage())
	})
	t.Run("JSONStorage", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewJSONStorage(filepath.Join(dir, fmt.Sprintf("state-%d.json", time.Now().UnixNano())))
		require.NoError(t, err)
		testInterfaceConformance(t, s)
	})
}
