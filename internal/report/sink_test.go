package report

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkRegistrySharesOneHandlePerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.csv")
	reg := NewSinkRegistry()

	a, err := reg.Open(path)
	require.NoError(t, err)
	b, err := reg.Open(path)
	require.NoError(t, err)

	assert.Same(t, a.s, b.s, "two Open calls against the same path must share one underlying file handle")
}

func TestSinkRegistryConcurrentWritesNeverInterleave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concurrent.csv")
	reg := NewSinkRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := reg.Open(path)
			require.NoError(t, err)
			require.NoError(t, s.WriteLine("row,value"))
		}()
	}
	wg.Wait()
	require.NoError(t, reg.CloseAll())

	content, err := os.ReadFile(path) // #nosec G304 -- test-local temp file
	require.NoError(t, err)
	lines := 0
	for _, b := range content {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 20, lines)
}
