// Package storage persists the engine's Account/Positions snapshot and
// executed-decision history to a JSON file, so a restart resumes
// rather than starting from flat cash (spec section 4.F/4.G).
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/neuralprobe/d4/internal/models"
)

// JSONStorage implements Interface using JSON file persistence.
type JSONStorage struct {
	data     *Data
	filepath string
	mu       sync.RWMutex
}

// Data is the complete snapshot persisted to disk.
type Data struct {
	LastUpdated time.Time                   `json:"last_updated"`
	Cash        float64                     `json:"cash"`
	Positions   map[string]*models.Position `json:"positions"`
	OpenOrders  map[string]string           `json:"open_orders"` // symbol -> broker client_order_id
	History     []models.DecisionRecord     `json:"history"`     // every executed buy/sell decision
}

// NewJSONStorage creates a new JSON-based storage implementation,
// loading any existing snapshot at filePath.
func NewJSONStorage(filePath string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: filePath,
		data: &Data{
			Positions:  make(map[string]*models.Position),
			OpenOrders: make(map[string]string),
		},
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}

	if _, err := os.Stat(filePath); err == nil {
		if loadErr := s.Load(); loadErr != nil {
			return nil, fmt.Errorf("loading storage: %w", loadErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat storage file: %w", err)
	}

	return s, nil
}

// Load reads the snapshot from the JSON file.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return err
	}

	var loaded Data
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	s.data = &loaded

	if s.data.Positions == nil {
		s.data.Positions = make(map[string]*models.Position)
	}
	if s.data.OpenOrders == nil {
		s.data.OpenOrders = make(map[string]string)
	}

	return nil
}

// Save writes the current snapshot to the JSON file.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUnsafe()
}

// saveUnsafe performs the actual save operation without acquiring
// locks; must be called with the mutex already held.
func (s *JSONStorage) saveUnsafe() error {
	s.data.LastUpdated = time.Now().UTC()

	dir := filepath.Dir(s.filepath)
	f, err := os.CreateTemp(dir, ".storage-*")
	if err != nil {
		return err
	}
	tmpFile := f.Name()

	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	defer func() {
		if f != nil {
			_ = f.Close()
		}
		if tmpFile != "" {
			_ = os.Remove(tmpFile)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		f = nil
		return err
	}
	f = nil

	dirSynced := false
	if err := os.Rename(tmpFile, s.filepath); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
			if copyErr := s.copyFile(tmpFile, s.filepath); copyErr != nil {
				return fmt.Errorf("failed to copy temp file: %w", copyErr)
			}
			dirSynced = true
		} else {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
	}
	tmpFile = ""

	if !dirSynced {
		if err := s.syncParentDir(); err != nil {
			return fmt.Errorf("failed to sync parent directory: %w", err)
		}
	}

	return nil
}

// copyFile copies src to dst (for the cross-device rename fallback)
// then fsyncs the destination directory.
func (s *JSONStorage) copyFile(src, dst string) error {
	if err := s.validateFilePath(src); err != nil {
		return fmt.Errorf("invalid source path: %w", err)
	}
	if err := s.validateFilePath(dst); err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}

	srcFile, err := os.Open(src) // #nosec G304 - paths validated above
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	dstDir := filepath.Dir(dst)
	tmpFile, err := os.CreateTemp(dstDir, ".tmp_*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpFileName := tmpFile.Name()

	var tempFileClosed bool
	defer func() {
		if !tempFileClosed {
			_ = tmpFile.Close()
		}
		if tmpFileName != "" {
			_ = os.Remove(tmpFileName)
		}
	}()

	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}
	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tempFileClosed = true

	if err := os.Rename(tmpFileName, dst); err != nil {
		return fmt.Errorf("failed to rename temp file to destination: %w", err)
	}

	if err := s.validateFilePath(dstDir); err != nil {
		return fmt.Errorf("invalid destination directory path: %w", err)
	}
	if dir, err := os.Open(dstDir); err == nil { // #nosec G304 - path validated above
		defer func() { _ = dir.Close() }()
		if syncErr := dir.Sync(); syncErr != nil {
			return fmt.Errorf("failed to fsync destination directory: %w", syncErr)
		}
	}

	tmpFileName = ""
	return nil
}

// validateFilePath ensures path resolves to somewhere inside the
// storage directory, guarding the EXDEV fallback against traversal.
func (s *JSONStorage) validateFilePath(path string) error {
	storageRoot := filepath.Dir(s.filepath)
	storageRootAbs, err := filepath.Abs(filepath.Clean(storageRoot))
	if err != nil {
		return fmt.Errorf("failed to resolve storage root: %w", err)
	}
	storageRootResolved, err := filepath.EvalSymlinks(storageRootAbs)
	if err != nil {
		return fmt.Errorf("failed to resolve symlinks in storage root: %w", err)
	}

	targetAbs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve target path: %w", err)
	}

	var targetResolved string
	if _, statErr := os.Stat(targetAbs); statErr == nil {
		resolved, rerr := filepath.EvalSymlinks(targetAbs)
		if rerr != nil {
			return fmt.Errorf("failed to resolve symlinks in target: %w", rerr)
		}
		targetResolved = resolved
	} else if os.IsNotExist(statErr) {
		parentResolved, perr := filepath.EvalSymlinks(filepath.Dir(targetAbs))
		if perr != nil {
			return fmt.Errorf("failed to resolve symlinks in target parent: %w", perr)
		}
		targetResolved = filepath.Join(parentResolved, filepath.Base(targetAbs))
	} else {
		return fmt.Errorf("failed to stat target path: %w", statErr)
	}

	relPath, err := filepath.Rel(storageRootResolved, targetResolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("path escapes storage directory: %s (resolved to: %s)", path, targetResolved)
	}
	return nil
}

func (s *JSONStorage) syncParentDir() error {
	parentDir := filepath.Dir(s.filepath)
	dir, err := os.Open(parentDir) // #nosec G304 - path is storage root
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()
	return dir.Sync()
}

// GetCash returns the last persisted cash balance.
func (s *JSONStorage) GetCash() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Cash
}

// GetPositions returns a copy of every persisted position.
func (s *JSONStorage) GetPositions() map[string]*models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Position, len(s.data.Positions))
	for sym, p := range s.data.Positions {
		cp := *p
		out[sym] = &cp
	}
	return out
}

// GetOpenOrders returns the persisted symbol -> client_order_id map.
func (s *JSONStorage) GetOpenOrders() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data.OpenOrders))
	for k, v := range s.data.OpenOrders {
		out[k] = v
	}
	return out
}

// SaveSnapshot replaces cash, positions and open orders in one write,
// matching the every-tick write cadence spec section 4.I describes.
func (s *JSONStorage) SaveSnapshot(cash float64, positions map[string]*models.Position, openOrders map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Cash = cash
	clonedPositions := make(map[string]*models.Position, len(positions))
	for sym, p := range positions {
		cp := *p
		clonedPositions[sym] = &cp
	}
	s.data.Positions = clonedPositions

	clonedOrders := make(map[string]string, len(openOrders))
	for k, v := range openOrders {
		clonedOrders[k] = v
	}
	s.data.OpenOrders = clonedOrders

	return s.saveUnsafe()
}

// AppendHistory records newly executed decisions and saves.
func (s *JSONStorage) AppendHistory(records []models.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.History = append(s.data.History, records...)
	return s.saveUnsafe()
}

// GetHistory returns every executed decision recorded so far.
func (s *JSONStorage) GetHistory() []models.DecisionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DecisionRecord, len(s.data.History))
	copy(out, s.data.History)
	return out
}
