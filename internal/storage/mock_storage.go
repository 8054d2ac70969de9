package storage

import (
	"sync"

	"github.com/neuralprobe/d4/internal/models"
)

// MockStorage implements Interface for testing callers that depend on
// storage without touching disk.
type MockStorage struct {
	mu            sync.RWMutex
	saveError     error
	loadError     error
	cash          float64
	positions     map[string]*models.Position
	openOrders    map[string]string
	history       []models.DecisionRecord
	saveCallCount int
	loadCallCount int
}

// NewMockStorage creates a new mock storage for testing.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		positions:  make(map[string]*models.Position),
		openOrders: make(map[string]string),
	}
}

// Save simulates saving data.
func (m *MockStorage) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCallCount++
	return m.saveError
}

// Load simulates loading data.
func (m *MockStorage) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCallCount++
	return m.loadError
}

// GetCash returns the mock cash balance.
func (m *MockStorage) GetCash() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash
}

// GetPositions returns a copy of the mock position table.
func (m *MockStorage) GetPositions() map[string]*models.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*models.Position, len(m.positions))
	for sym, p := range m.positions {
		cp := *p
		out[sym] = &cp
	}
	return out
}

// GetOpenOrders returns a copy of the mock open-orders table.
func (m *MockStorage) GetOpenOrders() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.openOrders))
	for k, v := range m.openOrders {
		out[k] = v
	}
	return out
}

// SaveSnapshot records cash/positions/open-orders and counts as a save.
func (m *MockStorage) SaveSnapshot(cash float64, positions map[string]*models.Position, openOrders map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCallCount++
	if m.saveError != nil {
		return m.saveError
	}
	m.cash = cash
	clonedPositions := make(map[string]*models.Position, len(positions))
	for sym, p := range positions {
		cp := *p
		clonedPositions[sym] = &cp
	}
	m.positions = clonedPositions
	clonedOrders := make(map[string]string, len(openOrders))
	for k, v := range openOrders {
		clonedOrders[k] = v
	}
	m.openOrders = clonedOrders
	return nil
}

// AppendHistory records executed decisions.
func (m *MockStorage) AppendHistory(records []models.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, records...)
	return nil
}

// GetHistory returns the mock executed-decision history.
func (m *MockStorage) GetHistory() []models.DecisionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DecisionRecord, len(m.history))
	copy(out, m.history)
	return out
}

// SetSaveError configures the mock to return an error on Save/SaveSnapshot calls.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetLoadError configures the mock to return an error on Load calls.
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

// GetSaveCallCount returns the number of times Save/SaveSnapshot was called.
func (m *MockStorage) GetSaveCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCallCount
}

// GetLoadCallCount returns the number of times Load was called.
func (m *MockStorage) GetLoadCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCallCount
}

// Ensure MockStorage implements Interface.
var _ Interface = (*MockStorage)(nil)
