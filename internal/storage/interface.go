package storage

import "github.com/neuralprobe/d4/internal/models"

// Interface is the persistence contract the engine depends on: a
// snapshot of cash/positions/open-orders written every tick, plus an
// append-only executed-decision history for audit.
type Interface interface {
	Load() error
	Save() error

	GetCash() float64
	GetPositions() map[string]*models.Position
	GetOpenOrders() map[string]string
	SaveSnapshot(cash float64, positions map[string]*models.Position, openOrders map[string]string) error

	AppendHistory(records []models.DecisionRecord) error
	GetHistory() []models.DecisionRecord
}

var _ Interface = (*JSONStorage)(nil)
