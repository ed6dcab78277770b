package service

import (
	"context"
	"sync"
	"time"

	"sniper/internal/models"
)

// ============================================================
// Ручные моки репозиториев для тестов сервисов
// ============================================================

type mockTradeRepository struct {
	created     []*models.TradeRecord
	trades      []*models.TradeRecord
	stats       *models.TradeStats
	lastLimit   int
	createErr   error
	getErr      error
	statsErr    error
	notFoundErr error
}

func (m *mockTradeRepository) Create(ctx context.Context, trade *models.TradeRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, trade)
	return nil
}

func (m *mockTradeRepository) GetByID(ctx context.Context, id int) (*models.TradeRecord, error) {
	if m.notFoundErr != nil {
		return nil, m.notFoundErr
	}
	for _, tr := range m.trades {
		if tr.ID == id {
			return tr, nil
		}
	}
	return nil, m.getErr
}

func (m *mockTradeRepository) GetRecent(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	m.lastLimit = limit
	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit > len(m.trades) {
		limit = len(m.trades)
	}
	return m.trades[:limit], nil
}

func (m *mockTradeRepository) GetStats(ctx context.Context) (*models.TradeStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

type mockRejectionRepository struct {
	mu        sync.Mutex
	created   []*models.RejectionEvent
	events    []*models.RejectionEvent
	lastLimit int
	purged    int64
	purgeAge  time.Duration
	createErr error
	getErr    error
	purgeErr  error
}

func (m *mockRejectionRepository) Create(ctx context.Context, event *models.RejectionEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, event)
	return nil
}

func (m *mockRejectionRepository) GetRecent(ctx context.Context, limit int) ([]*models.RejectionEvent, error) {
	m.lastLimit = limit
	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit > len(m.events) {
		limit = len(m.events)
	}
	return m.events[:limit], nil
}

func (m *mockRejectionRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	m.mu.Lock()
	m.purgeAge = age
	m.mu.Unlock()
	if m.purgeErr != nil {
		return 0, m.purgeErr
	}
	return m.purged, nil
}

func (m *mockRejectionRepository) seenPurgeAge() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeAge
}
