package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"sniper/internal/bot"
	"sniper/internal/models"
	"sniper/internal/repository"
)

// ErrMockDatabase - ошибка БД для тестов
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock Engine ============

type mockEngine struct {
	hotSet    []string
	prices    map[string]float64
	startedAt time.Time
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		hotSet:    []string{"BTC-USDT", "ETH-USDT"},
		prices:    map[string]float64{"BTC-USDT": 50123.5, "ETH-USDT": 2500.25},
		startedAt: time.Now().Add(-time.Hour),
	}
}

func (m *mockEngine) HotSet() []string                    { return m.hotSet }
func (m *mockEngine) LastPrice(instrument string) float64 { return m.prices[instrument] }
func (m *mockEngine) StartedAt() time.Time                { return m.startedAt }

// ============ Mock Lifecycle ============

type mockLifecycle struct {
	mu         sync.Mutex
	position   *models.Position
	unrealized float64
	clearErr   error
	cleared    bool
}

func (m *mockLifecycle) Position() *models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *mockLifecycle) UnrealizedPnl() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unrealized
}

func (m *mockLifecycle) ClearFailed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	m.position = nil
	return nil
}

// ============ Mock Detector ============

type mockDetector struct {
	candidates []*models.ArmedCandidate
}

func (m *mockDetector) Candidates() []*models.ArmedCandidate { return m.candidates }

// ============ Mock Risk ============

type mockRisk struct {
	mu       sync.Mutex
	snapshot bot.RiskSnapshot
	resets   int
}

func (m *mockRisk) Snapshot() bot.RiskSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *mockRisk) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *mockRisk) resetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// ============ Mock Stats Service ============

type MockStatsService struct {
	mu        sync.RWMutex
	stats     *models.TradeStats
	trades    []*models.TradeRecord
	byID      map[int]*models.TradeRecord
	getErr    error
	lastLimit int
}

func NewMockStatsService() *MockStatsService {
	return &MockStatsService{
		byID: make(map[int]*models.TradeRecord),
	}
}

func (m *MockStatsService) SetStats(stats *models.TradeStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
}

func (m *MockStatsService) SetTrades(trades []*models.TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = trades
	for _, tr := range trades {
		m.byID[tr.ID] = tr
	}
}

func (m *MockStatsService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

func (m *MockStatsService) GetStats(ctx context.Context) (*models.TradeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.stats, nil
}

func (m *MockStatsService) GetRecentTrades(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.trades, nil
}

func (m *MockStatsService) GetTrade(ctx context.Context, id int) (*models.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	trade, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrTradeNotFound
	}
	return trade, nil
}

func (m *MockStatsService) seenLimit() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLimit
}

// ============ Mock Rejection Service ============

type MockRejectionService struct {
	mu     sync.RWMutex
	events []*models.RejectionEvent
	getErr error
}

func NewMockRejectionService() *MockRejectionService {
	return &MockRejectionService{}
}

func (m *MockRejectionService) SetEvents(events []*models.RejectionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = events
}

func (m *MockRejectionService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

func (m *MockRejectionService) GetRecent(ctx context.Context, limit int) ([]*models.RejectionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.events, nil
}
