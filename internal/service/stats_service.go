package service

import (
	"context"

	"sniper/internal/models"
)

// Лимиты выборки журнала для операторского API
const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// StatsService предоставляет бизнес-логику журнала сделок.
//
// Функции:
// - GetStats: агрегированная статистика (всего/сегодня, win rate)
// - GetRecentTrades: последние сделки с клампингом лимита
//
// Сервис тонкий: вся агрегация в SQL, здесь только валидация входа.
type StatsService struct {
	trades TradeRepositoryInterface
}

// NewStatsService создает новый экземпляр StatsService
func NewStatsService(trades TradeRepositoryInterface) *StatsService {
	return &StatsService{trades: trades}
}

// GetStats возвращает агрегированную статистику журнала
func (s *StatsService) GetStats(ctx context.Context) (*models.TradeStats, error) {
	return s.trades.GetStats(ctx)
}

// GetRecentTrades возвращает последние сделки.
// Лимит вне диапазона [1, maxJournalLimit] заменяется дефолтом.
func (s *StatsService) GetRecentTrades(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 || limit > maxJournalLimit {
		limit = defaultJournalLimit
	}
	return s.trades.GetRecent(ctx, limit)
}

// GetTrade возвращает сделку по ID
func (s *StatsService) GetTrade(ctx context.Context, id int) (*models.TradeRecord, error) {
	return s.trades.GetByID(ctx, id)
}
