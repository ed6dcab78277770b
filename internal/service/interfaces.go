package service

import (
	"context"
	"time"

	"sniper/internal/models"
)

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	Create(ctx context.Context, trade *models.TradeRecord) error
	GetByID(ctx context.Context, id int) (*models.TradeRecord, error)
	GetRecent(ctx context.Context, limit int) ([]*models.TradeRecord, error)
	GetStats(ctx context.Context) (*models.TradeStats, error)
}

// RejectionRepositoryInterface определяет интерфейс репозитория отбраковок
type RejectionRepositoryInterface interface {
	Create(ctx context.Context, event *models.RejectionEvent) error
	GetRecent(ctx context.Context, limit int) ([]*models.RejectionEvent, error)
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
