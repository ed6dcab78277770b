package service

import (
	"context"
	"log"
	"time"

	"sniper/internal/models"
)

// RejectionService предоставляет бизнес-логику журнала отбраковок.
//
// Функции:
// - Record: приемник для логгера отбраковок (асинхронная запись)
// - GetRecent: последние события для диагностики фильтров
// - RunRetention: периодическая чистка старых событий
type RejectionService struct {
	rejections RejectionRepositoryInterface
}

// NewRejectionService создает новый экземпляр RejectionService
func NewRejectionService(rejections RejectionRepositoryInterface) *RejectionService {
	return &RejectionService{rejections: rejections}
}

// Record сохраняет событие отбраковки. Ошибка записи логируется,
// но не возвращается: телеметрия не должна ломать торговый цикл.
func (s *RejectionService) Record(event *models.RejectionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.rejections.Create(ctx, event); err != nil {
		log.Printf("⚠️ Failed to persist rejection for %s: %v", event.Instrument, err)
	}
}

// GetRecent возвращает последние события отбраковки.
// Лимит вне диапазона заменяется дефолтом.
func (s *RejectionService) GetRecent(ctx context.Context, limit int) ([]*models.RejectionEvent, error) {
	if limit <= 0 || limit > maxJournalLimit {
		limit = defaultJournalLimit
	}
	return s.rejections.GetRecent(ctx, limit)
}

// RunRetention периодически удаляет события старше maxAge до отмены
// контекста
func (s *RejectionService) RunRetention(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			deleted, err := s.rejections.PurgeOlderThan(purgeCtx, maxAge)
			cancel()
			if err != nil {
				log.Printf("⚠️ Rejection retention failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("🧹 Purged %d old rejection events", deleted)
			}
		}
	}
}
