package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sniper/internal/models"
)

// Ошибки репозитория отбраковок
var (
	ErrRejectionNotFound = errors.New("rejection not found")
)

// RejectionRepository - работа с журналом отбракованных сигналов
// (таблица rejections). Записи пишутся асинхронно логгером отбраковок
// и читаются операторским API для диагностики фильтров.
type RejectionRepository struct {
	db *sql.DB
}

// NewRejectionRepository создает новый экземпляр репозитория
func NewRejectionRepository(db *sql.DB) *RejectionRepository {
	return &RejectionRepository{db: db}
}

// Create записывает событие отбраковки
func (r *RejectionRepository) Create(ctx context.Context, event *models.RejectionEvent) error {
	query := `
		INSERT INTO rejections (instrument, stage, reason, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		event.Instrument,
		event.Stage,
		event.Reason,
		event.Detail,
		event.OccurredAt,
	).Scan(&event.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает событие по ID
func (r *RejectionRepository) GetByID(ctx context.Context, id int) (*models.RejectionEvent, error) {
	query := `
		SELECT id, instrument, stage, reason, detail, occurred_at
		FROM rejections
		WHERE id = $1`

	event := &models.RejectionEvent{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Instrument,
		&event.Stage,
		&event.Reason,
		&event.Detail,
		&event.OccurredAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRejectionNotFound
		}
		return nil, err
	}

	return event, nil
}

// GetRecent возвращает последние события, новые первыми
func (r *RejectionRepository) GetRecent(ctx context.Context, limit int) ([]*models.RejectionEvent, error) {
	query := `
		SELECT id, instrument, stage, reason, detail, occurred_at
		FROM rejections
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.RejectionEvent
	for rows.Next() {
		event := &models.RejectionEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Instrument,
			&event.Stage,
			&event.Reason,
			&event.Detail,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// PurgeOlderThan удаляет события старше возраста.
// Журнал отбраковок растет быстро: вызывается периодически из main.
func (r *RejectionRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	query := `DELETE FROM rejections WHERE occurred_at < $1`

	res, err := r.db.ExecContext(ctx, query, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
