package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"sniper/internal/models"
)

// ============================================================
// RejectionRepository Tests
// ============================================================

func TestRejectionRepositoryCreate(t *testing.T) {
	occurredAt := time.Now()

	tests := []struct {
		name        string
		event       *models.RejectionEvent
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success",
			event: &models.RejectionEvent{
				Instrument: "BTC-USDT",
				Stage:      models.StageSetup,
				Reason:     models.ReasonWeakBreakout,
				Detail:     "strength=0.50 bps < min=1.50",
				OccurredAt: occurredAt,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO rejections`).
					WithArgs("BTC-USDT", models.StageSetup, models.ReasonWeakBreakout,
						"strength=0.50 bps < min=1.50", occurredAt).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
		},
		{
			name: "database error",
			event: &models.RejectionEvent{
				Instrument: "ETH-USDT",
				Stage:      models.StageExecution,
				Reason:     models.ReasonWideSpread,
				OccurredAt: occurredAt,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO rejections`).
					WillReturnError(errors.New("connection refused"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)
			repo := NewRejectionRepository(db)

			err = repo.Create(context.Background(), tt.event)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.event.ID == 0 {
				t.Error("ID should be set from RETURNING")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestRejectionRepositoryGetRecent(t *testing.T) {
	occurredAt := time.Now()
	columns := []string{"id", "instrument", "stage", "reason", "detail", "occurred_at"}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM rejections ORDER BY occurred_at DESC`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "ETH-USDT", models.StageExecution, models.ReasonRisk, "exit cooldown", occurredAt).
			AddRow(1, "BTC-USDT", models.StageSetup, models.ReasonNoBreakout, "close below high", occurredAt))

	repo := NewRejectionRepository(db)
	events, err := repo.GetRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Reason != models.ReasonRisk || events[1].Reason != models.ReasonNoBreakout {
		t.Errorf("unexpected reasons: %s, %s", events[0].Reason, events[1].Reason)
	}
}

func TestRejectionRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM rejections`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "instrument", "stage", "reason", "detail", "occurred_at"}))

	repo := NewRejectionRepository(db)
	_, err = repo.GetByID(context.Background(), 42)
	if !errors.Is(err, ErrRejectionNotFound) {
		t.Errorf("err = %v, want ErrRejectionNotFound", err)
	}
}

func TestRejectionRepositoryPurgeOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM rejections WHERE occurred_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 15))

	repo := NewRejectionRepository(db)
	deleted, err := repo.PurgeOlderThan(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 15 {
		t.Errorf("deleted = %d, want 15", deleted)
	}
}
