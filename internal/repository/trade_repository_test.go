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
// TradeRepository Tests
// ============================================================

func TestNewTradeRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewTradeRepository(db)
	if repo == nil {
		t.Fatal("NewTradeRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestTradeRepositoryCreate(t *testing.T) {
	closedAt := time.Now()

	tests := []struct {
		name        string
		trade       *models.TradeRecord
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
		wantID      int
	}{
		{
			name: "success - profitable trade",
			trade: &models.TradeRecord{
				Instrument: "BTC-USDT",
				EntryPrice: 100,
				ExitPrice:  101,
				Size:       1,
				PnlUSDT:    0.8,
				PnlPct:     0.8,
				ExitType:   models.ExitTypeTPSL,
				ClosedAt:   closedAt,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO trades`).
					WithArgs("BTC-USDT", 100.0, 101.0, 1.0, 0.8, 0.8, 0.0,
						models.ExitTypeTPSL, 0.0, 0.0, 0.0, 0.0, 0.0, closedAt).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
			},
			wantID: 7,
		},
		{
			name: "zero closed_at filled automatically",
			trade: &models.TradeRecord{
				Instrument: "ETH-USDT",
				EntryPrice: 2000,
				ExitPrice:  1990,
				Size:       0.05,
				PnlUSDT:    -0.7,
				PnlPct:     -0.7,
				ExitType:   models.ExitTypeTrailing,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO trades`).
					WithArgs("ETH-USDT", 2000.0, 1990.0, 0.05, -0.7, -0.7, 0.0,
						models.ExitTypeTrailing, 0.0, 0.0, 0.0, 0.0, 0.0, sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
			},
			wantID: 8,
		},
		{
			name: "database error",
			trade: &models.TradeRecord{
				Instrument: "BTC-USDT",
				ClosedAt:   closedAt,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO trades`).
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
			repo := NewTradeRepository(db)

			err = repo.Create(context.Background(), tt.trade)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.trade.ID != tt.wantID {
				t.Errorf("ID = %d, want %d", tt.trade.ID, tt.wantID)
			}
			if tt.trade.ClosedAt.IsZero() {
				t.Error("ClosedAt should be set")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestTradeRepositoryGetByID(t *testing.T) {
	closedAt := time.Now()
	columns := []string{
		"id", "instrument", "entry_price", "exit_price", "size", "pnl_usdt",
		"pnl_pct", "hold_seconds", "exit_type", "tp_bps", "sl_bps", "atr",
		"imbalance", "breakout_bps", "closed_at",
	}

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT (.+) FROM trades`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(3, "BTC-USDT", 100.0, 101.0, 1.0, 0.8, 0.8, 45.0,
					models.ExitTypeTPSL, 40.0, 20.0, 1.0, 1.5, 10.0, closedAt))

		repo := NewTradeRepository(db)
		trade, err := repo.GetByID(context.Background(), 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trade.ID != 3 || trade.Instrument != "BTC-USDT" || trade.PnlUSDT != 0.8 {
			t.Errorf("unexpected trade: %+v", trade)
		}
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT (.+) FROM trades`).
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows(columns))

		repo := NewTradeRepository(db)
		_, err = repo.GetByID(context.Background(), 99)
		if !errors.Is(err, ErrTradeNotFound) {
			t.Errorf("err = %v, want ErrTradeNotFound", err)
		}
	})
}

func TestTradeRepositoryGetRecent(t *testing.T) {
	closedAt := time.Now()
	columns := []string{
		"id", "instrument", "entry_price", "exit_price", "size", "pnl_usdt",
		"pnl_pct", "hold_seconds", "exit_type", "tp_bps", "sl_bps", "atr",
		"imbalance", "breakout_bps", "closed_at",
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM trades ORDER BY closed_at DESC`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "ETH-USDT", 2000.0, 2010.0, 0.05, 0.3, 0.3, 60.0,
				models.ExitTypeTrailing, 40.0, 20.0, 20.0, 1.8, 5.0, closedAt).
			AddRow(1, "BTC-USDT", 100.0, 99.0, 1.0, -1.2, -1.2, 120.0,
				models.ExitTypeTPSL, 40.0, 20.0, 1.0, 1.5, 10.0, closedAt))

	repo := NewTradeRepository(db)
	trades, err := repo.GetRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].Instrument != "ETH-USDT" || trades[1].Instrument != "BTC-USDT" {
		t.Errorf("unexpected order: %s, %s", trades[0].Instrument, trades[1].Instrument)
	}
}

func TestTradeRepositoryGetStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM trades`).
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "sum", "avg", "max", "min", "wins", "losses",
		}).AddRow(10, 5.5, 0.55, 2.0, -1.5, 6, 4))

	mock.ExpectQuery(`SELECT (.+) FROM trades WHERE closed_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, 1.2))

	repo := NewTradeRepository(db)
	stats, err := repo.GetStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalTrades != 10 || stats.TotalPnl != 5.5 {
		t.Errorf("totals = %d/%v, want 10/5.5", stats.TotalTrades, stats.TotalPnl)
	}
	if stats.Wins != 6 || stats.Losses != 4 {
		t.Errorf("wins/losses = %d/%d, want 6/4", stats.Wins, stats.Losses)
	}
	if stats.WinRate != 0.6 {
		t.Errorf("WinRate = %v, want 0.6", stats.WinRate)
	}
	if stats.TodayTrades != 3 || stats.TodayPnl != 1.2 {
		t.Errorf("today = %d/%v, want 3/1.2", stats.TodayTrades, stats.TodayPnl)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTradeRepositoryGetStatsEmptyJournal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM trades`).
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "sum", "avg", "max", "min", "wins", "losses",
		}).AddRow(0, 0.0, 0.0, 0.0, 0.0, 0, 0))

	mock.ExpectQuery(`SELECT (.+) FROM trades WHERE closed_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(0, 0.0))

	repo := NewTradeRepository(db)
	stats, err := repo.GetStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.WinRate != 0 {
		t.Errorf("WinRate = %v, пустой журнал не должен делить на ноль", stats.WinRate)
	}
}
