package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sniper/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - работа с журналом завершенных сделок (таблица trades)
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create записывает завершенную сделку
func (r *TradeRepository) Create(ctx context.Context, trade *models.TradeRecord) error {
	query := `
		INSERT INTO trades (instrument, entry_price, exit_price, size, pnl_usdt, pnl_pct, hold_seconds, exit_type, tp_bps, sl_bps, atr, imbalance, breakout_bps, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	if trade.ClosedAt.IsZero() {
		trade.ClosedAt = time.Now()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		trade.Instrument,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Size,
		trade.PnlUSDT,
		trade.PnlPct,
		trade.HoldSeconds,
		trade.ExitType,
		trade.TPBps,
		trade.SLBps,
		trade.ATR,
		trade.Imbalance,
		trade.BreakoutBps,
		trade.ClosedAt,
	).Scan(&trade.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает сделку по ID
func (r *TradeRepository) GetByID(ctx context.Context, id int) (*models.TradeRecord, error) {
	query := `
		SELECT id, instrument, entry_price, exit_price, size, pnl_usdt, pnl_pct, hold_seconds, exit_type, tp_bps, sl_bps, atr, imbalance, breakout_bps, closed_at
		FROM trades
		WHERE id = $1`

	trade := &models.TradeRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&trade.ID,
		&trade.Instrument,
		&trade.EntryPrice,
		&trade.ExitPrice,
		&trade.Size,
		&trade.PnlUSDT,
		&trade.PnlPct,
		&trade.HoldSeconds,
		&trade.ExitType,
		&trade.TPBps,
		&trade.SLBps,
		&trade.ATR,
		&trade.Imbalance,
		&trade.BreakoutBps,
		&trade.ClosedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	return trade, nil
}

// GetRecent возвращает последние сделки, новые первыми
func (r *TradeRepository) GetRecent(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, instrument, entry_price, exit_price, size, pnl_usdt, pnl_pct, hold_seconds, exit_type, tp_bps, sl_bps, atr, imbalance, breakout_bps, closed_at
		FROM trades
		ORDER BY closed_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade := &models.TradeRecord{}
		err := rows.Scan(
			&trade.ID,
			&trade.Instrument,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.Size,
			&trade.PnlUSDT,
			&trade.PnlPct,
			&trade.HoldSeconds,
			&trade.ExitType,
			&trade.TPBps,
			&trade.SLBps,
			&trade.ATR,
			&trade.Imbalance,
			&trade.BreakoutBps,
			&trade.ClosedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetStats возвращает агрегированную статистику журнала сделок
func (r *TradeRepository) GetStats(ctx context.Context) (*models.TradeStats, error) {
	stats := &models.TradeStats{}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(pnl_usdt), 0),
			COALESCE(AVG(pnl_usdt), 0),
			COALESCE(MAX(pnl_usdt), 0),
			COALESCE(MIN(pnl_usdt), 0),
			COUNT(*) FILTER (WHERE pnl_usdt > 0),
			COUNT(*) FILTER (WHERE pnl_usdt < 0)
		FROM trades`

	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalTrades,
		&stats.TotalPnl,
		&stats.AvgPnl,
		&stats.BestTrade,
		&stats.WorstTrade,
		&stats.Wins,
		&stats.Losses,
	)
	if err != nil {
		return nil, err
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalTrades)
	}

	// Сегодняшний срез по UTC
	today := time.Now().UTC().Truncate(24 * time.Hour)
	todayQuery := `
		SELECT COUNT(*), COALESCE(SUM(pnl_usdt), 0)
		FROM trades
		WHERE closed_at >= $1`

	err = r.db.QueryRowContext(ctx, todayQuery, today).Scan(
		&stats.TodayTrades,
		&stats.TodayPnl,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
