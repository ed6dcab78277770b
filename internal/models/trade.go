package models

import "time"

// TradeRecord представляет завершенную сделку для журнала и статистики.
// Записывается в БД финализатором после подтвержденного выхода.
type TradeRecord struct {
	ID          int       `json:"id" db:"id"`
	Instrument  string    `json:"instrument" db:"instrument"`
	EntryPrice  float64   `json:"entry_price" db:"entry_price"`
	ExitPrice   float64   `json:"exit_price" db:"exit_price"`
	Size        float64   `json:"size" db:"size"`
	PnlUSDT     float64   `json:"pnl_usdt" db:"pnl_usdt"`
	PnlPct      float64   `json:"pnl_pct" db:"pnl_pct"`
	HoldSeconds float64   `json:"hold_seconds" db:"hold_seconds"`
	ExitType    string    `json:"exit_type" db:"exit_type"`
	TPBps       float64   `json:"tp_bps" db:"tp_bps"`
	SLBps       float64   `json:"sl_bps" db:"sl_bps"`
	ATR         float64   `json:"atr" db:"atr"`
	Imbalance   float64   `json:"imbalance" db:"imbalance"`
	BreakoutBps float64   `json:"breakout_bps" db:"breakout_bps"`
	ClosedAt    time.Time `json:"closed_at" db:"closed_at"`
}

// TradeStats представляет агрегированную статистику по журналу сделок
type TradeStats struct {
	TotalTrades int     `json:"total_trades"`
	TotalPnl    float64 `json:"total_pnl"`
	TodayTrades int     `json:"today_trades"`
	TodayPnl    float64 `json:"today_pnl"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"` // доля прибыльных сделок, 0..1
	AvgPnl      float64 `json:"avg_pnl"`
	BestTrade   float64 `json:"best_trade"`
	WorstTrade  float64 `json:"worst_trade"`
}
