package models

import "time"

// BookTicker - последний снимок лучших цен стакана инструмента
type BookTicker struct {
	BidPrice  float64   `json:"bid_price"`
	BidQty    float64   `json:"bid_qty"`
	AskPrice  float64   `json:"ask_price"`
	AskQty    float64   `json:"ask_qty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BidNotional возвращает notional лучшего бида в валюте котировки
func (b *BookTicker) BidNotional() float64 {
	return b.BidPrice * b.BidQty
}

// AskNotional возвращает notional лучшего аска в валюте котировки
func (b *BookTicker) AskNotional() float64 {
	return b.AskPrice * b.AskQty
}

// Imbalance возвращает отношение notional бида к notional аска.
// Ноль если аск пуст.
func (b *BookTicker) Imbalance() float64 {
	ask := b.AskNotional()
	if ask <= 0 {
		return 0
	}
	return b.BidNotional() / ask
}
