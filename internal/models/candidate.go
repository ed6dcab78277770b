package models

import "time"

// ArmedCandidate представляет обнаруженный пробой, ожидающий подтверждения.
// На инструмент существует не более одного кандидата одновременно.
// Кандидат живет ограниченное время (CandidateTTL в конфиге), после чего
// отбрасывается как "Stale Candidate".
type ArmedCandidate struct {
	Instrument          string    `json:"instrument"`
	EntryPrice          float64   `json:"entry_price"`
	TPPrice             float64   `json:"tp_price"`
	SLPrice             float64   `json:"sl_price"`
	TPBps               float64   `json:"tp_bps"`
	SLBps               float64   `json:"sl_bps"`
	ATR                 float64   `json:"atr"`
	BreakoutStrengthBps float64   `json:"breakout_strength_bps"`
	RiskReward          float64   `json:"risk_reward"`
	ArmedAt             time.Time `json:"armed_at"`
}

// Expired проверяет, истек ли срок жизни кандидата
func (c *ArmedCandidate) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.ArmedAt) > ttl
}
