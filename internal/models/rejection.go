package models

import "time"

// RejectionEvent представляет отфильтрованный сигнал.
// Это НЕ ошибка: отбраковка - нормальный исход работы фильтров.
// События дедуплицируются по ключу (инструмент, стадия, причина)
// в пределах окна rate limit.
type RejectionEvent struct {
	ID         int       `json:"id" db:"id"`
	Instrument string    `json:"instrument" db:"instrument"`
	Stage      string    `json:"stage" db:"stage"`
	Reason     string    `json:"reason" db:"reason"`
	Detail     string    `json:"detail" db:"detail"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

// Стадии отбраковки
const (
	StageSetup     = "Setup"     // сканирование пробоя
	StageExecution = "Execution" // подтверждение входа
)

// Причины отбраковки
const (
	ReasonNoBreakout     = "No Breakout"
	ReasonWeakBreakout   = "Weak Breakout"
	ReasonDeadZone       = "In Dead Zone"
	ReasonLowATR         = "Low ATR"
	ReasonLowRR          = "Low R:R"
	ReasonStaleCandidate = "Stale Candidate"
	ReasonRisk           = "Risk"
	ReasonWideSpread     = "Wide Spread"
	ReasonNoConfirmation = "Confirmations Failed"
)
