package models

import "time"

// Position представляет единственную активную позицию движка.
// Глобально существует 0 или 1 экземпляр: структурный инвариант,
// защищаемый единым position lock, а не настройкой.
type Position struct {
	Instrument     string    `json:"instrument"`
	State          string    `json:"state"` // PENDING_ENTRY, OPEN, CLOSING, CLOSING_FAILED
	EntryOrderID   string    `json:"entry_order_id"`
	AttachAlgoID   string    `json:"attach_algo_id,omitempty"` // OCO TP/SL, прикрепленный при входе
	EntryPrice     float64   `json:"entry_price"`
	EntrySize      float64   `json:"entry_size"`
	EntryFee       float64   `json:"entry_fee"`
	TPPrice        float64   `json:"tp_price"`
	SLPrice        float64   `json:"sl_price"`
	TPBps          float64   `json:"tp_bps"`
	SLBps          float64   `json:"sl_bps"`
	ATR            float64   `json:"atr"`
	RiskReward     float64   `json:"risk_reward"`
	Imbalance      float64   `json:"imbalance"`       // дисбаланс стакана в момент входа
	BreakoutBps    float64   `json:"breakout_bps"`    // сила пробоя из кандидата
	PeakPrice      float64   `json:"peak_price"`      // максимум цены с момента входа, не убывает
	TrailingActive bool      `json:"trailing_active"` // трейлинг-стоп активирован
	OpenedAt       time.Time `json:"opened_at"`       // время создания (PENDING_ENTRY)
	FilledAt       time.Time `json:"filled_at"`       // время фактического исполнения входа
	ExitOrderID    string    `json:"exit_order_id,omitempty"`
	ExitPrice      float64   `json:"exit_price,omitempty"`
	ExitFee        float64   `json:"exit_fee,omitempty"`
	ExitType       string    `json:"exit_type,omitempty"` // TP/SL_HIT, MAX_HOLD_TIME, TRAILING_STOP
}

// Состояния позиции (state machine)
const (
	PositionPendingEntry  = "PENDING_ENTRY"  // ордер принят биржей, исполнение не подтверждено
	PositionOpen          = "OPEN"           // вход исполнен, позиция удерживается
	PositionClosing       = "CLOSING"        // отправлен ордер на выход
	PositionClosingFailed = "CLOSING_FAILED" // выход не удался, требуется вмешательство оператора
)

// Типы выхода из позиции
const (
	ExitTypeTPSL     = "TP/SL_HIT"     // сработал прикрепленный TP/SL ордер
	ExitTypeMaxHold  = "MAX_HOLD_TIME" // превышено максимальное время удержания
	ExitTypeTrailing = "TRAILING_STOP" // цена пробила трейлинг-стоп
)
