package models

import "time"

// Notification представляет уведомление о событии для UI
type Notification struct {
	Timestamp  time.Time              `json:"timestamp"`
	Type       string                 `json:"type"`     // OPEN, CLOSE, ERROR, RISK_PAUSE, CLOSE_FAIL
	Severity   string                 `json:"severity"` // info, warn, error
	Instrument string                 `json:"instrument,omitempty"`
	Message    string                 `json:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Типы уведомлений
const (
	NotificationTypeOpen      = "OPEN"       // вход в позицию
	NotificationTypeClose     = "CLOSE"      // закрытие позиции
	NotificationTypeError     = "ERROR"      // ошибка API/ордера
	NotificationTypeRiskPause = "RISK_PAUSE" // риск-лимит заблокировал торговлю
	NotificationTypeCloseFail = "CLOSE_FAIL" // выход не удался, позиция заморожена
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
