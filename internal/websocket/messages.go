package websocket

import "sniper/internal/models"

// ============ Типизированные сообщения (без map[string]interface{}) ============
// Избегаем рефлексии при сериализации - Go оптимизирует для известных типов

// Типы broadcast сообщений
const (
	MessageTypeTick      = "tickUpdate"
	MessageTypeCandidate = "candidateUpdate"
	MessageTypePosition  = "positionUpdate"
	MessageTypeTrade     = "tradeClosed"
	MessageTypeNotify    = "notification"
)

// TickUpdateMessage - последняя цена инструмента из hot set
type TickUpdateMessage struct {
	Type       string  `json:"type"`
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
}

// CandidateUpdateMessage - вооруженный кандидат на вход
type CandidateUpdateMessage struct {
	Type string                 `json:"type"`
	Data *models.ArmedCandidate `json:"data"`
}

// PositionUpdateMessage - состояние позиции.
// Data == nil означает, что позиции нет (flat).
type PositionUpdateMessage struct {
	Type string           `json:"type"`
	Data *models.Position `json:"data"`
}

// TradeClosedMessage - завершенная сделка с итоговым PnL
type TradeClosedMessage struct {
	Type string              `json:"type"`
	Data *models.TradeRecord `json:"data"`
}

// NotificationMessage - уведомление о событии (вход, выход, ошибка, риск-пауза)
type NotificationMessage struct {
	Type string               `json:"type"`
	Data *models.Notification `json:"data"`
}
