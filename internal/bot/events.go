package bot

import "sniper/internal/models"

// EventSink - приемник событий ядра для операторского UI.
// Реализуется адаптером над websocket hub; все методы должны быть
// неблокирующими (ядро не ждет медленных подписчиков).
type EventSink interface {
	// PositionUpdate сообщает новое состояние позиции (nil = позиции нет)
	PositionUpdate(p *models.Position)

	// CandidateUpdate сообщает о взведении кандидата
	CandidateUpdate(c *models.ArmedCandidate)

	// TradeClosed сообщает о завершенной сделке
	TradeClosed(t *models.TradeRecord)

	// Notify отправляет уведомление
	Notify(n *models.Notification)
}

// noopSink - заглушка для тестов и работы без UI
type noopSink struct{}

func (noopSink) PositionUpdate(*models.Position)        {}
func (noopSink) CandidateUpdate(*models.ArmedCandidate) {}
func (noopSink) TradeClosed(*models.TradeRecord)        {}
func (noopSink) Notify(*models.Notification)            {}
