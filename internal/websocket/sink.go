package websocket

import "sniper/internal/models"

// EngineSink транслирует события ядра в broadcast сообщения hub.
// Все методы неблокирующие: Broadcast отбрасывает сообщение
// при переполненном канале вместо ожидания.
type EngineSink struct {
	hub *Hub
}

// NewEngineSink создает адаптер событий над hub
func NewEngineSink(hub *Hub) *EngineSink {
	return &EngineSink{hub: hub}
}

// PositionUpdate рассылает состояние позиции (nil = позиции нет)
func (s *EngineSink) PositionUpdate(p *models.Position) {
	s.hub.BroadcastPosition(p)
}

// CandidateUpdate рассылает вооруженного кандидата
func (s *EngineSink) CandidateUpdate(c *models.ArmedCandidate) {
	s.hub.BroadcastCandidate(c)
}

// TradeClosed рассылает завершенную сделку
func (s *EngineSink) TradeClosed(t *models.TradeRecord) {
	s.hub.BroadcastTradeClosed(t)
}

// Notify рассылает уведомление
func (s *EngineSink) Notify(n *models.Notification) {
	s.hub.BroadcastNotification(n)
}
