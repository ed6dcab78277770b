package websocket

import (
	"bytes"
	"log"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"sniper/internal/models"
)

var jsonFast = jsoniter.ConfigCompatibleWithStandardLibrary

// ============ ОПТИМИЗАЦИЯ: sync.Pool для JSON буферов ============
// Убирает аллокации при каждом Broadcast (tickUpdate идет на каждый трейд)

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512)) // начальный размер 512 байт
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер для broadcast сообщений всем подключенным клиентам
// операторского UI. Обеспечивает real-time поток состояния движка без polling.
//
// Типы сообщений:
// - tickUpdate: последняя цена инструмента
// - candidateUpdate: вооруженный кандидат на вход
// - positionUpdate: состояние позиции (data=null когда позиции нет)
// - tradeClosed: завершенная сделка с PnL
// - notification: событие (вход, выход, ошибка, риск-пауза)
//
// Использование:
// 1. Создать hub: hub := NewHub()
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.BroadcastPosition(pos) и т.д.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	// Остановка цикла Run
	stop chan struct{}

	// Счетчик сообщений, отброшенных при переполнении broadcast
	dropped atomic.Int64

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Обрабатывает регистрацию, отмену регистрации и broadcast
//
// Порядок при broadcast: копируем список под коротким RLock,
// отправляем без блокировки, медленных клиентов удаляем под Write Lock.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client connected. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Client disconnected. Total clients: %d", len(h.clients))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			// Отправляем без блокировки (не блокируем register/unregister)
			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает обрабатывать сообщения - помечаем для удаления
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				log.Printf("Removed %d slow clients. Total clients: %d", len(toRemove), len(h.clients))
			}
		}
	}
}

// Broadcast сериализует сообщение и отправляет его всем подключенным клиентам.
// Не блокирует вызывающего: канал broadcast буферизован, при переполнении
// сообщение отбрасывается (UI переживет пропущенный тик).
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := jsonFast.NewEncoder(buf).Encode(message); err != nil {
		log.Printf("Error marshaling broadcast message: %v", err)
		jsonBufferPool.Put(buf)
		return
	}

	// Убираем trailing newline от Encode
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Копируем данные (буфер вернётся в пул)
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	select {
	case h.broadcast <- msgCopy:
	default:
		h.dropped.Add(1)
	}
}

// Stop останавливает цикл Run и закрывает каналы всех клиентов
func (h *Hub) Stop() {
	close(h.stop)
}

// DroppedMessages возвращает число сообщений, отброшенных
// из-за переполненного broadcast канала
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}

// BroadcastTick отправляет последнюю цену инструмента
func (h *Hub) BroadcastTick(instrument string, price float64) {
	h.Broadcast(&TickUpdateMessage{
		Type:       MessageTypeTick,
		Instrument: instrument,
		Price:      price,
	})
}

// BroadcastCandidate отправляет вооруженного кандидата
func (h *Hub) BroadcastCandidate(candidate *models.ArmedCandidate) {
	h.Broadcast(&CandidateUpdateMessage{
		Type: MessageTypeCandidate,
		Data: candidate,
	})
}

// BroadcastPosition отправляет состояние позиции.
// nil означает отсутствие позиции - клиент очищает панель.
func (h *Hub) BroadcastPosition(position *models.Position) {
	h.Broadcast(&PositionUpdateMessage{
		Type: MessageTypePosition,
		Data: position,
	})
}

// BroadcastTradeClosed отправляет завершенную сделку
func (h *Hub) BroadcastTradeClosed(record *models.TradeRecord) {
	h.Broadcast(&TradeClosedMessage{
		Type: MessageTypeTrade,
		Data: record,
	})
}

// BroadcastNotification отправляет уведомление
func (h *Hub) BroadcastNotification(notification *models.Notification) {
	h.Broadcast(&NotificationMessage{
		Type: MessageTypeNotify,
		Data: notification,
	})
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
