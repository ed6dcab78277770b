package exchange

import (
	"context"
	"time"
)

// Exchange определяет интерфейс биржи, необходимый торговому ядру.
// Единственная реализация - OKX spot, но ядро зависит только от интерфейса
// (тесты подставляют фейк).
type Exchange interface {
	// Connect проверяет учетные данные и синхронизирует серверное время
	Connect(ctx context.Context) error

	// GetName возвращает имя биржи
	GetName() string

	// Now возвращает текущее время, скорректированное на смещение
	// серверных часов биржи. Используется для выравнивания свечей.
	Now() time.Time

	// GetBalance получает доступный баланс в валюте котировки
	GetBalance(ctx context.Context, currency string) (float64, error)

	// GetInstrumentMeta получает точность цены/объёма инструмента
	GetInstrumentMeta(ctx context.Context, instID string) (*InstrumentMeta, error)

	// GetTickers24h получает 24h статистику всех спотовых инструментов
	// (для сканера волатильных пар)
	GetTickers24h(ctx context.Context) ([]*Ticker24h, error)

	// PlaceEntryWithExits размещает рыночный вход с прикрепленным OCO
	// (TP + SL). Возвращает ID ордера и ID attach-algo.
	PlaceEntryWithExits(ctx context.Context, req *EntryRequest) (orderID, algoID string, err error)

	// PlaceMarketExit размещает рыночный выход по всей позиции
	PlaceMarketExit(ctx context.Context, instID string, size float64) (orderID string, err error)

	// CancelAlgo отменяет attach-algo ордер (OCO)
	CancelAlgo(ctx context.Context, instID, algoID string) error

	// CancelOrder отменяет обычный ордер
	CancelOrder(ctx context.Context, instID, orderID string) error

	// GetOrderState запрашивает состояние ордера по REST
	// (fallback когда приватный WS молчит)
	GetOrderState(ctx context.Context, instID, orderID string) (*OrderUpdate, error)

	// SubscribeMarket подписывается на bbo-tbt и trades каналы инструментов
	SubscribeMarket(instruments []string) error

	// UnsubscribeMarket отписывается от каналов инструментов
	UnsubscribeMarket(instruments []string) error

	// SubscribePrivate подписывается на orders канал (исполнения)
	SubscribePrivate() error

	// SetHandlers устанавливает обработчики событий рынка и аккаунта.
	// Вызывается один раз до подписок.
	SetHandlers(h Handlers)

	// Close закрывает соединения с биржей
	Close() error
}

// Handlers - callbacks для асинхронных событий биржи
type Handlers struct {
	OnBook  func(*BookUpdate)  // top-of-book обновление
	OnTrade func(*TradePrint)  // рыночная сделка
	OnOrder func(*OrderUpdate) // изменение состояния ордера
	OnAlgo  func(*AlgoFill)    // исполнение attach-algo (TP/SL)
}

// BookUpdate - обновление лучших цен стакана (bbo-tbt)
type BookUpdate struct {
	Instrument string    `json:"instrument"`
	BidPrice   float64   `json:"bid_price"`
	BidQty     float64   `json:"bid_qty"`
	AskPrice   float64   `json:"ask_price"`
	AskQty     float64   `json:"ask_qty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TradePrint - рыночная сделка из trades канала
type TradePrint struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Side       string    `json:"side"` // buy / sell (сторона тейкера)
	Timestamp  time.Time `json:"timestamp"`
}

// OrderUpdate - событие изменения состояния ордера
type OrderUpdate struct {
	Instrument   string    `json:"instrument"`
	OrderID      string    `json:"order_id"`
	ClientID     string    `json:"client_id"`
	AlgoID       string    `json:"algo_id,omitempty"` // клиентский ID прикрепленного OCO, если ордер создан им
	State        string    `json:"state"` // live, partially_filled, filled, canceled
	AvgFillPrice float64   `json:"avg_fill_price"`
	FilledSize   float64   `json:"filled_size"`
	Fee          float64   `json:"fee"` // абсолютная величина комиссии в USDT
	Timestamp    time.Time `json:"timestamp"`
}

// AlgoFill - исполнение прикрепленного TP/SL (OCO)
type AlgoFill struct {
	Instrument string    `json:"instrument"`
	AlgoID     string    `json:"algo_id"`
	LastPrice  float64   `json:"last_price"`
	Size       float64   `json:"size"`
	Fee        float64   `json:"fee"` // абсолютная величина комиссии выхода
	Timestamp  time.Time `json:"timestamp"`
}

// EntryRequest - запрос рыночного входа с прикрепленными выходами
type EntryRequest struct {
	Instrument string
	Side       string  // buy для long-only стратегии
	Size       float64 // объём в базовой валюте
	TPPrice    float64
	SLPrice    float64
	ClientID   string // клиентский ID для сопоставления событий
}

// InstrumentMeta - точность и лимиты инструмента
type InstrumentMeta struct {
	Instrument string  `json:"instrument"`
	TickSize   float64 `json:"tick_size"` // шаг цены
	LotSize    float64 `json:"lot_size"`  // шаг объёма
	MinSize    float64 `json:"min_size"`  // минимальный объём ордера
}

// Ticker24h - суточная статистика инструмента (для сканера)
type Ticker24h struct {
	Instrument string  `json:"instrument"`
	Last       float64 `json:"last"`
	High24h    float64 `json:"high_24h"`
	Low24h     float64 `json:"low_24h"`
	VolUSDT    float64 `json:"vol_usdt"` // 24h объём в валюте котировки
}

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Side constants
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order state constants (формат OKX)
const (
	OrderStateLive      = "live"
	OrderStatePartially = "partially_filled"
	OrderStateFilled    = "filled"
	OrderStateCanceled  = "canceled"
)
