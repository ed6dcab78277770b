package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"sniper/internal/config"
	"sniper/internal/exchange"
	"sniper/internal/models"
)

// Ёмкость очереди рыночных событий инструмента. Переполнение означает,
// что consumer не успевает: лишние события отбрасываются с метрикой,
// не блокируя ingestion.
const instrumentQueueSize = 256

// Вид рыночного события в очереди инструмента
type marketEventKind int

const (
	eventBook marketEventKind = iota
	eventTrade
)

type marketEvent struct {
	kind  marketEventKind
	book  *exchange.BookUpdate
	trade *exchange.TradePrint
}

// instrumentState - состояние одного инструмента hot set.
// Агрегатор и серия свечей принадлежат consumer-горутине (single
// writer); снимок стакана и последняя цена защищены snapMu, так как
// читаются из других горутин (монитор позиции, API).
type instrumentState struct {
	queue chan marketEvent
	done  chan struct{}
	agg   *BarAggregator

	snapMu    sync.RWMutex
	book      *models.BookTicker
	lastPrice float64
}

// Engine - ядро: владеет hot set-ом инструментов, очередями и
// consumer-горутинами, маршрутизирует события биржи.
//
// Модель: ingestion (callbacks биржи) публикует каждое рыночное событие
// в буферизованную очередь своего инструмента; выделенный consumer на
// инструмент прогоняет setup- и confirmation-сканы по порядку. Порядок
// событий внутри инструмента сохраняется, инструменты идут параллельно.
type Engine struct {
	cfg  *config.Config
	exch exchange.Exchange

	detector  *SignalDetector
	gate      *ExecutionGate
	lifecycle *PositionLifecycle
	risk      *RiskManager
	rejects   *RejectionLogger
	sink      EventSink

	mu          sync.RWMutex
	instruments map[string]*instrumentState

	stopped bool // под mu; после Stop новые инструменты не добавляются

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startedAt time.Time
}

// NewEngine собирает ядро из компонентов
func NewEngine(
	cfg *config.Config,
	exch exchange.Exchange,
	risk *RiskManager,
	rejects *RejectionLogger,
	finalizer *TradeFinalizer,
	detector *SignalDetector,
	sink EventSink,
) *Engine {
	if sink == nil {
		sink = noopSink{}
	}

	e := &Engine{
		cfg:         cfg,
		exch:        exch,
		detector:    detector,
		risk:        risk,
		rejects:     rejects,
		sink:        sink,
		instruments: make(map[string]*instrumentState),
	}

	e.lifecycle = NewPositionLifecycle(cfg.Trading, exch, risk, finalizer, sink, e.LastPrice)
	e.gate = NewExecutionGate(cfg.Trading, detector, risk, e.lifecycle, rejects)

	return e
}

// Lifecycle возвращает машину состояний позиции (для API)
func (e *Engine) Lifecycle() *PositionLifecycle {
	return e.lifecycle
}

// Detector возвращает детектор сигналов (для API)
func (e *Engine) Detector() *SignalDetector {
	return e.detector
}

// StartedAt возвращает время запуска ядра
func (e *Engine) StartedAt() time.Time {
	return e.startedAt
}

// Start запускает ядро: регистрирует обработчики событий биржи,
// подписывается на приватный канал ордеров и поднимает монитор
// позиции. Без приватного канала исполнения не приходят и позиции
// зависают, поэтому ошибка подписки фатальна.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.startedAt = time.Now()

	e.exch.SetHandlers(exchange.Handlers{
		OnBook:  e.onBook,
		OnTrade: e.onTrade,
		OnOrder: e.lifecycle.HandleOrderUpdate,
		OnAlgo:  e.lifecycle.HandleAlgoFill,
	})

	if err := e.exch.SubscribePrivate(); err != nil {
		e.cancel()
		return fmt.Errorf("subscribe private: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.lifecycle.Monitor(e.ctx)
	}()

	SetPositionState(stateAbsent)
	log.Printf("✅ Engine started")
	return nil
}

// Stop останавливает consumer-горутины и монитор
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}

	e.mu.Lock()
	e.stopped = true
	for inst, st := range e.instruments {
		close(st.done)
		delete(e.instruments, inst)
	}
	e.mu.Unlock()

	e.wg.Wait()
	log.Printf("✅ Engine stopped")
}

// ============================================================
// Hot set
// ============================================================

// ApplyHotSet применяет дифф сканера: добавляет новые инструменты,
// убирает выбывшие. Инструмент с активной позицией не удаляется -
// позиция должна дожить до выхода с рыночными данными.
func (e *Engine) ApplyHotSet(added, removed []string) {
	var toSubscribe []string
	for _, inst := range added {
		if e.risk.IsExcluded(inst) {
			continue
		}
		e.addInstrument(inst)
		toSubscribe = append(toSubscribe, inst)
	}

	var toUnsubscribe []string
	for _, inst := range removed {
		if p := e.lifecycle.Position(); p != nil && p.Instrument == inst {
			log.Printf("⚠️ Keeping %s despite scanner removal: active position", inst)
			continue
		}
		if e.removeInstrument(inst) {
			toUnsubscribe = append(toUnsubscribe, inst)
		}
	}

	if len(toSubscribe) > 0 {
		if err := e.exch.SubscribeMarket(toSubscribe); err != nil {
			log.Printf("⚠️ Subscribe failed: %v", err)
		}
	}
	if len(toUnsubscribe) > 0 {
		if err := e.exch.UnsubscribeMarket(toUnsubscribe); err != nil {
			log.Printf("⚠️ Unsubscribe failed: %v", err)
		}
	}

	HotSetSize.Set(float64(e.hotSetLen()))
}

func (e *Engine) addInstrument(inst string) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if _, exists := e.instruments[inst]; exists {
		e.mu.Unlock()
		return
	}

	st := &instrumentState{
		queue: make(chan marketEvent, instrumentQueueSize),
		done:  make(chan struct{}),
		agg:   NewBarAggregator(e.cfg.Trading.BarPeriod, e.cfg.Trading.BarCapacity, e.exch.Now),
	}
	e.instruments[inst] = st
	// wg.Add под mu: Stop выставляет stopped до wg.Wait, поэтому
	// Add не может гнаться с Wait
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		e.consume(inst, st)
	}()

	log.Printf("➕ Watching %s", inst)
}

// removeInstrument убирает инструмент. Возвращает true если он был.
func (e *Engine) removeInstrument(inst string) bool {
	e.mu.Lock()
	st, exists := e.instruments[inst]
	if exists {
		delete(e.instruments, inst)
	}
	e.mu.Unlock()

	if !exists {
		return false
	}

	close(st.done)
	e.detector.DropCandidate(inst)
	log.Printf("➖ Dropped %s", inst)
	return true
}

// HotSet возвращает текущий список отслеживаемых инструментов
func (e *Engine) HotSet() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.instruments))
	for inst := range e.instruments {
		out = append(out, inst)
	}
	return out
}

func (e *Engine) hotSetLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.instruments)
}

// ============================================================
// Ingestion: callbacks биржи → очереди инструментов
// ============================================================

func (e *Engine) state(inst string) *instrumentState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.instruments[inst]
}

// publish кладет событие в очередь инструмента без блокировки.
// Полная очередь означает отставание consumer-а: событие отбрасывается.
func (e *Engine) publish(inst string, ev marketEvent) {
	st := e.state(inst)
	if st == nil {
		return // инструмент не в hot set (поздние события после отписки)
	}

	select {
	case st.queue <- ev:
	default:
		QueueDropped.WithLabelValues(inst).Inc()
	}
}

func (e *Engine) onBook(b *exchange.BookUpdate) {
	if b.BidPrice <= 0 || b.AskPrice <= 0 {
		return
	}
	e.publish(b.Instrument, marketEvent{kind: eventBook, book: b})
}

func (e *Engine) onTrade(t *exchange.TradePrint) {
	if t.Price <= 0 {
		return
	}
	e.publish(t.Instrument, marketEvent{kind: eventTrade, trade: t})
}

// ============================================================
// Consumer: один на инструмент
// ============================================================

// consume обрабатывает события инструмента по порядку.
// Завершается по done (удаление инструмента или Stop); сама очередь
// не закрывается - publish может гнаться с удалением.
func (e *Engine) consume(inst string, st *instrumentState) {
	for {
		select {
		case <-st.done:
			return
		case ev := <-st.queue:
			switch ev.kind {
			case eventBook:
				e.applyBook(inst, st, ev.book)
			case eventTrade:
				e.applyTrade(inst, st, ev.trade)
			}
		}
	}
}

// applyBook обновляет снимок стакана и запускает confirmation-скан
func (e *Engine) applyBook(inst string, st *instrumentState, b *exchange.BookUpdate) {
	book := &models.BookTicker{
		BidPrice:  b.BidPrice,
		BidQty:    b.BidQty,
		AskPrice:  b.AskPrice,
		AskQty:    b.AskQty,
		UpdatedAt: b.Timestamp,
	}

	st.snapMu.Lock()
	st.book = book
	st.snapMu.Unlock()

	e.gate.Evaluate(inst, st.agg.Series(), book)
}

// applyTrade кормит агрегатор свечей и запускает оба скана
func (e *Engine) applyTrade(inst string, st *instrumentState, t *exchange.TradePrint) {
	TicksProcessed.WithLabelValues(inst).Inc()

	st.snapMu.Lock()
	st.lastPrice = t.Price
	st.snapMu.Unlock()

	if closed := st.agg.AddTick(t.Price, t.Size); closed != nil {
		BarsClosed.WithLabelValues(inst).Inc()
	}

	if c := e.detector.Scan(inst, st.agg.Series()); c != nil {
		log.Printf("🎯 Candidate armed: %s entry=%.8f strength=%.1f bps rr=%.2f",
			c.Instrument, c.EntryPrice, c.BreakoutStrengthBps, c.RiskReward)
		e.sink.CandidateUpdate(c)
	}

	st.snapMu.RLock()
	book := st.book
	st.snapMu.RUnlock()

	e.gate.Evaluate(inst, st.agg.Series(), book)
}

// ============================================================
// Снимки для монитора и API
// ============================================================

// LastPrice возвращает последнюю цену сделки инструмента
// (0 если данных нет)
func (e *Engine) LastPrice(inst string) float64 {
	st := e.state(inst)
	if st == nil {
		return 0
	}
	st.snapMu.RLock()
	defer st.snapMu.RUnlock()
	return st.lastPrice
}

// Book возвращает снимок стакана инструмента (nil если данных нет)
func (e *Engine) Book(inst string) *models.BookTicker {
	st := e.state(inst)
	if st == nil {
		return nil
	}
	st.snapMu.RLock()
	defer st.snapMu.RUnlock()
	return st.book
}
