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

// PositionLifecycle - машина состояний единственной позиции движка.
//
// Состояния: absent → PENDING_ENTRY → OPEN → CLOSING → absent,
// с терминальной веткой CLOSING_FAILED (ручной сброс через API).
//
// Единый position lock (pl.mu) сериализует каждую последовательность
// "проверить-и-изменить" над позицией и удерживается через сетевой вызов
// размещения входа: раз позиция может быть только одна, корректность
// требует одной точки сериализации от проверки "позиции нет" до
// "позиция создана". Сниженный параллелизм - осознанная цена устранения
// гонки двойного входа между инструментами.
type PositionLifecycle struct {
	mu       sync.Mutex
	position *models.Position

	cfg       config.TradingConfig
	exch      exchange.Exchange
	risk      *RiskManager
	finalizer *TradeFinalizer
	sink      EventSink

	// Последняя цена сделки инструмента (снимок движка)
	lastPrice func(instrument string) float64

	clock func() time.Time
}

// NewPositionLifecycle создает lifecycle
func NewPositionLifecycle(
	cfg config.TradingConfig,
	exch exchange.Exchange,
	risk *RiskManager,
	finalizer *TradeFinalizer,
	sink EventSink,
	lastPrice func(string) float64,
) *PositionLifecycle {
	if sink == nil {
		sink = noopSink{}
	}
	return &PositionLifecycle{
		cfg:       cfg,
		exch:      exch,
		risk:      risk,
		finalizer: finalizer,
		sink:      sink,
		lastPrice: lastPrice,
		clock:     time.Now,
	}
}

// HasPosition проверяет наличие активной позиции
func (pl *PositionLifecycle) HasPosition() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.position != nil
}

// Position возвращает копию текущей позиции или nil
func (pl *PositionLifecycle) Position() *models.Position {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.position == nil {
		return nil
	}
	p := *pl.position
	return &p
}

// transitionLocked выполняет переход состояния с проверкой таблицы.
// Вызывается под pl.mu.
func (pl *PositionLifecycle) transitionLocked(to string) bool {
	from := stateAbsent
	if pl.position != nil {
		from = pl.position.State
	}
	if !CanTransition(from, to) {
		log.Printf("⚠️ Invalid position transition %q -> %q, ignored", from, to)
		return false
	}
	if to == stateAbsent {
		pl.position = nil
	} else {
		pl.position.State = to
	}
	SetPositionState(to)
	return true
}

// EnterPosition размещает рыночный вход по потребленному кандидату.
//
// Lock удерживается через сетевой вызов размещения: см. комментарий
// к типу. Неудачное размещение означает "позиция не создана".
func (pl *PositionLifecycle) EnterPosition(c *models.ArmedCandidate, imbalance float64) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	// Повторная проверка под lock: конкурентное подтверждение другого
	// инструмента могло успеть первым
	if pl.position != nil {
		return
	}

	size := pl.cfg.OrderNotionalUSDT / c.EntryPrice

	started := pl.clock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orderID, algoID, err := pl.exch.PlaceEntryWithExits(ctx, &exchange.EntryRequest{
		Instrument: c.Instrument,
		Side:       exchange.SideBuy,
		Size:       size,
		TPPrice:    c.TPPrice,
		SLPrice:    c.SLPrice,
	})
	if err != nil {
		log.Printf("❌ Entry failed for %s: %v", c.Instrument, err)
		if pl.risk.RecordOrderError(c.Instrument) {
			log.Printf("⚠️ %s excluded from trading after repeated order errors", c.Instrument)
		}
		pl.sink.Notify(&models.Notification{
			Timestamp:  pl.clock(),
			Type:       models.NotificationTypeError,
			Severity:   models.SeverityError,
			Instrument: c.Instrument,
			Message:    fmt.Sprintf("❌ Entry order failed for %s: %v", c.Instrument, err),
		})
		return
	}

	EntryLatency.Observe(float64(pl.clock().Sub(started).Milliseconds()))

	pl.position = &models.Position{
		Instrument:   c.Instrument,
		EntryOrderID: orderID,
		AttachAlgoID: algoID,
		EntryPrice:   c.EntryPrice, // уточнится ценой исполнения
		EntrySize:    size,
		TPPrice:      c.TPPrice,
		SLPrice:      c.SLPrice,
		TPBps:        c.TPBps,
		SLBps:        c.SLBps,
		ATR:          c.ATR,
		RiskReward:   c.RiskReward,
		Imbalance:    imbalance,
		BreakoutBps:  c.BreakoutStrengthBps,
		OpenedAt:     pl.clock(),
	}
	pl.transitionLocked(models.PositionPendingEntry)

	log.Printf("📤 Entry placed: %s size=%.8f tp=%.8f sl=%.8f (order %s)",
		c.Instrument, size, c.TPPrice, c.SLPrice, orderID)
	pl.sink.PositionUpdate(pl.snapshotLocked())
}

// snapshotLocked возвращает копию позиции для событий. Под pl.mu.
func (pl *PositionLifecycle) snapshotLocked() *models.Position {
	if pl.position == nil {
		return nil
	}
	p := *pl.position
	return &p
}

// HandleOrderUpdate обрабатывает событие изменения ордера из приватного
// канала. События с неизвестными ID игнорируются: цикл принятия решений
// не должен падать из-за чужого ордера.
func (pl *PositionLifecycle) HandleOrderUpdate(u *exchange.OrderUpdate) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	p := pl.position
	if p == nil || u.State != exchange.OrderStateFilled {
		return
	}

	switch {
	case u.OrderID == p.EntryOrderID && p.State == models.PositionPendingEntry:
		pl.applyEntryFillLocked(u.AvgFillPrice, u.FilledSize, u.Fee)

	case u.OrderID == p.ExitOrderID && p.State == models.PositionClosing:
		p.ExitPrice = u.AvgFillPrice
		p.ExitFee = u.Fee
		pl.finalizeLocked()
	}
}

// applyEntryFillLocked фиксирует исполнение входа. Под pl.mu.
func (pl *PositionLifecycle) applyEntryFillLocked(avgPrice, filledSize, fee float64) {
	p := pl.position

	if avgPrice > 0 {
		p.EntryPrice = avgPrice
	}
	if filledSize > 0 {
		p.EntrySize = filledSize
	}
	p.EntryFee = fee
	p.PeakPrice = p.EntryPrice
	p.FilledAt = pl.clock()
	pl.transitionLocked(models.PositionOpen)

	log.Printf("✅ Position OPEN: %s entry=%.8f size=%.8f fee=%.6f",
		p.Instrument, p.EntryPrice, p.EntrySize, p.EntryFee)
	pl.sink.Notify(&models.Notification{
		Timestamp:  pl.clock(),
		Type:       models.NotificationTypeOpen,
		Severity:   models.SeverityInfo,
		Instrument: p.Instrument,
		Message: fmt.Sprintf("✅ Opened %s @ %.8f (tp %.1f bps / sl %.1f bps)",
			p.Instrument, p.EntryPrice, p.TPBps, p.SLBps),
	})
	pl.sink.PositionUpdate(pl.snapshotLocked())
}

// HandleAlgoFill обрабатывает исполнение прикрепленного TP/SL.
// Биржа закрыла позицию сама: переход OPEN → finalize напрямую.
func (pl *PositionLifecycle) HandleAlgoFill(f *exchange.AlgoFill) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	p := pl.position
	if p == nil || f.AlgoID == "" || f.AlgoID != p.AttachAlgoID {
		return
	}
	if p.State != models.PositionOpen && p.State != models.PositionPendingEntry {
		return
	}

	p.ExitPrice = f.LastPrice
	p.ExitFee = f.Fee
	p.ExitType = models.ExitTypeTPSL
	pl.finalizeLocked()
}

// Monitor - поллер 1 Гц, независимый от частоты тиков: ограничивает
// худшую задержку реакции для таймаутов и трейлинга примерно секундой.
// Биржевые TP/SL остаются быстрым путем для ценовых выходов.
func (pl *PositionLifecycle) Monitor(ctx context.Context) {
	ticker := time.NewTicker(pl.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pl.checkPosition()
		}
	}
}

// checkPosition выполняет один проход монитора
func (pl *PositionLifecycle) checkPosition() {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	p := pl.position
	if p == nil {
		return
	}

	now := pl.clock()

	switch p.State {
	case models.PositionPendingEntry:
		if now.Sub(p.OpenedAt) > pl.cfg.PendingEntryExpiry {
			pl.resolvePendingTimeoutLocked()
		}

	case models.PositionOpen:
		price := pl.lastPrice(p.Instrument)
		if price > 0 {
			pl.updateTrailingLocked(price)
		}
		// updateTrailingLocked мог закрыть позицию
		if pl.position == nil || pl.position.State != models.PositionOpen {
			return
		}
		if !p.FilledAt.IsZero() && now.Sub(p.FilledAt) > pl.cfg.MaxHoldTime {
			log.Printf("⏱ Max hold time exceeded for %s, closing", p.Instrument)
			pl.forceCloseLocked(models.ExitTypeMaxHold)
		}
	}
}

// resolvePendingTimeoutLocked разбирает вход, не исполнившийся за таймаут.
// Запрашивает фактическое состояние ордера: исполнение могло потеряться
// при обрыве приватного WS. Под pl.mu.
func (pl *PositionLifecycle) resolvePendingTimeoutLocked() {
	p := pl.position

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := pl.exch.GetOrderState(ctx, p.Instrument, p.EntryOrderID)
	if err == nil && status.State == exchange.OrderStateFilled {
		log.Printf("✅ Pending entry %s was filled (recovered via REST)", p.EntryOrderID)
		pl.applyEntryFillLocked(status.AvgFillPrice, status.FilledSize, status.Fee)
		return
	}

	// Не исполнен: best-effort отмена algo и ордера, позиция отбрасывается
	// независимо от исхода отмен
	log.Printf("⏱ Pending entry timeout for %s, cancelling order %s", p.Instrument, p.EntryOrderID)

	if p.AttachAlgoID != "" {
		if err := pl.exch.CancelAlgo(ctx, p.Instrument, p.AttachAlgoID); err != nil {
			log.Printf("⚠️ Algo cancel failed for %s: %v", p.Instrument, err)
		}
	}
	if err := pl.exch.CancelOrder(ctx, p.Instrument, p.EntryOrderID); err != nil {
		log.Printf("⚠️ Order cancel failed for %s: %v", p.Instrument, err)
	}

	pl.transitionLocked(stateAbsent)
	pl.sink.PositionUpdate(nil)
}

// updateTrailingLocked обновляет пик и трейлинг-стоп. Под pl.mu.
//
// Пик не убывает. После подъема цены на TrailActivateBps над входом
// трейлинг активируется: прикрепленный TP/SL отменяется (он больше не
// представляет движущийся стоп) и выходом управляет монитор.
// Дистанция = max(ATR × TrailATRMult, entry × TrailMinBps/10000).
func (pl *PositionLifecycle) updateTrailingLocked(price float64) {
	p := pl.position

	if price > p.PeakPrice {
		p.PeakPrice = price
	}

	if !p.TrailingActive {
		activation := p.EntryPrice * (1 + pl.cfg.TrailActivateBps/10000)
		if price >= activation {
			p.TrailingActive = true
			log.Printf("📈 Trailing activated for %s at %.8f (entry %.8f)",
				p.Instrument, price, p.EntryPrice)

			if p.AttachAlgoID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := pl.exch.CancelAlgo(ctx, p.Instrument, p.AttachAlgoID)
				cancel()
				if err != nil {
					log.Printf("⚠️ OCO cancel failed for %s: %v", p.Instrument, err)
				} else {
					p.AttachAlgoID = ""
				}
			}
		}
		return
	}

	trail := p.ATR * pl.cfg.TrailATRMult
	if minTrail := p.EntryPrice * pl.cfg.TrailMinBps / 10000; minTrail > trail {
		trail = minTrail
	}

	if price <= p.PeakPrice-trail {
		log.Printf("📉 Trailing stop hit for %s: price=%.8f peak=%.8f trail=%.8f",
			p.Instrument, price, p.PeakPrice, trail)
		pl.forceCloseLocked(models.ExitTypeTrailing)
	}
}

// forceCloseLocked принудительно закрывает позицию по рынку. Под pl.mu.
//
// Порядок: CLOSING → отмена прикрепленного OCO → короткая пауза, чтобы
// отмена дошла до матчинга → рыночная продажа. Неудача продажи переводит
// в CLOSING_FAILED: автоматическое управление позицией прекращается.
func (pl *PositionLifecycle) forceCloseLocked(exitType string) {
	p := pl.position

	if !pl.transitionLocked(models.PositionClosing) {
		return
	}
	p.ExitType = exitType

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if p.AttachAlgoID != "" {
		if err := pl.exch.CancelAlgo(ctx, p.Instrument, p.AttachAlgoID); err != nil {
			log.Printf("⚠️ OCO cancel before close failed for %s: %v", p.Instrument, err)
		} else {
			p.AttachAlgoID = ""
		}
		time.Sleep(200 * time.Millisecond)
	}

	orderID, err := pl.exch.PlaceMarketExit(ctx, p.Instrument, p.EntrySize)
	if err != nil {
		log.Printf("❌ CLOSE FAILED for %s: %v", p.Instrument, err)
		pl.transitionLocked(models.PositionClosingFailed)
		pl.sink.Notify(&models.Notification{
			Timestamp:  pl.clock(),
			Type:       models.NotificationTypeCloseFail,
			Severity:   models.SeverityError,
			Instrument: p.Instrument,
			Message: fmt.Sprintf("🚨 Exit order failed for %s: %v. Manual intervention required",
				p.Instrument, err),
		})
		pl.sink.PositionUpdate(pl.snapshotLocked())
		return
	}

	p.ExitOrderID = orderID
	log.Printf("📤 Market exit placed for %s (%s, order %s)", p.Instrument, exitType, orderID)
	pl.sink.PositionUpdate(pl.snapshotLocked())
}

// finalizeLocked завершает сделку и сбрасывает позицию. Под pl.mu.
func (pl *PositionLifecycle) finalizeLocked() {
	p := pl.position

	record := pl.finalizer.Finalize(p)
	pl.transitionLocked(stateAbsent)

	log.Printf("💰 Trade closed: %s %s pnl=%.4f USDT (%.2f%%)",
		p.Instrument, p.ExitType, record.PnlUSDT, record.PnlPct)
	pl.sink.PositionUpdate(nil)
}

// ClearFailed сбрасывает позицию из терминального CLOSING_FAILED.
// Единственный путь выхода из терминального состояния - операторская
// команда после ручного разбора на бирже.
func (pl *PositionLifecycle) ClearFailed() error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.position == nil {
		return fmt.Errorf("no position")
	}
	if pl.position.State != models.PositionClosingFailed {
		return fmt.Errorf("position is %s, not %s", pl.position.State, models.PositionClosingFailed)
	}

	inst := pl.position.Instrument
	pl.transitionLocked(stateAbsent)
	log.Printf("🧹 CLOSING_FAILED position for %s cleared by operator", inst)
	pl.sink.PositionUpdate(nil)
	return nil
}

// UnrealizedPnl возвращает нереализованный PnL открытой позиции
// по последней цене (0 если позиции нет или цена недоступна)
func (pl *PositionLifecycle) UnrealizedPnl() float64 {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	p := pl.position
	if p == nil || p.State != models.PositionOpen {
		return 0
	}
	price := pl.lastPrice(p.Instrument)
	if price <= 0 {
		return 0
	}
	return (price - p.EntryPrice) * p.EntrySize
}
