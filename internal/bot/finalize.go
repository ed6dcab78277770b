package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"sniper/internal/models"
)

// TradeStore - минимальный интерфейс хранилища сделок,
// нужный финализатору (реализуется TradeRepository)
type TradeStore interface {
	Create(ctx context.Context, trade *models.TradeRecord) error
}

// TradeFinalizer рассчитывает реализованный PnL завершенной сделки,
// кормит риск-менеджер и наблюдаемость, сохраняет запись в журнал.
//
// Вызывается lifecycle-ом под position lock; запись в БД выполняется
// асинхронно, чтобы не держать lock на время I/O.
type TradeFinalizer struct {
	store    TradeStore
	risk     *RiskManager
	detector *SignalDetector
	sink     EventSink

	clock func() time.Time
}

// NewTradeFinalizer создает финализатор
func NewTradeFinalizer(store TradeStore, risk *RiskManager, detector *SignalDetector, sink EventSink) *TradeFinalizer {
	if sink == nil {
		sink = noopSink{}
	}
	return &TradeFinalizer{
		store:    store,
		risk:     risk,
		detector: detector,
		sink:     sink,
		clock:    time.Now,
	}
}

// Finalize завершает сделку по заполненной позиции
// (ExitPrice/ExitFee/ExitType уже установлены).
//
//	pnl_usdt = (exit - entry) × size - (entry_fee + exit_fee)
//	pnl_pct  = pnl_usdt / (entry × size) × 100
func (f *TradeFinalizer) Finalize(p *models.Position) *models.TradeRecord {
	now := f.clock()

	pnl := (p.ExitPrice-p.EntryPrice)*p.EntrySize - (p.EntryFee + p.ExitFee)

	var pnlPct float64
	if notional := p.EntryPrice * p.EntrySize; notional > 0 {
		pnlPct = pnl / notional * 100
	}

	var holdSeconds float64
	if !p.FilledAt.IsZero() {
		holdSeconds = now.Sub(p.FilledAt).Seconds()
	}

	record := &models.TradeRecord{
		Instrument:  p.Instrument,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   p.ExitPrice,
		Size:        p.EntrySize,
		PnlUSDT:     pnl,
		PnlPct:      pnlPct,
		HoldSeconds: holdSeconds,
		ExitType:    p.ExitType,
		TPBps:       p.TPBps,
		SLBps:       p.SLBps,
		ATR:         p.ATR,
		Imbalance:   p.Imbalance,
		BreakoutBps: p.BreakoutBps,
		ClosedAt:    now,
	}

	f.risk.RecordTrade(p.Instrument, pnl)
	RecordCompletedTrade(p.ExitType, pnl, holdSeconds)

	// Уровень мертвой зоны снова доступен: сделка по нему завершена
	if f.detector != nil {
		f.detector.ClearDeadZone(p.Instrument)
	}

	if f.store != nil {
		go f.persist(record)
	}

	f.sink.TradeClosed(record)
	f.sink.Notify(&models.Notification{
		Timestamp:  now,
		Type:       models.NotificationTypeClose,
		Severity:   models.SeverityInfo,
		Instrument: p.Instrument,
		Message: fmt.Sprintf("💰 Closed %s (%s): %.4f USDT (%.2f%%)",
			p.Instrument, p.ExitType, pnl, pnlPct),
	})

	return record
}

// persist сохраняет запись сделки вне position lock
func (f *TradeFinalizer) persist(record *models.TradeRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.store.Create(ctx, record); err != nil {
		log.Printf("⚠️ Failed to persist trade record for %s: %v", record.Instrument, err)
	}
}
