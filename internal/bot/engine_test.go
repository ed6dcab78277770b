package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sniper/internal/config"
	"sniper/internal/exchange"
	"sniper/internal/models"
)

func newTestEngine(t *testing.T) (*Engine, *fakeExchange) {
	t.Helper()
	cfg := &config.Config{Trading: testTradingConfig()}
	fx := newFakeExchange()
	risk := NewRiskManager(testRiskConfig())
	rejects, _ := newRejectionCapture()
	detector := NewSignalDetector(cfg.Trading, rejects)
	finalizer := NewTradeFinalizer(nil, risk, detector, nil)

	e := NewEngine(cfg, fx, risk, rejects, finalizer, detector, nil)
	t.Cleanup(e.Stop)
	return e, fx
}

func TestEngineApplyHotSet(t *testing.T) {
	e, fx := newTestEngine(t)

	e.ApplyHotSet([]string{"BTC-USDT", "ETH-USDT"}, nil)

	if got := len(e.HotSet()); got != 2 {
		t.Fatalf("HotSet = %d инструментов, ожидалось 2", got)
	}
	fx.mu.Lock()
	subs := fx.subscribed
	fx.mu.Unlock()
	if len(subs) != 1 || len(subs[0]) != 2 {
		t.Errorf("subscribed = %v, ожидалась одна подписка на 2 инструмента", subs)
	}

	// Повторное добавление - no-op, выбывший отписывается
	e.ApplyHotSet([]string{"BTC-USDT"}, []string{"ETH-USDT"})
	if got := len(e.HotSet()); got != 1 {
		t.Fatalf("HotSet = %d, ожидался 1", got)
	}
	fx.mu.Lock()
	unsubs := fx.unsubscribed
	fx.mu.Unlock()
	if len(unsubs) != 1 || len(unsubs[0]) != 1 || unsubs[0][0] != "ETH-USDT" {
		t.Errorf("unsubscribed = %v, ожидался [[ETH-USDT]]", unsubs)
	}

	// Удаление несуществующего инструмента не порождает отписку
	e.ApplyHotSet(nil, []string{"SOL-USDT"})
	fx.mu.Lock()
	unsubCount := len(fx.unsubscribed)
	fx.mu.Unlock()
	if unsubCount != 1 {
		t.Errorf("лишняя отписка: %d, ожидалась 1", unsubCount)
	}
}

func TestEngineSkipsExcludedInstruments(t *testing.T) {
	e, fx := newTestEngine(t)

	for i := 0; i < 3; i++ {
		e.risk.RecordOrderError("DOGE-USDT")
	}

	e.ApplyHotSet([]string{"DOGE-USDT", "BTC-USDT"}, nil)

	if got := len(e.HotSet()); got != 1 {
		t.Fatalf("HotSet = %d, ожидался 1 (исключенный пропущен)", got)
	}
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if len(fx.subscribed) != 1 || len(fx.subscribed[0]) != 1 || fx.subscribed[0][0] != "BTC-USDT" {
		t.Errorf("subscribed = %v, ожидался только BTC-USDT", fx.subscribed)
	}
}

func TestEngineKeepsInstrumentWithActivePosition(t *testing.T) {
	e, fx := newTestEngine(t)
	e.ApplyHotSet([]string{"BTC-USDT"}, nil)

	e.lifecycle.mu.Lock()
	e.lifecycle.position = &models.Position{Instrument: "BTC-USDT", State: models.PositionOpen}
	e.lifecycle.mu.Unlock()

	// Сканер выкинул инструмент, но позиция должна дожить до выхода
	e.ApplyHotSet(nil, []string{"BTC-USDT"})

	if got := len(e.HotSet()); got != 1 {
		t.Fatalf("HotSet = %d, инструмент с позицией должен остаться", got)
	}
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if len(fx.unsubscribed) != 0 {
		t.Errorf("unsubscribed = %v, отписки быть не должно", fx.unsubscribed)
	}
}

func TestEngineRoutesMarketEvents(t *testing.T) {
	e, _ := newTestEngine(t)
	e.ApplyHotSet([]string{"BTC-USDT"}, nil)

	e.onTrade(&exchange.TradePrint{Instrument: "BTC-USDT", Price: 100.5, Size: 2})
	waitUntil(t, time.Second, func() bool { return e.LastPrice("BTC-USDT") == 100.5 },
		"цена сделки не дошла до consumer-а")

	e.onBook(&exchange.BookUpdate{
		Instrument: "BTC-USDT",
		BidPrice:   100.4, BidQty: 5,
		AskPrice: 100.5, AskQty: 3,
	})
	waitUntil(t, time.Second, func() bool { return e.Book("BTC-USDT") != nil },
		"снимок стакана не дошел до consumer-а")

	if b := e.Book("BTC-USDT"); b.BidPrice != 100.4 || b.AskQty != 3 {
		t.Errorf("Book = %+v, ожидалось bid=100.4 askQty=3", b)
	}
}

func TestEngineDropsEventsForUnknownInstrument(t *testing.T) {
	e, _ := newTestEngine(t)

	// Поздние события после отписки не должны паниковать
	e.onTrade(&exchange.TradePrint{Instrument: "GHOST-USDT", Price: 1, Size: 1})
	e.onBook(&exchange.BookUpdate{Instrument: "GHOST-USDT", BidPrice: 1, AskPrice: 1.01})

	if e.LastPrice("GHOST-USDT") != 0 {
		t.Error("LastPrice неизвестного инструмента должна быть 0")
	}
	if e.Book("GHOST-USDT") != nil {
		t.Error("Book неизвестного инструмента должен быть nil")
	}

	// Мусорные события отбрасываются на входе
	e.onTrade(&exchange.TradePrint{Instrument: "BTC-USDT", Price: 0})
	e.onBook(&exchange.BookUpdate{Instrument: "BTC-USDT", BidPrice: -1, AskPrice: 1})
}

func TestEngineStartSubscribesPrivate(t *testing.T) {
	e, fx := newTestEngine(t)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Без канала ордеров исполнения не приходят - подписка обязана
	// произойти при старте, ровно один раз
	if got := fx.privateSubCount(); got != 1 {
		t.Errorf("подписок на приватный канал = %d, ожидалась 1", got)
	}
}

func TestEngineStartFailsWithoutPrivateChannel(t *testing.T) {
	e, fx := newTestEngine(t)
	fx.privateErr = errors.New("login rejected")

	err := e.Start(context.Background())
	if err == nil {
		t.Fatal("Start обязан вернуть ошибку при провале приватной подписки")
	}
	if !strings.Contains(err.Error(), "login rejected") {
		t.Errorf("err = %v, ожидалась исходная причина", err)
	}
}

func TestEngineStopBlocksNewInstruments(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Stop()

	// Поздний дифф сканера после остановки - no-op, без паники
	// и без гонки с уже прошедшим wg.Wait
	e.ApplyHotSet([]string{"BTC-USDT"}, nil)
	if got := len(e.HotSet()); got != 0 {
		t.Errorf("HotSet после Stop = %d, ожидался 0", got)
	}
}
