package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sniper/internal/exchange"
)

// fakeExchange - управляемая реализация Exchange для тестов ядра
type fakeExchange struct {
	mu sync.Mutex

	entryErr   error
	entryDelay time.Duration
	exitErr    error
	privateErr error

	entries      []*exchange.EntryRequest
	exits        []string
	algoCancels  []string
	orderCancels []string
	subscribed   [][]string
	unsubscribed [][]string

	orderState    *exchange.OrderUpdate
	orderStateErr error

	handlers    exchange.Handlers
	privateSubs int
	seq         int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{}
}

func (f *fakeExchange) Connect(ctx context.Context) error { return nil }
func (f *fakeExchange) GetName() string                   { return "fake" }
func (f *fakeExchange) Now() time.Time                    { return time.Now() }

func (f *fakeExchange) GetBalance(ctx context.Context, currency string) (float64, error) {
	return 1000, nil
}

func (f *fakeExchange) GetInstrumentMeta(ctx context.Context, instID string) (*exchange.InstrumentMeta, error) {
	return &exchange.InstrumentMeta{Instrument: instID, TickSize: 0.0001, LotSize: 0.0001, MinSize: 0.0001}, nil
}

func (f *fakeExchange) GetTickers24h(ctx context.Context) ([]*exchange.Ticker24h, error) {
	return nil, nil
}

func (f *fakeExchange) PlaceEntryWithExits(ctx context.Context, req *exchange.EntryRequest) (string, string, error) {
	if f.entryDelay > 0 {
		time.Sleep(f.entryDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.entryErr != nil {
		return "", "", f.entryErr
	}
	f.seq++
	f.entries = append(f.entries, req)
	return fmt.Sprintf("ord-%d", f.seq), fmt.Sprintf("algo-%d", f.seq), nil
}

func (f *fakeExchange) PlaceMarketExit(ctx context.Context, instID string, size float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.exitErr != nil {
		return "", f.exitErr
	}
	f.seq++
	f.exits = append(f.exits, instID)
	return fmt.Sprintf("exit-%d", f.seq), nil
}

func (f *fakeExchange) CancelAlgo(ctx context.Context, instID, algoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.algoCancels = append(f.algoCancels, algoID)
	return nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, instID, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCancels = append(f.orderCancels, orderID)
	return nil
}

func (f *fakeExchange) GetOrderState(ctx context.Context, instID, orderID string) (*exchange.OrderUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderStateErr != nil {
		return nil, f.orderStateErr
	}
	if f.orderState != nil {
		return f.orderState, nil
	}
	return &exchange.OrderUpdate{OrderID: orderID, State: exchange.OrderStateLive}, nil
}

func (f *fakeExchange) SubscribeMarket(instruments []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, instruments)
	return nil
}

func (f *fakeExchange) UnsubscribeMarket(instruments []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, instruments)
	return nil
}

func (f *fakeExchange) SubscribePrivate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.privateErr != nil {
		return f.privateErr
	}
	f.privateSubs++
	return nil
}

func (f *fakeExchange) privateSubCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.privateSubs
}

func (f *fakeExchange) SetHandlers(h exchange.Handlers) {
	f.mu.Lock()
	f.handlers = h
	f.mu.Unlock()
}

func (f *fakeExchange) Close() error { return nil }

func (f *fakeExchange) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
