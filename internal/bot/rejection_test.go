package bot

import (
	"sync"
	"testing"
	"time"

	"sniper/internal/models"
)

func TestRejectionLoggerSuppressesRepeats(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*models.RejectionEvent
	)
	got := make(chan struct{}, 16)
	rl := NewRejectionLogger(5*time.Second, func(e *models.RejectionEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		got <- struct{}{}
	})

	now := time.Unix(100000, 0)
	rl.clock = func() time.Time { return now }

	rl.Log("BTC-USDT", models.StageSetup, models.ReasonNoBreakout, "first")
	<-got

	// Тот же ключ внутри окна: подавляется
	now = now.Add(time.Second)
	rl.Log("BTC-USDT", models.StageSetup, models.ReasonNoBreakout, "repeat")

	// Другая причина и другой инструмент - отдельные ключи
	rl.Log("BTC-USDT", models.StageSetup, models.ReasonWeakBreakout, "other reason")
	<-got
	rl.Log("ETH-USDT", models.StageSetup, models.ReasonNoBreakout, "other instrument")
	<-got

	// После окна тот же ключ проходит снова
	now = now.Add(5 * time.Second)
	rl.Log("BTC-USDT", models.StageSetup, models.ReasonNoBreakout, "after window")
	<-got

	select {
	case <-got:
		t.Fatal("подавленное событие не должно доходить до приемника")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 4 {
		t.Fatalf("получено %d событий, ожидалось 4", len(events))
	}
	details := map[string]bool{}
	for _, e := range events {
		details[e.Detail] = true
	}
	for _, want := range []string{"first", "other reason", "other instrument", "after window"} {
		if !details[want] {
			t.Errorf("событие %q не получено", want)
		}
	}
}

func TestRejectionLoggerNilSink(t *testing.T) {
	rl := NewRejectionLogger(time.Second, nil)
	// Не должно паниковать
	rl.Log("BTC-USDT", models.StageExecution, models.ReasonRisk, "no sink")
}
