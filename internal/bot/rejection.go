package bot

import (
	"sync"
	"time"

	"sniper/internal/models"
)

// RejectionLogger - телеметрия отбраковок с rate limit.
//
// Отбраковка сигнала - нормальный исход фильтрации, не ошибка, но на
// каждом тике одна и та же причина может повторяться сотни раз в секунду.
// Логгер подавляет повторы по ключу (инструмент, стадия, причина) в
// пределах окна и передает прошедшие события в репозиторий асинхронно.
type RejectionLogger struct {
	mu       sync.Mutex
	lastSeen map[rejectionKey]time.Time
	window   time.Duration

	// Приемник отфильтрованных событий (репозиторий или nil в тестах).
	// Вызывается в отдельной горутине, чтобы не блокировать hot path.
	sink func(*models.RejectionEvent)

	clock func() time.Time
}

type rejectionKey struct {
	instrument string
	stage      string
	reason     string
}

// NewRejectionLogger создает логгер с заданным окном подавления
func NewRejectionLogger(window time.Duration, sink func(*models.RejectionEvent)) *RejectionLogger {
	return &RejectionLogger{
		lastSeen: make(map[rejectionKey]time.Time),
		window:   window,
		sink:     sink,
		clock:    time.Now,
	}
}

// Log записывает отбраковку. Повтор того же ключа внутри окна
// подавляется молча. Метрика инкрементируется всегда.
func (rl *RejectionLogger) Log(instrument, stage, reason, detail string) {
	RecordRejection(stage, reason)

	now := rl.clock()
	key := rejectionKey{instrument: instrument, stage: stage, reason: reason}

	rl.mu.Lock()
	if last, ok := rl.lastSeen[key]; ok && now.Sub(last) < rl.window {
		rl.mu.Unlock()
		return
	}
	rl.lastSeen[key] = now
	rl.mu.Unlock()

	if rl.sink == nil {
		return
	}

	event := &models.RejectionEvent{
		Instrument: instrument,
		Stage:      stage,
		Reason:     reason,
		Detail:     detail,
		OccurredAt: now,
	}
	go rl.sink(event)
}
