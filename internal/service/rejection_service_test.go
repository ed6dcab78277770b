package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sniper/internal/models"
)

func TestRejectionServiceRecord(t *testing.T) {
	repo := &mockRejectionRepository{}
	s := NewRejectionService(repo)

	s.Record(&models.RejectionEvent{
		Instrument: "BTC-USDT",
		Stage:      models.StageSetup,
		Reason:     models.ReasonWeakBreakout,
	})

	if len(repo.created) != 1 {
		t.Fatalf("записано %d событий, ожидалось 1", len(repo.created))
	}
	if repo.created[0].Reason != models.ReasonWeakBreakout {
		t.Errorf("Reason = %q, ожидался %q", repo.created[0].Reason, models.ReasonWeakBreakout)
	}
}

func TestRejectionServiceRecordSwallowsErrors(t *testing.T) {
	repo := &mockRejectionRepository{createErr: errors.New("db down")}
	s := NewRejectionService(repo)

	// Не должно паниковать: телеметрия не ломает торговый цикл
	s.Record(&models.RejectionEvent{Instrument: "BTC-USDT"})
}

func TestRejectionServiceGetRecentLimitClamping(t *testing.T) {
	events := make([]*models.RejectionEvent, 100)
	for i := range events {
		events[i] = &models.RejectionEvent{ID: i + 1}
	}
	repo := &mockRejectionRepository{events: events}
	s := NewRejectionService(repo)

	if _, err := s.GetRecent(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != defaultJournalLimit {
		t.Errorf("лимит = %d, ожидался дефолт %d", repo.lastLimit, defaultJournalLimit)
	}

	if _, err := s.GetRecent(context.Background(), 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != 20 {
		t.Errorf("лимит = %d, ожидалось 20", repo.lastLimit)
	}
}

func TestRejectionServiceRetentionLoop(t *testing.T) {
	repo := &mockRejectionRepository{purged: 7}
	s := NewRejectionService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunRetention(ctx, 10*time.Millisecond, 24*time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if repo.seenPurgeAge() == 24*time.Hour {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunRetention не завершился по отмене контекста")
	}

	if repo.seenPurgeAge() != 24*time.Hour {
		t.Errorf("purgeAge = %v, ожидалось 24h", repo.seenPurgeAge())
	}
}
