package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sniper/internal/bot"
	"sniper/internal/models"
)

// ============ StatusHandler Tests ============

func TestStatusHandler_GetStatus(t *testing.T) {
	t.Run("returns full engine snapshot", func(t *testing.T) {
		engine := newMockEngine()
		lifecycle := &mockLifecycle{
			position:   &models.Position{Instrument: "BTC-USDT", State: models.PositionOpen},
			unrealized: 0.45,
		}
		detector := &mockDetector{
			candidates: []*models.ArmedCandidate{{Instrument: "ETH-USDT"}},
		}
		risk := &mockRisk{snapshot: bot.RiskSnapshot{DailyPnl: -2.1, ConsecutiveLosses: 1}}

		handler := NewStatusHandler(engine, lifecycle, detector, risk, func() int { return 3 })

		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		w := httptest.NewRecorder()

		handler.GetStatus(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response StatusResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response.HotSet) != 2 {
			t.Errorf("expected 2 instruments in hot set, got %d", len(response.HotSet))
		}
		if response.Prices["BTC-USDT"] != 50123.5 {
			t.Errorf("expected BTC-USDT price 50123.5, got %f", response.Prices["BTC-USDT"])
		}
		if response.Position == nil || response.Position.Instrument != "BTC-USDT" {
			t.Errorf("expected open position for BTC-USDT, got %+v", response.Position)
		}
		if response.UnrealizedPnl != 0.45 {
			t.Errorf("expected unrealized pnl 0.45, got %f", response.UnrealizedPnl)
		}
		if len(response.Candidates) != 1 {
			t.Errorf("expected 1 candidate, got %d", len(response.Candidates))
		}
		if response.Risk.DailyPnl != -2.1 {
			t.Errorf("expected daily pnl -2.1, got %f", response.Risk.DailyPnl)
		}
		if response.WSClients != 3 {
			t.Errorf("expected 3 ws clients, got %d", response.WSClients)
		}
		if response.UptimeSeconds <= 0 {
			t.Errorf("expected positive uptime, got %f", response.UptimeSeconds)
		}
	})

	t.Run("flat engine returns null position and empty candidates", func(t *testing.T) {
		handler := NewStatusHandler(newMockEngine(), &mockLifecycle{}, &mockDetector{}, &mockRisk{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		w := httptest.NewRecorder()

		handler.GetStatus(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response StatusResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Position != nil {
			t.Errorf("expected null position, got %+v", response.Position)
		}
		if response.Candidates == nil {
			t.Error("expected empty candidate list, got null")
		}
	})

	t.Run("returns 500 when engine is nil", func(t *testing.T) {
		handler := &StatusHandler{}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		w := httptest.NewRecorder()

		handler.GetStatus(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStatusHandler_GetCandidates(t *testing.T) {
	t.Run("returns candidates", func(t *testing.T) {
		detector := &mockDetector{
			candidates: []*models.ArmedCandidate{
				{Instrument: "SOL-USDT", EntryPrice: 150.2, RiskReward: 1.7},
			},
		}
		handler := NewStatusHandler(newMockEngine(), nil, detector, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/candidates", nil)
		w := httptest.NewRecorder()

		handler.GetCandidates(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response []*models.ArmedCandidate
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response) != 1 || response[0].Instrument != "SOL-USDT" {
			t.Errorf("unexpected candidates: %+v", response)
		}
	})

	t.Run("empty list is returned as array", func(t *testing.T) {
		handler := NewStatusHandler(newMockEngine(), nil, &mockDetector{}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/candidates", nil)
		w := httptest.NewRecorder()

		handler.GetCandidates(w, req)

		if body := w.Body.String(); body == "null\n" {
			t.Error("expected [] for empty candidates, got null")
		}
	})
}
