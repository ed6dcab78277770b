package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"sniper/internal/models"
)

// ============ StatsHandler Tests ============

func TestStatsHandler_GetStats(t *testing.T) {
	t.Run("returns stats successfully", func(t *testing.T) {
		mockSvc := NewMockStatsService()
		handler := NewStatsHandler(mockSvc)

		mockSvc.SetStats(&models.TradeStats{
			TotalTrades: 150,
			TotalPnl:    42.5,
			TodayTrades: 5,
			TodayPnl:    1.2,
			Wins:        90,
			Losses:      60,
			WinRate:     0.6,
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		w := httptest.NewRecorder()

		handler.GetStats(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response models.TradeStats
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.TotalTrades != 150 {
			t.Errorf("expected TotalTrades 150, got %d", response.TotalTrades)
		}
		if response.WinRate != 0.6 {
			t.Errorf("expected WinRate 0.6, got %f", response.WinRate)
		}
	})

	t.Run("returns 500 when service is nil", func(t *testing.T) {
		handler := &StatsHandler{statsService: nil}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		w := httptest.NewRecorder()

		handler.GetStats(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})

	t.Run("returns 500 on service error", func(t *testing.T) {
		mockSvc := NewMockStatsService()
		mockSvc.SetError(ErrMockDatabase)
		handler := NewStatsHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		w := httptest.NewRecorder()

		handler.GetStats(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStatsHandler_GetTrades(t *testing.T) {
	t.Run("passes limit to service", func(t *testing.T) {
		mockSvc := NewMockStatsService()
		mockSvc.SetTrades([]*models.TradeRecord{
			{ID: 1, Instrument: "BTC-USDT", PnlUSDT: 0.8},
			{ID: 2, Instrument: "ETH-USDT", PnlUSDT: -0.3},
		})
		handler := NewStatsHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades?limit=10", nil)
		w := httptest.NewRecorder()

		handler.GetTrades(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if mockSvc.seenLimit() != 10 {
			t.Errorf("expected limit 10 passed to service, got %d", mockSvc.seenLimit())
		}

		var response []*models.TradeRecord
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response) != 2 {
			t.Errorf("expected 2 trades, got %d", len(response))
		}
	})

	t.Run("returns 400 on non-numeric limit", func(t *testing.T) {
		handler := NewStatsHandler(NewMockStatsService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades?limit=abc", nil)
		w := httptest.NewRecorder()

		handler.GetTrades(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("empty journal is returned as array", func(t *testing.T) {
		handler := NewStatsHandler(NewMockStatsService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
		w := httptest.NewRecorder()

		handler.GetTrades(w, req)

		if body := w.Body.String(); body == "null\n" {
			t.Error("expected [] for empty journal, got null")
		}
	})
}

func TestStatsHandler_GetTrade(t *testing.T) {
	t.Run("returns trade by id", func(t *testing.T) {
		mockSvc := NewMockStatsService()
		mockSvc.SetTrades([]*models.TradeRecord{
			{ID: 12, Instrument: "BTC-USDT", PnlUSDT: 0.8, ExitType: models.ExitTypeTPSL},
		})
		handler := NewStatsHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/12", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "12"})
		w := httptest.NewRecorder()

		handler.GetTrade(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response models.TradeRecord
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.ID != 12 || response.ExitType != models.ExitTypeTPSL {
			t.Errorf("unexpected trade: %+v", response)
		}
	})

	t.Run("returns 404 for missing trade", func(t *testing.T) {
		handler := NewStatsHandler(NewMockStatsService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/99", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "99"})
		w := httptest.NewRecorder()

		handler.GetTrade(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})

	t.Run("returns 400 for invalid id", func(t *testing.T) {
		handler := NewStatsHandler(NewMockStatsService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/abc", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "abc"})
		w := httptest.NewRecorder()

		handler.GetTrade(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}
