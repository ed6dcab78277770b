package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sniper/internal/models"
)

// ============ PositionHandler Tests ============

func TestPositionHandler_GetPosition(t *testing.T) {
	t.Run("returns open position with unrealized pnl", func(t *testing.T) {
		lifecycle := &mockLifecycle{
			position: &models.Position{
				Instrument: "BTC-USDT",
				State:      models.PositionOpen,
				EntryPrice: 50000,
			},
			unrealized: 1.25,
		}
		handler := NewPositionHandler(lifecycle, &mockRisk{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/position", nil)
		w := httptest.NewRecorder()

		handler.GetPosition(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response PositionResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Position == nil || response.Position.Instrument != "BTC-USDT" {
			t.Errorf("unexpected position: %+v", response.Position)
		}
		if response.UnrealizedPnl != 1.25 {
			t.Errorf("expected unrealized pnl 1.25, got %f", response.UnrealizedPnl)
		}
	})

	t.Run("flat state returns null position", func(t *testing.T) {
		handler := NewPositionHandler(&mockLifecycle{}, &mockRisk{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/position", nil)
		w := httptest.NewRecorder()

		handler.GetPosition(w, req)

		var response PositionResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Position != nil {
			t.Errorf("expected null position, got %+v", response.Position)
		}
	})
}

func TestPositionHandler_ClearPosition(t *testing.T) {
	t.Run("clears frozen position", func(t *testing.T) {
		lifecycle := &mockLifecycle{
			position: &models.Position{
				Instrument: "BTC-USDT",
				State:      models.PositionClosingFailed,
			},
		}
		handler := NewPositionHandler(lifecycle, &mockRisk{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/position/clear", nil)
		w := httptest.NewRecorder()

		handler.ClearPosition(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if !lifecycle.cleared {
			t.Error("expected ClearFailed to be called")
		}
	})

	t.Run("returns 409 when position is not frozen", func(t *testing.T) {
		lifecycle := &mockLifecycle{
			clearErr: errors.New("position is not in CLOSING_FAILED state"),
		}
		handler := NewPositionHandler(lifecycle, &mockRisk{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/position/clear", nil)
		w := httptest.NewRecorder()

		handler.ClearPosition(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})
}

func TestPositionHandler_ResetRisk(t *testing.T) {
	t.Run("resets risk counters", func(t *testing.T) {
		risk := &mockRisk{}
		handler := NewPositionHandler(&mockLifecycle{}, risk)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/reset", nil)
		w := httptest.NewRecorder()

		handler.ResetRisk(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if risk.resetCount() != 1 {
			t.Errorf("expected 1 reset call, got %d", risk.resetCount())
		}
	})

	t.Run("returns 500 when risk manager is nil", func(t *testing.T) {
		handler := NewPositionHandler(&mockLifecycle{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/reset", nil)
		w := httptest.NewRecorder()

		handler.ResetRisk(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}
