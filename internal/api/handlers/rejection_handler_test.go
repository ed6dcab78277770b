package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sniper/internal/models"
)

// ============ RejectionHandler Tests ============

func TestRejectionHandler_GetRejections(t *testing.T) {
	t.Run("returns recent rejections", func(t *testing.T) {
		mockSvc := NewMockRejectionService()
		mockSvc.SetEvents([]*models.RejectionEvent{
			{Instrument: "ETH-USDT", Stage: models.StageExecution, Reason: models.ReasonWideSpread},
			{Instrument: "SOL-USDT", Stage: models.StageSetup, Reason: models.ReasonLowATR},
		})
		handler := NewRejectionHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/rejections?limit=50", nil)
		w := httptest.NewRecorder()

		handler.GetRejections(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response []*models.RejectionEvent
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response) != 2 {
			t.Errorf("expected 2 events, got %d", len(response))
		}
		if response[0].Reason != models.ReasonWideSpread {
			t.Errorf("expected Wide Spread, got %s", response[0].Reason)
		}
	})

	t.Run("returns 400 on non-numeric limit", func(t *testing.T) {
		handler := NewRejectionHandler(NewMockRejectionService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/rejections?limit=x", nil)
		w := httptest.NewRecorder()

		handler.GetRejections(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("returns 500 on service error", func(t *testing.T) {
		mockSvc := NewMockRejectionService()
		mockSvc.SetError(ErrMockDatabase)
		handler := NewRejectionHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/rejections", nil)
		w := httptest.NewRecorder()

		handler.GetRejections(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})

	t.Run("empty journal is returned as array", func(t *testing.T) {
		handler := NewRejectionHandler(NewMockRejectionService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/rejections", nil)
		w := httptest.NewRecorder()

		handler.GetRejections(w, req)

		if body := w.Body.String(); body == "null\n" {
			t.Error("expected [] for empty journal, got null")
		}
	})
}
