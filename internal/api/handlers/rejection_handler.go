package handlers

import (
	"context"
	"net/http"
	"strconv"

	"sniper/internal/models"
)

// RejectionServiceInterface - срез RejectionService, нужный handlers
type RejectionServiceInterface interface {
	GetRecent(ctx context.Context, limit int) ([]*models.RejectionEvent, error)
}

// RejectionHandler обрабатывает запросы журнала отбраковок.
//
// Endpoints:
// - GET /api/v1/rejections?limit=50 - последние отфильтрованные сигналы
//
// Журнал отбраковок отвечает на вопрос "почему бот не торгует":
// каждый снятый кандидат записан со стадией и причиной.
type RejectionHandler struct {
	rejectionService RejectionServiceInterface
}

// NewRejectionHandler создает RejectionHandler с внедрением зависимостей.
func NewRejectionHandler(rejectionService RejectionServiceInterface) *RejectionHandler {
	return &RejectionHandler{
		rejectionService: rejectionService,
	}
}

// GetRejections возвращает последние события отбраковки.
//
// GET /api/v1/rejections?limit=50
//
// Response 200 OK:
//
//	[
//	  {"instrument": "ETH-USDT", "stage": "Execution", "reason": "Wide Spread", "detail": "spread 0.15%"}
//	]
func (h *RejectionHandler) GetRejections(w http.ResponseWriter, r *http.Request) {
	if h.rejectionService == nil {
		writeError(w, http.StatusInternalServerError, "rejection service not initialized", "")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit", limitStr)
			return
		}
		limit = parsed
	}

	events, err := h.rejectionService.GetRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get rejections", err.Error())
		return
	}

	if events == nil {
		events = []*models.RejectionEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}
