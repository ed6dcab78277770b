package handlers

import (
	"net/http"

	"sniper/internal/models"
)

// PositionHandler обрабатывает запросы к позиции движка.
//
// Endpoints:
// - GET /api/v1/position - текущая позиция (null если flat)
// - POST /api/v1/position/clear - снять замороженную позицию (CLOSING_FAILED)
// - POST /api/v1/risk/reset - сброс дневных риск-счетчиков
//
// Команды clear и reset защищены операторским токеном (AdminAuth).
type PositionHandler struct {
	lifecycle PositionSource
	risk      RiskSource
}

// NewPositionHandler создает PositionHandler с внедрением зависимостей.
func NewPositionHandler(lifecycle PositionSource, risk RiskSource) *PositionHandler {
	return &PositionHandler{
		lifecycle: lifecycle,
		risk:      risk,
	}
}

// PositionResponse - позиция вместе с нереализованным PnL
type PositionResponse struct {
	Position      *models.Position `json:"position"`
	UnrealizedPnl float64          `json:"unrealized_pnl"`
}

// GetPosition возвращает текущую позицию.
//
// GET /api/v1/position
//
// Response 200 OK:
//
//	{"position": {...}, "unrealized_pnl": 0.45}
//	{"position": null, "unrealized_pnl": 0}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	if h.lifecycle == nil {
		writeError(w, http.StatusInternalServerError, "lifecycle not initialized", "")
		return
	}

	writeJSON(w, http.StatusOK, PositionResponse{
		Position:      h.lifecycle.Position(),
		UnrealizedPnl: h.lifecycle.UnrealizedPnl(),
	})
}

// ClearPosition снимает позицию в состоянии CLOSING_FAILED.
//
// POST /api/v1/position/clear
//
// Единственный выход из терминального состояния: оператор закрывает
// позицию на бирже вручную и подтверждает командой clear.
//
// Response 200 OK:
//
//	{"message": "position cleared"}
//
// Response 409 Conflict:
//
//	{"error": "cannot clear position", "details": "position is not in CLOSING_FAILED state"}
func (h *PositionHandler) ClearPosition(w http.ResponseWriter, r *http.Request) {
	if h.lifecycle == nil {
		writeError(w, http.StatusInternalServerError, "lifecycle not initialized", "")
		return
	}

	if err := h.lifecycle.ClearFailed(); err != nil {
		writeError(w, http.StatusConflict, "cannot clear position", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "position cleared"})
}

// ResetRisk сбрасывает дневные риск-счетчики.
//
// POST /api/v1/risk/reset
//
// Сбрасывает дневной PnL, серию убытков и кулдауны.
// Исключенные инструменты (после ошибок ордеров) остаются исключенными.
//
// Response 200 OK:
//
//	{"message": "risk counters reset"}
func (h *PositionHandler) ResetRisk(w http.ResponseWriter, r *http.Request) {
	if h.risk == nil {
		writeError(w, http.StatusInternalServerError, "risk manager not initialized", "")
		return
	}

	h.risk.Reset()
	writeJSON(w, http.StatusOK, SuccessResponse{Message: "risk counters reset"})
}
