package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"sniper/internal/models"
	"sniper/internal/repository"
)

// StatsServiceInterface - срез StatsService, нужный handlers
type StatsServiceInterface interface {
	GetStats(ctx context.Context) (*models.TradeStats, error)
	GetRecentTrades(ctx context.Context, limit int) ([]*models.TradeRecord, error)
	GetTrade(ctx context.Context, id int) (*models.TradeRecord, error)
}

// StatsHandler обрабатывает запросы журнала сделок и статистики.
//
// Endpoints:
// - GET /api/v1/stats - агрегированная статистика журнала
// - GET /api/v1/trades?limit=50 - последние завершенные сделки
// - GET /api/v1/trades/{id} - одна сделка по id
type StatsHandler struct {
	statsService StatsServiceInterface
}

// NewStatsHandler создает StatsHandler с внедрением зависимостей.
func NewStatsHandler(statsService StatsServiceInterface) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetStats возвращает агрегированную статистику журнала сделок.
//
// GET /api/v1/stats
//
// Response 200 OK:
//
//	{
//	  "total_trades": 150,
//	  "total_pnl": 42.5,
//	  "today_trades": 5,
//	  "today_pnl": 1.2,
//	  "wins": 90,
//	  "losses": 60,
//	  "win_rate": 0.6,
//	  "avg_pnl": 0.28,
//	  "best_trade": 4.1,
//	  "worst_trade": -2.2
//	}
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.statsService == nil {
		writeError(w, http.StatusInternalServerError, "stats service not initialized", "")
		return
	}

	stats, err := h.statsService.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get stats", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetTrades возвращает последние завершенные сделки.
//
// GET /api/v1/trades?limit=50
//
// Query Parameters:
// - limit (optional): количество записей, сервис ограничивает максимум
//
// Response 200 OK:
//
//	[
//	  {"id": 12, "instrument": "BTC-USDT", "pnl_usdt": 0.8, "exit_type": "TP/SL_HIT", ...}
//	]
func (h *StatsHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	if h.statsService == nil {
		writeError(w, http.StatusInternalServerError, "stats service not initialized", "")
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

	trades, err := h.statsService.GetRecentTrades(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get trades", err.Error())
		return
	}

	// Пустой журнал возвращается как [], а не null
	if trades == nil {
		trades = []*models.TradeRecord{}
	}

	writeJSON(w, http.StatusOK, trades)
}

// GetTrade возвращает одну сделку по id.
//
// GET /api/v1/trades/{id}
//
// Response 200 OK: запись сделки
// Response 404 Not Found: сделка не существует
func (h *StatsHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	if h.statsService == nil {
		writeError(w, http.StatusInternalServerError, "stats service not initialized", "")
		return
	}

	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid trade id", idStr)
		return
	}

	trade, err := h.statsService.GetTrade(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotFound) {
			writeError(w, http.StatusNotFound, "trade not found", idStr)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get trade", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, trade)
}
