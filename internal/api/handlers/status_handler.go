package handlers

import (
	"net/http"
	"time"

	"sniper/internal/bot"
	"sniper/internal/models"
)

// EngineSource - срез состояния торгового движка, нужный API
type EngineSource interface {
	HotSet() []string
	LastPrice(instrument string) float64
	StartedAt() time.Time
}

// PositionSource - доступ к единственной позиции движка
type PositionSource interface {
	Position() *models.Position
	UnrealizedPnl() float64
	ClearFailed() error
}

// CandidateSource - доступ к вооруженным кандидатам детектора
type CandidateSource interface {
	Candidates() []*models.ArmedCandidate
}

// RiskSource - доступ к состоянию риск-менеджера
type RiskSource interface {
	Snapshot() bot.RiskSnapshot
	Reset()
}

// StatusResponse - агрегированное состояние движка для операторского UI
type StatusResponse struct {
	UptimeSeconds float64                  `json:"uptime_seconds"`
	HotSet        []string                 `json:"hot_set"`
	Prices        map[string]float64       `json:"prices"`
	Position      *models.Position         `json:"position"`
	UnrealizedPnl float64                  `json:"unrealized_pnl"`
	Candidates    []*models.ArmedCandidate `json:"candidates"`
	Risk          bot.RiskSnapshot         `json:"risk"`
	WSClients     int                      `json:"ws_clients"`
}

// StatusHandler обрабатывает запросы состояния движка.
//
// Endpoints:
// - GET /api/v1/status - полный снимок состояния (hot set, позиция, кандидаты, риски)
type StatusHandler struct {
	engine    EngineSource
	lifecycle PositionSource
	detector  CandidateSource
	risk      RiskSource
	wsClients func() int
}

// NewStatusHandler создает StatusHandler с внедрением зависимостей.
// wsClients может быть nil, тогда счетчик клиентов равен нулю.
func NewStatusHandler(engine EngineSource, lifecycle PositionSource, detector CandidateSource, risk RiskSource, wsClients func() int) *StatusHandler {
	return &StatusHandler{
		engine:    engine,
		lifecycle: lifecycle,
		detector:  detector,
		risk:      risk,
		wsClients: wsClients,
	}
}

// GetStatus возвращает агрегированное состояние движка.
//
// GET /api/v1/status
//
// Response 200 OK:
//
//	{
//	  "uptime_seconds": 3642.5,
//	  "hot_set": ["BTC-USDT", "ETH-USDT"],
//	  "prices": {"BTC-USDT": 50123.5},
//	  "position": null,
//	  "unrealized_pnl": 0,
//	  "candidates": [],
//	  "risk": {"daily_pnl": -2.1, "consecutive_losses": 1},
//	  "ws_clients": 2
//	}
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusInternalServerError, "engine not initialized", "")
		return
	}

	hotSet := h.engine.HotSet()
	if hotSet == nil {
		hotSet = []string{}
	}

	prices := make(map[string]float64, len(hotSet))
	for _, inst := range hotSet {
		if p := h.engine.LastPrice(inst); p > 0 {
			prices[inst] = p
		}
	}

	resp := StatusResponse{
		UptimeSeconds: time.Since(h.engine.StartedAt()).Seconds(),
		HotSet:        hotSet,
		Prices:        prices,
		Candidates:    []*models.ArmedCandidate{},
	}

	if h.lifecycle != nil {
		resp.Position = h.lifecycle.Position()
		resp.UnrealizedPnl = h.lifecycle.UnrealizedPnl()
	}
	if h.detector != nil {
		if candidates := h.detector.Candidates(); candidates != nil {
			resp.Candidates = candidates
		}
	}
	if h.risk != nil {
		resp.Risk = h.risk.Snapshot()
	}
	if h.wsClients != nil {
		resp.WSClients = h.wsClients()
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCandidates возвращает текущих вооруженных кандидатов.
//
// GET /api/v1/candidates
//
// Response 200 OK:
//
//	[
//	  {"instrument": "SOL-USDT", "entry_price": 150.2, "risk_reward": 1.7, ...}
//	]
func (h *StatusHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	if h.detector == nil {
		writeError(w, http.StatusInternalServerError, "detector not initialized", "")
		return
	}

	candidates := h.detector.Candidates()
	if candidates == nil {
		candidates = []*models.ArmedCandidate{}
	}

	writeJSON(w, http.StatusOK, candidates)
}
