package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sniper/internal/api/handlers"
	"sniper/internal/api/middleware"
	"sniper/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Engine           handlers.EngineSource
	Lifecycle        handlers.PositionSource
	Detector         handlers.CandidateSource
	Risk             handlers.RiskSource
	StatsService     handlers.StatsServiceInterface
	RejectionService handlers.RejectionServiceInterface
	Hub              *websocket.Hub
	AdminTokenHash   string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── GET  /status - снимок состояния движка (hot set, позиция, кандидаты, риски)
//	├── GET  /position - текущая позиция (null если flat)
//	├── GET  /candidates - вооруженные кандидаты
//	├── GET  /stats - агрегированная статистика журнала
//	├── GET  /trades?limit= - последние сделки
//	├── GET  /trades/{id} - одна сделка
//	├── GET  /rejections?limit= - журнал отбраковок
//	├── POST /position/clear - снять замороженную позицию (операторский токен)
//	└── POST /risk/reset - сброс риск-счетчиков (операторский токен)
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics - Prometheus метрики
// /health - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. AdminAuth (только для операторских команд)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var statusHandler *handlers.StatusHandler
	var positionHandler *handlers.PositionHandler
	var statsHandler *handlers.StatsHandler
	var rejectionHandler *handlers.RejectionHandler

	if deps != nil {
		if deps.Engine != nil {
			var wsClients func() int
			if deps.Hub != nil {
				wsClients = deps.Hub.ClientCount
			}
			statusHandler = handlers.NewStatusHandler(deps.Engine, deps.Lifecycle, deps.Detector, deps.Risk, wsClients)
		}
		if deps.Lifecycle != nil {
			positionHandler = handlers.NewPositionHandler(deps.Lifecycle, deps.Risk)
		}
		if deps.StatsService != nil {
			statsHandler = handlers.NewStatsHandler(deps.StatsService)
		}
		if deps.RejectionService != nil {
			rejectionHandler = handlers.NewRejectionHandler(deps.RejectionService)
		}
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	if statusHandler != nil {
		api.HandleFunc("/status", statusHandler.GetStatus).Methods("GET")
		api.HandleFunc("/candidates", statusHandler.GetCandidates).Methods("GET")
	}

	if positionHandler != nil {
		api.HandleFunc("/position", positionHandler.GetPosition).Methods("GET")

		// Операторские команды за токеном
		admin := api.PathPrefix("").Subrouter()
		admin.Use(middleware.AdminAuth(deps.AdminTokenHash))
		admin.HandleFunc("/position/clear", positionHandler.ClearPosition).Methods("POST")
		admin.HandleFunc("/risk/reset", positionHandler.ResetRisk).Methods("POST")
	}

	if statsHandler != nil {
		api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
		api.HandleFunc("/trades", statsHandler.GetTrades).Methods("GET")
		api.HandleFunc("/trades/{id}", statsHandler.GetTrade).Methods("GET")
	}

	if rejectionHandler != nil {
		api.HandleFunc("/rejections", rejectionHandler.GetRejections).Methods("GET")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
