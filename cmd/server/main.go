package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sniper/internal/api"
	"sniper/internal/bot"
	"sniper/internal/config"
	"sniper/internal/exchange"
	"sniper/internal/repository"
	"sniper/internal/scanner"
	"sniper/internal/service"
	"sniper/internal/websocket"

	_ "github.com/lib/pq"
)

const (
	rejectionRetentionInterval = time.Hour
	rejectionRetentionMaxAge   = 7 * 24 * time.Hour
	tickBroadcastInterval      = time.Second
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("✅ Connected to database")

	// Репозитории и сервисы
	tradeRepo := repository.NewTradeRepository(db)
	rejectionRepo := repository.NewRejectionRepository(db)

	statsService := service.NewStatsService(tradeRepo)
	rejectionService := service.NewRejectionService(rejectionRepo)

	// WebSocket hub и приемник событий ядра
	hub := websocket.NewHub()
	go hub.Run()
	sink := websocket.NewEngineSink(hub)

	// Биржа
	okx := exchange.NewOKX(exchange.OKXConfig{
		APIKey:       cfg.Exchange.APIKey,
		APISecret:    cfg.Exchange.APISecret,
		Passphrase:   cfg.Exchange.Passphrase,
		Simulated:    cfg.Exchange.Simulated,
		RESTBaseURL:  cfg.Exchange.RESTBaseURL,
		WSPublicURL:  cfg.Exchange.WSPublicURL,
		WSPrivateURL: cfg.Exchange.WSPrivateURL,
		RateLimit:    cfg.Exchange.RateLimit,
		RateBurst:    cfg.Exchange.RateBurst,
		TimeSyncFreq: cfg.Exchange.TimeSyncFreq,

		WSPingInterval: cfg.Exchange.WSPingInterval,
		WSReadTimeout:  cfg.Exchange.WSReadTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := okx.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to exchange: %v", err)
	}
	defer okx.Close()

	log.Println("✅ Connected to OKX")

	// Ядро: риск, телеметрия отбраковок, детектор, финализатор
	risk := bot.NewRiskManager(cfg.Risk)
	rejects := bot.NewRejectionLogger(cfg.Trading.RejectionLogWindow, rejectionService.Record)
	detector := bot.NewSignalDetector(cfg.Trading, rejects)
	finalizer := bot.NewTradeFinalizer(tradeRepo, risk, detector, sink)

	engine := bot.NewEngine(cfg, okx, risk, rejects, finalizer, detector, sink)
	if err := engine.Start(ctx); err != nil {
		log.Fatalf("❌ Engine start failed: %v", err)
	}

	// Сканер hot set; исключенные риск-менеджером инструменты не попадают в отбор
	scan := scanner.New(cfg.Scanner, okx, engine, risk.IsExcluded)
	go scan.Run(ctx)

	// Фоновая очистка журнала отбраковок
	go rejectionService.RunRetention(ctx, rejectionRetentionInterval, rejectionRetentionMaxAge)

	// Трансляция последних цен hot set в UI
	go broadcastTicks(ctx, engine, hub)

	// HTTP API
	deps := &api.Dependencies{
		Engine:           engine,
		Lifecycle:        engine.Lifecycle(),
		Detector:         engine.Detector(),
		Risk:             risk,
		StatsService:     statsService,
		RejectionService: rejectionService,
		Hub:              hub,
		AdminTokenHash:   cfg.Security.AdminTokenHash,
	}
	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Останавливаем ядро и фоновые горутины до HTTP сервера:
	// позиция должна перестать мутировать раньше, чем пропадет API
	cancel()
	engine.Stop()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// broadcastTicks периодически рассылает последние цены hot set в UI
func broadcastTicks(ctx context.Context, engine *bot.Engine, hub *websocket.Hub) {
	ticker := time.NewTicker(tickBroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hub.ClientCount() == 0 {
				continue
			}
			for _, inst := range engine.HotSet() {
				if price := engine.LastPrice(inst); price > 0 {
					hub.BroadcastTick(inst, price)
				}
			}
		}
	}
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
