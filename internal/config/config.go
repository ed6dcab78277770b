package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Exchange ExchangeConfig
	Trading  TradingConfig
	Risk     RiskConfig
	Scanner  ScannerConfig
	Security SecurityConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ExchangeConfig - настройки подключения к OKX
type ExchangeConfig struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Simulated  bool // demo trading (заголовок x-simulated-trading)

	RESTBaseURL  string
	WSPublicURL  string
	WSPrivateURL string

	RateLimit      float64       // REST запросов в секунду
	RateBurst      float64       // burst ёмкость
	TimeSyncFreq   time.Duration // период синхронизации серверного времени
	WSPingInterval time.Duration
	WSReadTimeout  time.Duration
}

// TradingConfig - параметры стратегии
type TradingConfig struct {
	// Свечи
	BarPeriod    time.Duration // период свечи
	BarCapacity  int           // ёмкость кольцевого буфера закрытых свечей
	MinCandles   int           // минимум закрытых свечей для setup-сканирования
	LookbackBars int           // окно поиска recent high (без новейшей свечи)

	// Пробой
	MinBreakoutBps float64 // минимальная сила пробоя в bps
	UseDeadZone    bool    // подавлять повторный arm на том же уровне
	DeadZoneBps    float64 // ширина мертвой зоны в bps
	UseTrendFilter bool    // фильтр EMA fast > EMA slow
	EMAFastPeriod  int
	EMASlowPeriod  int

	// Волатильность и цели
	ATRPeriod     int
	MinATRBps     float64
	TPATRMult     float64
	SLATRMult     float64
	MinTPBps      float64
	MaxTPBps      float64
	MinSLBps      float64
	MaxSLBps      float64
	MinRiskReward float64

	// Издержки
	FeeTakerBps    float64
	MaxSlippageBps float64

	// Подтверждения
	ZScoreWindow     int
	ZScoreThreshold  float64
	VolumeBaseWindow int
	VolumeSpikeBars  int
	VolumeSpikeMult  float64
	MinImbalance     float64
	MaxImbalance     float64
	MinBidDepthUSDT  float64
	MinConfirmations int
	MaxSpreadPct     float64

	// Жизненный цикл позиции
	OrderNotionalUSDT  float64       // размер входа в USDT
	CandidateTTL       time.Duration // срок жизни кандидата
	PendingEntryExpiry time.Duration // таймаут исполнения входа
	MaxHoldTime        time.Duration // максимальное время удержания
	TrailActivateBps   float64       // активация трейлинга, bps над входом
	TrailATRMult       float64       // дистанция трейлинга в ATR
	TrailMinBps        float64       // минимальная дистанция трейлинга в bps
	MonitorInterval    time.Duration // период монитора позиции

	// Телеметрия
	RejectionLogWindow time.Duration // rate limit одинаковых отбраковок
}

// RiskConfig - параметры риск-менеджмента
type RiskConfig struct {
	CooldownAfterExit time.Duration // пауза после любого выхода
	CooldownAfterLoss time.Duration // пауза после убыточной сделки
	MaxDailyLossUSDT  float64       // дневной лимит убытка
	MaxConsecLosses   int           // максимум убытков подряд
	MaxTradesPerHour  int           // лимит сделок на инструмент в скользящий час
	MaxOrderErrors    int           // ошибок ордеров до исключения инструмента
}

// ScannerConfig - параметры отбора волатильных инструментов
type ScannerConfig struct {
	Interval         time.Duration // период пересканирования
	QuoteCurrency    string        // валюта котировки (USDT)
	MinVolumeUSDT    float64       // минимальный 24h объём
	MinVolatilityPct float64       // минимальная 24h волатильность (high-low)/low
	TopN             int           // размер hot set
}

// SecurityConfig - настройки безопасности операторского API
type SecurityConfig struct {
	AdminTokenHash string // bcrypt хеш операторского токена
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "sniper"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Exchange: ExchangeConfig{
			APIKey:     getEnv("OKX_API_KEY", ""),
			APISecret:  getEnv("OKX_API_SECRET", ""),
			Passphrase: getEnv("OKX_PASSPHRASE", ""),
			Simulated:  getEnvAsBool("OKX_SIMULATED", true),

			RESTBaseURL:  getEnv("OKX_REST_URL", "https://www.okx.com"),
			WSPublicURL:  getEnv("OKX_WS_PUBLIC_URL", "wss://ws.okx.com:8443/ws/v5/public"),
			WSPrivateURL: getEnv("OKX_WS_PRIVATE_URL", "wss://ws.okx.com:8443/ws/v5/private"),

			RateLimit:      getEnvAsFloat("OKX_RATE_LIMIT", 10),
			RateBurst:      getEnvAsFloat("OKX_RATE_BURST", 20),
			TimeSyncFreq:   getEnvAsDuration("OKX_TIME_SYNC_FREQ", 5*time.Minute),
			WSPingInterval: getEnvAsDuration("WS_PING_INTERVAL", 15*time.Second),
			WSReadTimeout:  getEnvAsDuration("WS_READ_TIMEOUT", 30*time.Second),
		},
		Trading: TradingConfig{
			BarPeriod:    getEnvAsDuration("BAR_PERIOD", 5*time.Second),
			BarCapacity:  getEnvAsInt("BAR_CAPACITY", 400),
			MinCandles:   getEnvAsInt("MIN_CANDLES_FOR_ENTRY", 12),
			LookbackBars: getEnvAsInt("LOOKBACK_CANDLES", 8),

			MinBreakoutBps: getEnvAsFloat("MIN_BREAKOUT_STRENGTH_BPS", 1.5),
			UseDeadZone:    getEnvAsBool("USE_DEAD_ZONE", true),
			DeadZoneBps:    getEnvAsFloat("DEAD_ZONE_BPS", 1.0),
			UseTrendFilter: getEnvAsBool("USE_TREND_FILTER", false),
			EMAFastPeriod:  getEnvAsInt("EMA_FAST_PERIOD", 5),
			EMASlowPeriod:  getEnvAsInt("EMA_SLOW_PERIOD", 13),

			ATRPeriod:     getEnvAsInt("ATR_PERIOD", 14),
			MinATRBps:     getEnvAsFloat("MIN_ATR_BPS", 5),
			TPATRMult:     getEnvAsFloat("TP_ATR_MULT", 4.0),
			SLATRMult:     getEnvAsFloat("SL_ATR_MULT", 2.0),
			MinTPBps:      getEnvAsFloat("MIN_TP_BPS", 20),
			MaxTPBps:      getEnvAsFloat("MAX_TP_BPS", 80),
			MinSLBps:      getEnvAsFloat("MIN_SL_BPS", 15),
			MaxSLBps:      getEnvAsFloat("MAX_SL_BPS", 60),
			MinRiskReward: getEnvAsFloat("MIN_RISK_REWARD", 0.2),

			FeeTakerBps:    getEnvAsFloat("FEE_TAKER_BPS", 10),
			MaxSlippageBps: getEnvAsFloat("MAX_SLIPPAGE_BPS", 5),

			ZScoreWindow:     getEnvAsInt("ZSCORE_WINDOW", 15),
			ZScoreThreshold:  getEnvAsFloat("ZSCORE_THRESHOLD", 0.10),
			VolumeBaseWindow: getEnvAsInt("VOLUME_AVG_WINDOW", 30),
			VolumeSpikeBars:  getEnvAsInt("VOLUME_SPIKE_WINDOW", 3),
			VolumeSpikeMult:  getEnvAsFloat("VOLUME_SPIKE_MULT", 1.1),
			MinImbalance:     getEnvAsFloat("MIN_IMBALANCE", 1.05),
			MaxImbalance:     getEnvAsFloat("MAX_IMBALANCE", 20.0),
			MinBidDepthUSDT:  getEnvAsFloat("MIN_BID_DEPTH_USDT", 400),
			MinConfirmations: getEnvAsInt("MIN_CONFIRMATIONS", 1),
			MaxSpreadPct:     getEnvAsFloat("MAX_SPREAD_PCT", 0.35),

			OrderNotionalUSDT:  getEnvAsFloat("BASE_ORDER_NOTIONAL", 20),
			CandidateTTL:       getEnvAsDuration("CANDIDATE_TTL", 20*time.Second),
			PendingEntryExpiry: getEnvAsDuration("PENDING_ENTRY_EXPIRY", 30*time.Second),
			MaxHoldTime:        getEnvAsDuration("MAX_HOLD_TIME", 120*time.Second),
			TrailActivateBps:   getEnvAsFloat("TRAIL_ACTIVATE_BPS", 15),
			TrailATRMult:       getEnvAsFloat("TRAIL_ATR_MULT", 1.0),
			TrailMinBps:        getEnvAsFloat("TRAIL_MIN_BPS", 10),
			MonitorInterval:    getEnvAsDuration("MONITOR_INTERVAL", 1*time.Second),

			RejectionLogWindow: getEnvAsDuration("REJECTION_LOG_WINDOW", 5*time.Second),
		},
		Risk: RiskConfig{
			CooldownAfterExit: getEnvAsDuration("COOLDOWN_AFTER_EXIT", 2*time.Second),
			CooldownAfterLoss: getEnvAsDuration("COOLDOWN_AFTER_LOSS", 8*time.Second),
			MaxDailyLossUSDT:  getEnvAsFloat("MAX_DAILY_LOSS_USDT", 30),
			MaxConsecLosses:   getEnvAsInt("MAX_CONSECUTIVE_LOSSES", 5),
			MaxTradesPerHour:  getEnvAsInt("MAX_TRADES_PER_PAIR_HOUR", 8),
			MaxOrderErrors:    getEnvAsInt("MAX_ORDER_ERRORS", 3),
		},
		Scanner: ScannerConfig{
			Interval:         getEnvAsDuration("SCANNER_INTERVAL", 90*time.Second),
			QuoteCurrency:    getEnv("SCANNER_QUOTE", "USDT"),
			MinVolumeUSDT:    getEnvAsFloat("SCANNER_MIN_VOLUME_USDT", 500000),
			MinVolatilityPct: getEnvAsFloat("SCANNER_MIN_VOLATILITY_PCT", 1.5),
			TopN:             getEnvAsInt("SCANNER_TOP_N", 20),
		},
		Security: SecurityConfig{
			AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
		},
	}

	// Валидация критичных параметров
	if err := cfg.validateCredentials(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateCredentials проверяет учетные данные биржи и оператора
func (c *Config) validateCredentials() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" || c.Exchange.Passphrase == "" {
		return fmt.Errorf("OKX_API_KEY, OKX_API_SECRET and OKX_PASSPHRASE are required")
	}

	// Bcrypt хеш обязателен: без него мутирующие endpoints недоступны
	if c.Security.AdminTokenHash == "" {
		return fmt.Errorf("ADMIN_TOKEN_HASH is required for operator endpoints")
	}

	if len(c.Security.AdminTokenHash) < 59 {
		return fmt.Errorf("ADMIN_TOKEN_HASH does not look like a bcrypt hash")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Trading.BarPeriod <= 0 {
		return fmt.Errorf("BAR_PERIOD must be positive, got %v", c.Trading.BarPeriod)
	}

	if c.Trading.BarCapacity < c.Trading.MinCandles {
		return fmt.Errorf("BAR_CAPACITY (%d) must not be less than MIN_CANDLES_FOR_ENTRY (%d)",
			c.Trading.BarCapacity, c.Trading.MinCandles)
	}

	if c.Trading.LookbackBars < 2 {
		return fmt.Errorf("LOOKBACK_CANDLES must be at least 2, got %d", c.Trading.LookbackBars)
	}

	if c.Trading.TPATRMult <= 0 || c.Trading.SLATRMult <= 0 {
		return fmt.Errorf("TP_ATR_MULT and SL_ATR_MULT must be positive, got %v and %v",
			c.Trading.TPATRMult, c.Trading.SLATRMult)
	}

	if c.Trading.MinTPBps > c.Trading.MaxTPBps {
		return fmt.Errorf("MIN_TP_BPS (%v) must not exceed MAX_TP_BPS (%v)",
			c.Trading.MinTPBps, c.Trading.MaxTPBps)
	}

	if c.Trading.MinSLBps > c.Trading.MaxSLBps {
		return fmt.Errorf("MIN_SL_BPS (%v) must not exceed MAX_SL_BPS (%v)",
			c.Trading.MinSLBps, c.Trading.MaxSLBps)
	}

	if c.Trading.OrderNotionalUSDT <= 0 {
		return fmt.Errorf("BASE_ORDER_NOTIONAL must be positive, got %v", c.Trading.OrderNotionalUSDT)
	}

	if c.Trading.MonitorInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive, got %v", c.Trading.MonitorInterval)
	}

	if c.Trading.MinConfirmations < 1 || c.Trading.MinConfirmations > 3 {
		return fmt.Errorf("MIN_CONFIRMATIONS must be in [1, 3], got %d", c.Trading.MinConfirmations)
	}

	if c.Risk.MaxDailyLossUSDT <= 0 {
		return fmt.Errorf("MAX_DAILY_LOSS_USDT must be positive, got %v", c.Risk.MaxDailyLossUSDT)
	}

	if c.Scanner.TopN < 1 {
		return fmt.Errorf("SCANNER_TOP_N must be at least 1, got %d", c.Scanner.TopN)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
