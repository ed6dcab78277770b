package bot

import (
	"fmt"
	"sync"
	"time"

	"sniper/internal/config"
)

// RiskManager - централизованная политика допуска к торговле
//
// Функции:
// - Пауза после любого выхода (остыть перед следующим входом)
// - Увеличенная пауза после убыточной сделки
// - Дневной лимит убытка
// - Лимит убытков подряд
// - Лимит сделок на инструмент в скользящий час
// - Исключение инструментов с повторяющимися ошибками ордеров
//
// Счетчики живут время жизни процесса: календарного сброса нет,
// перезапуск процесса и есть механизм сброса.
type RiskManager struct {
	mu sync.Mutex

	cfg config.RiskConfig

	dailyPnl      float64
	consecLosses  int
	lastTradeTime time.Time
	lastLossTime  time.Time

	// Времена сделок по инструментам для часового rate limit
	tradeTimes map[string][]time.Time

	// Счетчики ошибок ордеров; инструмент исключается навсегда
	// (до рестарта) после MaxOrderErrors
	orderErrors map[string]int
	excluded    map[string]bool

	clock func() time.Time
}

// NewRiskManager создает риск-менеджер
func NewRiskManager(cfg config.RiskConfig) *RiskManager {
	return &RiskManager{
		cfg:         cfg,
		tradeTimes:  make(map[string][]time.Time),
		orderErrors: make(map[string]int),
		excluded:    make(map[string]bool),
		clock:       time.Now,
	}
}

// CanOpenPosition проверяет допустимость входа по инструменту.
// Проверки выполняются по порядку; первая непройденная возвращает причину.
func (rm *RiskManager) CanOpenPosition(instrument string) (bool, string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	now := rm.clock()

	// 1. Пауза после любого выхода
	if !rm.lastTradeTime.IsZero() && now.Sub(rm.lastTradeTime) < rm.cfg.CooldownAfterExit {
		RiskBlocks.WithLabelValues("exit_cooldown").Inc()
		return false, fmt.Sprintf("exit cooldown (%.1fs left)",
			(rm.cfg.CooldownAfterExit - now.Sub(rm.lastTradeTime)).Seconds())
	}

	// 2. Пауза после убытка. Прибыльный выход сбрасывает серию,
	// и вместе с ней кулдаун - даже если сам убыток был недавно
	if rm.consecLosses > 0 && !rm.lastLossTime.IsZero() && now.Sub(rm.lastLossTime) < rm.cfg.CooldownAfterLoss {
		RiskBlocks.WithLabelValues("loss_cooldown").Inc()
		return false, fmt.Sprintf("loss cooldown (%.1fs left)",
			(rm.cfg.CooldownAfterLoss - now.Sub(rm.lastLossTime)).Seconds())
	}

	// 3. Дневной лимит убытка
	if rm.dailyPnl <= -rm.cfg.MaxDailyLossUSDT {
		RiskBlocks.WithLabelValues("daily_loss").Inc()
		return false, fmt.Sprintf("daily loss cap reached (%.2f USDT)", rm.dailyPnl)
	}

	// 4. Лимит убытков подряд
	if rm.consecLosses >= rm.cfg.MaxConsecLosses {
		RiskBlocks.WithLabelValues("consec_losses").Inc()
		return false, fmt.Sprintf("consecutive loss cap reached (%d)", rm.consecLosses)
	}

	// 5. Часовой rate limit по инструменту
	recent := rm.recentTradesLocked(instrument, now)
	if len(recent) >= rm.cfg.MaxTradesPerHour {
		RiskBlocks.WithLabelValues("hourly_rate").Inc()
		return false, fmt.Sprintf("hourly trade cap reached (%d/h)", len(recent))
	}

	return true, ""
}

// recentTradesLocked возвращает сделки инструмента за последний час,
// попутно обрезая устаревшие записи. Вызывается под rm.mu.
func (rm *RiskManager) recentTradesLocked(instrument string, now time.Time) []time.Time {
	times := rm.tradeTimes[instrument]
	cutoff := now.Add(-time.Hour)

	i := 0
	for ; i < len(times); i++ {
		if times[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		times = times[i:]
		rm.tradeTimes[instrument] = times
	}
	return times
}

// RecordTrade фиксирует результат завершенной сделки:
// обновляет дневной PnL, серию убытков и окно rate limit
func (rm *RiskManager) RecordTrade(instrument string, pnl float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	now := rm.clock()

	rm.dailyPnl += pnl
	rm.lastTradeTime = now

	if pnl < 0 {
		rm.consecLosses++
		rm.lastLossTime = now
	} else {
		rm.consecLosses = 0
	}

	rm.tradeTimes[instrument] = append(rm.tradeTimes[instrument], now)

	DailyPnl.Set(rm.dailyPnl)
	ConsecutiveLosses.Set(float64(rm.consecLosses))
}

// RecordOrderError фиксирует ошибку ордера по инструменту.
// Возвращает true если инструмент только что исключен из торговли.
func (rm *RiskManager) RecordOrderError(instrument string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.excluded[instrument] {
		return false
	}

	rm.orderErrors[instrument]++
	if rm.orderErrors[instrument] >= rm.cfg.MaxOrderErrors {
		rm.excluded[instrument] = true
		return true
	}
	return false
}

// IsExcluded проверяет, исключен ли инструмент
func (rm *RiskManager) IsExcluded(instrument string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.excluded[instrument]
}

// ExcludedInstruments возвращает список исключенных инструментов
func (rm *RiskManager) ExcludedInstruments() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	out := make([]string, 0, len(rm.excluded))
	for inst := range rm.excluded {
		out = append(out, inst)
	}
	return out
}

// RiskSnapshot - срез состояния риск-менеджера для операторского API
type RiskSnapshot struct {
	DailyPnl          float64   `json:"daily_pnl"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	LastTradeTime     time.Time `json:"last_trade_time,omitempty"`
	LastLossTime      time.Time `json:"last_loss_time,omitempty"`
	Excluded          []string  `json:"excluded_instruments,omitempty"`
}

// Snapshot возвращает текущее состояние риск-менеджера
func (rm *RiskManager) Snapshot() RiskSnapshot {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	excluded := make([]string, 0, len(rm.excluded))
	for inst := range rm.excluded {
		excluded = append(excluded, inst)
	}

	return RiskSnapshot{
		DailyPnl:          rm.dailyPnl,
		ConsecutiveLosses: rm.consecLosses,
		LastTradeTime:     rm.lastTradeTime,
		LastLossTime:      rm.lastLossTime,
		Excluded:          excluded,
	}
}

// Reset сбрасывает счетчики (операторская команда).
// Исключенные инструменты НЕ восстанавливаются: повторяющиеся ошибки
// ордеров обычно означают проблему самого инструмента.
func (rm *RiskManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.dailyPnl = 0
	rm.consecLosses = 0
	rm.lastTradeTime = time.Time{}
	rm.lastLossTime = time.Time{}
	rm.tradeTimes = make(map[string][]time.Time)

	DailyPnl.Set(0)
	ConsecutiveLosses.Set(0)
}
