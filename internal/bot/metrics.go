package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Анализ качества фильтров по счетчикам отбраковок

// ============ Поток данных ============

// TicksProcessed - количество обработанных тиков по инструментам
var TicksProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "engine",
		Name:      "ticks_processed_total",
		Help:      "Total number of processed market ticks",
	},
	[]string{"instrument"},
)

// BarsClosed - количество закрытых свечей
var BarsClosed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "engine",
		Name:      "bars_closed_total",
		Help:      "Total number of closed OHLCV bars",
	},
	[]string{"instrument"},
)

// QueueDropped - события, отброшенные из-за переполнения очереди инструмента
var QueueDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "engine",
		Name:      "queue_dropped_total",
		Help:      "Market events dropped due to full instrument queue",
	},
	[]string{"instrument"},
)

// ============ Сигналы ============

// CandidatesArmed - количество взведенных кандидатов
var CandidatesArmed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "signals",
		Name:      "candidates_armed_total",
		Help:      "Total number of armed breakout candidates",
	},
	[]string{"instrument"},
)

// ConfirmationsPassed - подтверждения по типам сигналов
var ConfirmationsPassed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "signals",
		Name:      "confirmations_passed_total",
		Help:      "Confirmation signal passes by signal type",
	},
	[]string{"signal"}, // zscore, volume, imbalance
)

// RejectionsTotal - отбраковки по стадиям и причинам
var RejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "signals",
		Name:      "rejections_total",
		Help:      "Signal rejections by stage and reason",
	},
	[]string{"stage", "reason"},
)

// ============ Позиция и сделки ============

// PositionState - текущее состояние позиции (1 в активном состоянии)
var PositionState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "sniper",
		Subsystem: "position",
		Name:      "state",
		Help:      "Current position state (1 = in this state, 0 = not)",
	},
	[]string{"state"}, // pending_entry, open, closing, closing_failed, absent
)

// TradesTotal - завершенные сделки по типу выхода и результату
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "position",
		Name:      "trades_total",
		Help:      "Total number of completed trades",
	},
	[]string{"exit_type", "result"}, // result: win, loss
)

// PnlTotal - суммарный реализованный PnL в USDT
var PnlTotal = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "sniper",
		Subsystem: "position",
		Name:      "pnl_total_usdt",
		Help:      "Total realized PnL in USDT (can go negative)",
	},
)

// HoldSeconds - распределение времени удержания позиции
var HoldSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "sniper",
		Subsystem: "position",
		Name:      "hold_seconds",
		Help:      "Position hold time in seconds",
		Buckets:   []float64{5, 10, 20, 30, 60, 90, 120, 180},
	},
)

// EntryLatency - время от подтверждения до принятия ордера биржей
var EntryLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "sniper",
		Subsystem: "position",
		Name:      "entry_latency_ms",
		Help:      "Latency from confirmation to order acceptance in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 200, 500, 1000, 2000},
	},
)

// ============ Риск ============

// RiskBlocks - блокировки входа риск-менеджером
var RiskBlocks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "risk",
		Name:      "blocks_total",
		Help:      "Entry attempts blocked by risk checks",
	},
	[]string{"check"}, // exit_cooldown, loss_cooldown, daily_loss, consec_losses, hourly_rate
)

// ConsecutiveLosses - текущая серия убытков
var ConsecutiveLosses = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "sniper",
		Subsystem: "risk",
		Name:      "consecutive_losses",
		Help:      "Current consecutive loss streak",
	},
)

// DailyPnl - накопленный PnL за время жизни процесса
var DailyPnl = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "sniper",
		Subsystem: "risk",
		Name:      "daily_pnl_usdt",
		Help:      "Accumulated PnL used by the daily loss cap",
	},
)

// ============ Hot set ============

// HotSetSize - текущее количество отслеживаемых инструментов
var HotSetSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "sniper",
		Subsystem: "scanner",
		Name:      "hot_set_size",
		Help:      "Current number of instruments in the hot set",
	},
)

// ============ Вспомогательные функции ============

// позиционные состояния для gauge (absent - отдельное "состояние")
var positionStates = []string{"pending_entry", "open", "closing", "closing_failed", "absent"}

// SetPositionState выставляет gauge состояния позиции.
// Передача пустой строки означает отсутствие позиции.
func SetPositionState(state string) {
	current := "absent"
	switch state {
	case "PENDING_ENTRY":
		current = "pending_entry"
	case "OPEN":
		current = "open"
	case "CLOSING":
		current = "closing"
	case "CLOSING_FAILED":
		current = "closing_failed"
	}

	for _, s := range positionStates {
		if s == current {
			PositionState.WithLabelValues(s).Set(1)
		} else {
			PositionState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordRejection записывает отбраковку в метрики
func RecordRejection(stage, reason string) {
	RejectionsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordCompletedTrade записывает завершенную сделку
func RecordCompletedTrade(exitType string, pnl, holdSeconds float64) {
	result := "win"
	if pnl < 0 {
		result = "loss"
	}
	TradesTotal.WithLabelValues(exitType, result).Inc()
	PnlTotal.Add(pnl)
	HoldSeconds.Observe(holdSeconds)
}
