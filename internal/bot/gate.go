package bot

import (
	"fmt"
	"time"

	"sniper/internal/config"
	"sniper/internal/models"
	"sniper/pkg/utils"
)

// ExecutionGate - вторая стадия сигнала: подтверждение входа.
//
// На каждом тике переоценивает взведенного кандидата против независимых
// сигналов (z-оценка импульса, всплеск объема, дисбаланс стакана) и
// риск-политики. Риск проверяется заново на момент подтверждения:
// состояние могло измениться с момента взведения.
//
// При успехе кандидат атомарно изымается (потребляется ровно один раз)
// и вход диспетчеризуется асинхронно.
type ExecutionGate struct {
	cfg       config.TradingConfig
	detector  *SignalDetector
	risk      *RiskManager
	lifecycle *PositionLifecycle
	rejects   *RejectionLogger

	clock func() time.Time
}

// NewExecutionGate создает gate
func NewExecutionGate(
	cfg config.TradingConfig,
	detector *SignalDetector,
	risk *RiskManager,
	lifecycle *PositionLifecycle,
	rejects *RejectionLogger,
) *ExecutionGate {
	return &ExecutionGate{
		cfg:       cfg,
		detector:  detector,
		risk:      risk,
		lifecycle: lifecycle,
		rejects:   rejects,
		clock:     time.Now,
	}
}

// Evaluate выполняет confirmation-сканирование кандидата инструмента.
// Возвращает true если вход диспетчеризован.
func (g *ExecutionGate) Evaluate(instrument string, series *BarSeries, book *models.BookTicker) bool {
	candidate := g.detector.Candidate(instrument)
	if candidate == nil {
		return false
	}

	// Истекший кандидат отбрасывается ровно один раз
	if candidate.Expired(g.clock(), g.cfg.CandidateTTL) {
		if g.detector.ConsumeCandidate(instrument) != nil {
			g.rejects.Log(instrument, models.StageExecution, models.ReasonStaleCandidate,
				fmt.Sprintf("armed %.1fs ago, ttl %.0fs",
					g.clock().Sub(candidate.ArmedAt).Seconds(), g.cfg.CandidateTTL.Seconds()))
		}
		return false
	}

	// Позиция уже есть или в процессе открытия: кандидат ждет
	// (или истечет). Не отбраковка.
	if g.lifecycle.HasPosition() {
		return false
	}

	// Риск переоценивается на момент подтверждения
	if allowed, reason := g.risk.CanOpenPosition(instrument); !allowed {
		g.rejects.Log(instrument, models.StageExecution, models.ReasonRisk, reason)
		return false
	}
	if g.risk.IsExcluded(instrument) {
		g.rejects.Log(instrument, models.StageExecution, models.ReasonRisk, "instrument excluded")
		return false
	}

	// Снимок стакана обязателен: без него нет ни спреда, ни дисбаланса
	if book == nil || book.BidPrice <= 0 || book.AskPrice <= 0 {
		return false
	}

	spreadPct := utils.CalculateSpreadPct(book.BidPrice, book.AskPrice)
	if spreadPct > g.cfg.MaxSpreadPct {
		g.rejects.Log(instrument, models.StageExecution, models.ReasonWideSpread,
			fmt.Sprintf("spread=%.3f%% > max=%.3f%%", spreadPct, g.cfg.MaxSpreadPct))
		return false
	}

	confirmations := 0

	// 1. Z-оценка импульса по логарифмическим доходностям
	closes := series.Closes(g.cfg.ZScoreWindow + 1)
	z := utils.ZScore(utils.LogReturns(closes))
	if z >= g.cfg.ZScoreThreshold || -z >= g.cfg.ZScoreThreshold {
		confirmations++
		ConfirmationsPassed.WithLabelValues("zscore").Inc()
	}

	// 2. Всплеск объема относительно базовой линии
	volumes := series.Volumes(g.cfg.VolumeBaseWindow + g.cfg.VolumeSpikeBars)
	volRatio := utils.VolumeSpikeRatio(volumes, g.cfg.VolumeBaseWindow, g.cfg.VolumeSpikeBars)
	if volRatio >= g.cfg.VolumeSpikeMult {
		confirmations++
		ConfirmationsPassed.WithLabelValues("volume").Inc()
	}

	// 3. Дисбаланс стакана: перевес бида в допустимой полосе
	// при достаточной глубине
	imbalance := book.Imbalance()
	if imbalance >= g.cfg.MinImbalance && imbalance <= g.cfg.MaxImbalance &&
		book.BidNotional() >= g.cfg.MinBidDepthUSDT {
		confirmations++
		ConfirmationsPassed.WithLabelValues("imbalance").Inc()
	}

	if confirmations < g.cfg.MinConfirmations {
		g.rejects.Log(instrument, models.StageExecution, models.ReasonNoConfirmation,
			fmt.Sprintf("%d/%d: z=%.3f vol=%.2f imb=%.2f",
				confirmations, g.cfg.MinConfirmations, z, volRatio, imbalance))
		return false
	}

	// Подтверждено: изымаем кандидата и диспетчеризуем вход.
	// ConsumeCandidate атомарен - конкурентное подтверждение того же
	// кандидата получит nil.
	consumed := g.detector.ConsumeCandidate(instrument)
	if consumed == nil {
		return false
	}

	go g.lifecycle.EnterPosition(consumed, imbalance)
	return true
}
