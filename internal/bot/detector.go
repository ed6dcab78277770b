package bot

import (
	"fmt"
	"sync"
	"time"

	"sniper/internal/config"
	"sniper/internal/models"
	"sniper/pkg/utils"
)

// SignalDetector - первая стадия сигнала: сканирование пробоя.
//
// На каждом тике (после закрытия свечей) проверяет, пробила ли последняя
// цена закрытия недавний максимум с достаточной силой, и при прохождении
// всех фильтров взводит кандидата с рассчитанными TP/SL.
//
// Идемпотентен: пока по инструменту есть взведенный кандидат, повторное
// сканирование не выполняется. На инструмент существует не более одного
// кандидата (инвариант таблицы candidates).
type SignalDetector struct {
	cfg     config.TradingConfig
	rejects *RejectionLogger

	mu         sync.RWMutex
	candidates map[string]*models.ArmedCandidate

	// Уровень recent high последнего взведения по инструменту:
	// мертвая зона подавляет повторное взведение на том же уровне.
	// Очищается финализатором после завершения сделки.
	lastArmedHigh map[string]float64

	clock func() time.Time
}

// NewSignalDetector создает детектор
func NewSignalDetector(cfg config.TradingConfig, rejects *RejectionLogger) *SignalDetector {
	return &SignalDetector{
		cfg:           cfg,
		rejects:       rejects,
		candidates:    make(map[string]*models.ArmedCandidate),
		lastArmedHigh: make(map[string]float64),
		clock:         time.Now,
	}
}

// Scan выполняет setup-сканирование по закрытым свечам инструмента.
// Возвращает взведенного кандидата или nil (отбраковка - не ошибка).
func (d *SignalDetector) Scan(instrument string, series *BarSeries) *models.ArmedCandidate {
	// Уже взведен: no-op
	d.mu.RLock()
	_, armed := d.candidates[instrument]
	d.mu.RUnlock()
	if armed {
		return nil
	}

	// 1. Минимум данных
	if series.Len() < d.cfg.MinCandles {
		return nil
	}

	closes := series.Closes(d.cfg.LookbackBars + 1)
	last := closes[len(closes)-1]
	if last <= 0 {
		return nil
	}

	// 2. Опциональный трендовый фильтр: EMA fast > EMA slow
	if d.cfg.UseTrendFilter {
		window := series.Closes(d.cfg.EMASlowPeriod * 2)
		emaFast := utils.CalculateEMA(window, d.cfg.EMAFastPeriod)
		emaSlow := utils.CalculateEMA(window, d.cfg.EMASlowPeriod)
		if emaFast <= emaSlow {
			d.rejects.Log(instrument, models.StageSetup, models.ReasonNoBreakout,
				fmt.Sprintf("trend down: ema%d=%.6f <= ema%d=%.6f",
					d.cfg.EMAFastPeriod, emaFast, d.cfg.EMASlowPeriod, emaSlow))
			return nil
		}
	}

	// 3. Recent high по lookback окну, без новейшей свечи
	recentHigh := closes[0]
	for _, c := range closes[1 : len(closes)-1] {
		if c > recentHigh {
			recentHigh = c
		}
	}
	if recentHigh <= 0 {
		return nil
	}

	// 4. Условие пробоя
	if last <= recentHigh {
		d.rejects.Log(instrument, models.StageSetup, models.ReasonNoBreakout,
			fmt.Sprintf("close=%.8f <= high=%.8f", last, recentHigh))
		return nil
	}

	strengthBps := utils.BpsChange(last, recentHigh)
	if strengthBps < d.cfg.MinBreakoutBps {
		d.rejects.Log(instrument, models.StageSetup, models.ReasonWeakBreakout,
			fmt.Sprintf("strength=%.2f bps < min=%.2f", strengthBps, d.cfg.MinBreakoutBps))
		return nil
	}

	// 5. Мертвая зона: не взводиться повторно на том же уровне
	if d.cfg.UseDeadZone {
		d.mu.RLock()
		lastHigh, seen := d.lastArmedHigh[instrument]
		d.mu.RUnlock()
		if seen && lastHigh > 0 {
			drift := utils.BpsChange(recentHigh, lastHigh)
			if drift < 0 {
				drift = -drift
			}
			if drift <= d.cfg.DeadZoneBps {
				d.rejects.Log(instrument, models.StageSetup, models.ReasonDeadZone,
					fmt.Sprintf("level=%.8f within %.1f bps of last armed %.8f",
						recentHigh, d.cfg.DeadZoneBps, lastHigh))
				return nil
			}
		}
	}

	// 6. ATR: рынок должен двигаться. Период фиксированный:
	// пока истории меньше ATRPeriod+1 свечей, сигналов нет.
	if series.Len() < d.cfg.ATRPeriod+1 {
		return nil
	}
	bars := series.Last(d.cfg.ATRPeriod + 1)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closePrices := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closePrices[i] = b.Close
	}
	atr := utils.CalculateATR(highs, lows, closePrices, d.cfg.ATRPeriod)
	atrBps := atr / last * 10000
	if atrBps < d.cfg.MinATRBps {
		d.rejects.Log(instrument, models.StageSetup, models.ReasonLowATR,
			fmt.Sprintf("atr=%.2f bps < min=%.2f", atrBps, d.cfg.MinATRBps))
		return nil
	}

	// 7. Цели из ATR и проверка reward:risk с учетом издержек:
	// тейкер-комиссия плюс ожидаемое проскальзывание.
	tpBps := atr * d.cfg.TPATRMult / last * 10000
	slBps := atr * d.cfg.SLATRMult / last * 10000
	costBps := d.cfg.FeeTakerBps + d.cfg.MaxSlippageBps

	netTP := tpBps - costBps
	netSL := slBps + costBps
	if netTP <= 0 {
		d.rejects.Log(instrument, models.StageSetup, models.ReasonLowRR,
			fmt.Sprintf("tp=%.2f bps does not cover costs %.2f bps", tpBps, costBps))
		return nil
	}

	riskReward := netTP / netSL
	if riskReward < d.cfg.MinRiskReward {
		d.rejects.Log(instrument, models.StageSetup, models.ReasonLowRR,
			fmt.Sprintf("rr=%.3f < min=%.3f", riskReward, d.cfg.MinRiskReward))
		return nil
	}

	// 8. Клампинг целей: выбросы ATR не должны давать экстремальные цели
	tpBps = utils.Clamp(tpBps, d.cfg.MinTPBps, d.cfg.MaxTPBps)
	slBps = utils.Clamp(slBps, d.cfg.MinSLBps, d.cfg.MaxSLBps)

	// 9. Взведение кандидата
	candidate := &models.ArmedCandidate{
		Instrument:          instrument,
		EntryPrice:          last,
		TPPrice:             last * (1 + tpBps/10000),
		SLPrice:             last * (1 - slBps/10000),
		TPBps:               tpBps,
		SLBps:               slBps,
		ATR:                 atr,
		BreakoutStrengthBps: strengthBps,
		RiskReward:          riskReward,
		ArmedAt:             d.clock(),
	}

	d.mu.Lock()
	// Повторная проверка под write lock: конкурентный Scan того же
	// инструмента не должен перезаписать кандидата
	if _, exists := d.candidates[instrument]; exists {
		d.mu.Unlock()
		return nil
	}
	d.candidates[instrument] = candidate
	d.lastArmedHigh[instrument] = recentHigh
	d.mu.Unlock()

	CandidatesArmed.WithLabelValues(instrument).Inc()
	return candidate
}

// Candidate возвращает кандидата инструмента, если он есть
func (d *SignalDetector) Candidate(instrument string) *models.ArmedCandidate {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.candidates[instrument]
}

// ConsumeCandidate атомарно изымает кандидата из таблицы.
// Кандидат потребляется ровно один раз: повторный вызов вернет nil.
func (d *SignalDetector) ConsumeCandidate(instrument string) *models.ArmedCandidate {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.candidates[instrument]
	delete(d.candidates, instrument)
	return c
}

// DropCandidate удаляет кандидата (истечение TTL, удаление инструмента)
func (d *SignalDetector) DropCandidate(instrument string) {
	d.mu.Lock()
	delete(d.candidates, instrument)
	d.mu.Unlock()
}

// Candidates возвращает снимок всех взведенных кандидатов
func (d *SignalDetector) Candidates() []*models.ArmedCandidate {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*models.ArmedCandidate, 0, len(d.candidates))
	for _, c := range d.candidates {
		out = append(out, c)
	}
	return out
}

// ClearDeadZone сбрасывает уровень мертвой зоны инструмента.
// Вызывается финализатором: после завершенной сделки уровень снова доступен.
func (d *SignalDetector) ClearDeadZone(instrument string) {
	d.mu.Lock()
	delete(d.lastArmedHigh, instrument)
	d.mu.Unlock()
}
