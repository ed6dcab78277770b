package bot

import (
	"testing"
	"time"

	"sniper/internal/config"
	"sniper/internal/models"
)

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		BarPeriod:    5 * time.Second,
		BarCapacity:  400,
		MinCandles:   12,
		LookbackBars: 8,

		MinBreakoutBps: 1.5,
		UseDeadZone:    true,
		DeadZoneBps:    5,
		UseTrendFilter: false,
		EMAFastPeriod:  9,
		EMASlowPeriod:  21,

		ATRPeriod:     14,
		MinATRBps:     5,
		TPATRMult:     4,
		SLATRMult:     2,
		MinTPBps:      20,
		MaxTPBps:      1000,
		MinSLBps:      15,
		MaxSLBps:      1000,
		MinRiskReward: 0.2,

		FeeTakerBps:    10,
		MaxSlippageBps: 3,

		ZScoreWindow:     14,
		ZScoreThreshold:  5,
		VolumeBaseWindow: 10,
		VolumeSpikeBars:  2,
		VolumeSpikeMult:  2,
		MinImbalance:     1.2,
		MaxImbalance:     10,
		MinBidDepthUSDT:  500,
		MinConfirmations: 2,
		MaxSpreadPct:     0.1,

		OrderNotionalUSDT:  100,
		CandidateTTL:       20 * time.Second,
		PendingEntryExpiry: 30 * time.Second,
		MaxHoldTime:        120 * time.Second,
		TrailActivateBps:   15,
		TrailATRMult:       1,
		TrailMinBps:        10,
		MonitorInterval:    time.Second,

		RejectionLogWindow: 5 * time.Second,
	}
}

// buildSeries строит серию закрытых свечей из списка (close, high, low, volume).
// Времена начала идут с шагом 5 секунд.
func buildSeries(bars []models.Bar) *BarSeries {
	s := NewBarSeries(len(bars) + 1)
	base := time.Unix(100000, 0)
	for i, b := range bars {
		b.StartTime = base.Add(time.Duration(i) * 5 * time.Second)
		if b.Open == 0 {
			b.Open = b.Close
		}
		s.Append(b)
	}
	return s
}

// breakoutSeries строит серию с чистым пробоем на последней свече:
// 14 плоских свечей вокруг 100 (TR=1 каждая) и закрытие 100.1 сверху.
// Дает ATR=1 на последних 15 свечах.
func breakoutSeries() *BarSeries {
	bars := make([]models.Bar, 0, 15)
	for i := 0; i < 14; i++ {
		bars = append(bars, models.Bar{Close: 100, High: 100.5, Low: 99.5, Volume: 10})
	}
	bars = append(bars, models.Bar{Close: 100.1, High: 100.6, Low: 99.6, Volume: 30})
	return buildSeries(bars)
}

// flatSeries строит серию без пробоя: все закрытия равны price
func flatSeries(n int, price float64) *BarSeries {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Close: price, High: price + 0.5, Low: price - 0.5, Volume: 10}
	}
	return buildSeries(bars)
}

// newRejectionCapture возвращает логгер без rate limit и канал его событий
func newRejectionCapture() (*RejectionLogger, chan *models.RejectionEvent) {
	ch := make(chan *models.RejectionEvent, 64)
	rl := NewRejectionLogger(0, func(e *models.RejectionEvent) { ch <- e })
	return rl, ch
}

// expectRejection ждет событие отбраковки с указанной причиной
func expectRejection(t *testing.T, ch chan *models.RejectionEvent, reason string) *models.RejectionEvent {
	t.Helper()
	select {
	case e := <-ch:
		if e.Reason != reason {
			t.Fatalf("отбраковка %q, ожидалась %q (detail: %s)", e.Reason, reason, e.Detail)
		}
		return e
	case <-time.After(time.Second):
		t.Fatalf("отбраковка %q не получена за секунду", reason)
		return nil
	}
}

// expectNoRejection проверяет, что событий отбраковки не поступало
func expectNoRejection(t *testing.T, ch chan *models.RejectionEvent) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("неожиданная отбраковка: %s / %s (%s)", e.Stage, e.Reason, e.Detail)
	case <-time.After(50 * time.Millisecond):
	}
}

// waitUntil поллит условие до таймаута
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
