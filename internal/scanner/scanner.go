package scanner

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"sniper/internal/config"
	"sniper/internal/exchange"
)

// TickerSource - источник 24h статистики инструментов (биржа)
type TickerSource interface {
	GetTickers24h(ctx context.Context) ([]*exchange.Ticker24h, error)
}

// HotSetApplier - приемник диффов hot set (ядро)
type HotSetApplier interface {
	HotSet() []string
	ApplyHotSet(added, removed []string)
}

// Scanner периодически пересобирает hot set: отбирает волатильные
// спотовые инструменты по 24h статистике и отдает дифф ядру.
//
// Отбор: валюта котировки, минимальный 24h объём, минимальная 24h
// волатильность (high-low)/low, топ-N по объёму, минус исключенные
// риск-менеджером инструменты.
type Scanner struct {
	cfg      config.ScannerConfig
	tickers  TickerSource
	engine   HotSetApplier
	excluded func(string) bool
}

// New создает сканер. excluded может быть nil (ничего не исключено).
func New(cfg config.ScannerConfig, tickers TickerSource, engine HotSetApplier, excluded func(string) bool) *Scanner {
	if excluded == nil {
		excluded = func(string) bool { return false }
	}
	return &Scanner{
		cfg:      cfg,
		tickers:  tickers,
		engine:   engine,
		excluded: excluded,
	}
}

// Run запускает цикл сканирования. Первый скан выполняется сразу,
// дальше по таймеру до отмены контекста.
func (s *Scanner) Run(ctx context.Context) {
	s.scan(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// scan выполняет один проход: отбор, дифф, применение
func (s *Scanner) scan(ctx context.Context) {
	started := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	tickers, err := s.tickers.GetTickers24h(reqCtx)
	cancel()
	if err != nil {
		scanErrors.Inc()
		log.Printf("⚠️ Scanner: tickers fetch failed: %v", err)
		return
	}

	want := s.selectUniverse(tickers)
	added, removed := diff(s.engine.HotSet(), want)
	if len(added) > 0 || len(removed) > 0 {
		log.Printf("🔍 Scanner: hot set %d instruments (+%d/-%d)",
			len(want), len(added), len(removed))
		s.engine.ApplyHotSet(added, removed)
	}

	scansTotal.Inc()
	universeSize.Set(float64(len(want)))
	scanDuration.Observe(time.Since(started).Seconds())
}

// selectUniverse отбирает инструменты из 24h статистики
func (s *Scanner) selectUniverse(tickers []*exchange.Ticker24h) []string {
	suffix := "-" + s.cfg.QuoteCurrency

	eligible := make([]*exchange.Ticker24h, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Instrument, suffix) {
			continue
		}
		if t.VolUSDT < s.cfg.MinVolumeUSDT {
			continue
		}
		if t.Low24h <= 0 {
			continue
		}
		volatility := (t.High24h - t.Low24h) / t.Low24h * 100
		if volatility < s.cfg.MinVolatilityPct {
			continue
		}
		if s.excluded(t.Instrument) {
			continue
		}
		eligible = append(eligible, t)
	}

	// Топ-N по 24h объёму
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].VolUSDT > eligible[j].VolUSDT
	})
	if len(eligible) > s.cfg.TopN {
		eligible = eligible[:s.cfg.TopN]
	}

	out := make([]string, len(eligible))
	for i, t := range eligible {
		out[i] = t.Instrument
	}
	return out
}

// diff вычисляет разницу между текущим и желаемым hot set
func diff(current, want []string) (added, removed []string) {
	cur := make(map[string]bool, len(current))
	for _, inst := range current {
		cur[inst] = true
	}
	wanted := make(map[string]bool, len(want))
	for _, inst := range want {
		wanted[inst] = true
		if !cur[inst] {
			added = append(added, inst)
		}
	}
	for _, inst := range current {
		if !wanted[inst] {
			removed = append(removed, inst)
		}
	}
	return added, removed
}
