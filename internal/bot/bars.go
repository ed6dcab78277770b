package bot

import (
	"time"

	"sniper/internal/models"
	"sniper/pkg/utils"
)

// BarSeries - кольцевой буфер закрытых свечей фиксированной ёмкости.
// Времена начала строго возрастают; при переполнении вытесняется
// самая старая свеча. Не потокобезопасен: пишет и читает только
// consumer-горутина своего инструмента.
type BarSeries struct {
	bars  []models.Bar
	start int // индекс самой старой свечи
	count int
}

// NewBarSeries создает буфер заданной ёмкости
func NewBarSeries(capacity int) *BarSeries {
	if capacity <= 0 {
		capacity = 1
	}
	return &BarSeries{
		bars: make([]models.Bar, capacity),
	}
}

// Append добавляет закрытую свечу. Свечи с временем начала не позже
// последней отбрасываются (защита от дублей при переподключении).
func (s *BarSeries) Append(bar models.Bar) {
	if s.count > 0 {
		last := s.at(s.count - 1)
		if !bar.StartTime.After(last.StartTime) {
			return
		}
	}

	if s.count < len(s.bars) {
		s.bars[(s.start+s.count)%len(s.bars)] = bar
		s.count++
		return
	}

	// Буфер полон: перезаписываем самую старую
	s.bars[s.start] = bar
	s.start = (s.start + 1) % len(s.bars)
}

// Len возвращает количество закрытых свечей
func (s *BarSeries) Len() int {
	return s.count
}

func (s *BarSeries) at(i int) models.Bar {
	return s.bars[(s.start+i)%len(s.bars)]
}

// Last возвращает n последних свечей, от старых к новым.
// n <= 0 возвращает все.
func (s *BarSeries) Last(n int) []models.Bar {
	if n <= 0 || n > s.count {
		n = s.count
	}
	out := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = s.at(s.count - n + i)
	}
	return out
}

// Closes возвращает n последних цен закрытия, от старых к новым
func (s *BarSeries) Closes(n int) []float64 {
	bars := s.Last(n)
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes возвращает n последних объёмов, от старых к новым
func (s *BarSeries) Volumes(n int) []float64 {
	bars := s.Last(n)
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// BarAggregator сворачивает поток тиков в OHLCV свечи фиксированного
// периода. Бакет свечи вычисляется по серверным часам биржи (через
// clock), а не по локальному времени: свечи остаются выровненными
// после реконнектов и рестартов.
type BarAggregator struct {
	series  *BarSeries
	period  time.Duration
	clock   func() time.Time
	current *models.Bar
	bucket  int64
}

// NewBarAggregator создает агрегатор.
// clock - источник серверного времени (exchange.Now).
func NewBarAggregator(period time.Duration, capacity int, clock func() time.Time) *BarAggregator {
	if clock == nil {
		clock = time.Now
	}
	return &BarAggregator{
		series: NewBarSeries(capacity),
		period: period,
		clock:  clock,
	}
}

// AddTick обрабатывает тик. Возвращает закрытую свечу, если тик
// открыл новый бакет (иначе nil).
//
// Неположительная цена игнорируется (аномалия данных, не ошибка).
// Объём аккумулируется только положительный.
func (a *BarAggregator) AddTick(price, volume float64) *models.Bar {
	if price <= 0 {
		return nil
	}

	now := a.clock()
	bucket := utils.BarBucket(now, a.period)

	// Первый тик или новый бакет: закрываем текущую свечу
	if a.current == nil || bucket != a.bucket {
		var closed *models.Bar
		if a.current != nil {
			c := *a.current
			a.series.Append(c)
			closed = &c
		}

		a.current = &models.Bar{
			StartTime: utils.BarBucketStart(now, a.period),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
		}
		if volume > 0 {
			a.current.Volume = volume
		}
		a.bucket = bucket
		return closed
	}

	if price > a.current.High {
		a.current.High = price
	}
	if price < a.current.Low {
		a.current.Low = price
	}
	a.current.Close = price
	if volume > 0 {
		a.current.Volume += volume
	}

	return nil
}

// Series возвращает буфер закрытых свечей (текущая свеча не входит)
func (a *BarAggregator) Series() *BarSeries {
	return a.series
}

// Current возвращает копию текущей (незакрытой) свечи, если она есть
func (a *BarAggregator) Current() *models.Bar {
	if a.current == nil {
		return nil
	}
	c := *a.current
	return &c
}
