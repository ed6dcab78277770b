package models

import "time"

// Bar представляет OHLCV свечу фиксированного периода.
// Текущая (незакрытая) свеча мутабельна; после закрытия свеча не меняется.
type Bar struct {
	StartTime time.Time `json:"start_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Range возвращает размах свечи (High - Low)
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// TrueRange вычисляет истинный диапазон свечи относительно
// закрытия предыдущей свечи:
//
//	TR = max(H-L, |H-prevClose|, |L-prevClose|)
func (b Bar) TrueRange(prevClose float64) float64 {
	tr := b.High - b.Low
	if hc := abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
