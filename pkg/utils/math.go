package utils

import (
	"math"
)

// math.go - математические утилиты для momentum-торговли
//
// Назначение:
// Вспомогательные математические функции для торговых расчетов.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - RoundToLotSize / RoundToTickSize: округление под шаги биржи
// - CalculateSpreadPct: спред top-of-book в процентах
// - BpsChange: относительное изменение в базисных пунктах
// - CalculateEMA: экспоненциальная скользящая средняя
// - CalculateATR: Average True Range по закрытым свечам
// - LogReturns / ZScore: z-оценка momentum по лог-доходностям
// - VolumeSpikeRatio: всплеск объема относительно базовой линии

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Параметры:
//   - value: исходное значение (объём в монетах актива)
//   - lotSize: минимальный шаг изменения объёма на бирже
//
// Возвращает:
//   - Округлённое значение, кратное lotSize
//   - Если lotSize <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	// Округление вниз безопаснее для торговли - не превысим доступные средства
	return math.Floor(value/lotSize) * lotSize
}

// RoundToTickSize округляет цену к ближайшему кратному tickSize.
//
// Используется для цен TP/SL в прикрепленных ордерах: биржа отклоняет
// цену, не кратную шагу инструмента.
//
// Примеры:
//   - RoundToTickSize(100.1234, 0.01) = 100.12
//   - RoundToTickSize(0.071239, 0.0001) = 0.0712
func RoundToTickSize(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	return math.Round(price/tickSize) * tickSize
}

// CalculateSpreadPct расчитывает спред top-of-book в процентах от ask.
//
// Формула:
//
//	Спред (%) = ((ask - bid) / ask) × 100
//
// Параметры:
//   - bid: лучшая цена покупки
//   - ask: лучшая цена продажи
//
// Возвращает:
//   - Спред в процентах (0.35 означает 0.35%)
//   - Если ask <= 0, возвращает 0
//
// Примеры:
//   - CalculateSpreadPct(99.9, 100.0) = 0.1
func CalculateSpreadPct(bid, ask float64) float64 {
	if ask <= 0 {
		return 0
	}
	return (ask - bid) / ask * 100
}

// BpsChange расчитывает относительное изменение в базисных пунктах.
//
// Формула:
//
//	bps = ((value - base) / base) × 10000
//
// 1 bps = 0.01%. Используется для силы пробоя, ATR в bps и дистанций TP/SL.
//
// Параметры:
//   - value: новое значение
//   - base: базовое значение
//
// Возвращает:
//   - Изменение в bps (может быть отрицательным)
//   - Если base <= 0, возвращает 0
//
// Примеры:
//   - BpsChange(100.15, 100.0) = 15.0
//   - BpsChange(99.0, 100.0) = -100.0
func BpsChange(value, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return (value - base) / base * 10000
}

// CalculateEMA расчитывает экспоненциальную скользящую среднюю.
//
// Сглаживание k = 2/(period+1); EMA инициализируется ПЕРВЫМ значением
// окна (не SMA), дальше стандартная рекуррента:
//
//	EMA_i = value_i × k + EMA_{i-1} × (1 - k)
//
// Параметры:
//   - values: значения от старых к новым
//   - period: период EMA
//
// Возвращает:
//   - EMA последнего значения
//   - 0 если данных нет или period <= 0
func CalculateEMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	k := 2.0 / (float64(period) + 1.0)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// CalculateATR расчитывает Average True Range по закрытым свечам.
//
// True Range свечи i:
//
//	TR_i = max(H_i - L_i, |H_i - C_{i-1}|, |L_i - C_{i-1}|)
//
// ATR = среднее TR за period последних свечей. Для period свечей TR
// нужно period+1 свечей (для prevClose первой).
//
// Параметры:
//   - highs, lows, closes: значения свечей от старых к новым,
//     одинаковой длины >= period+1
//   - period: период усреднения
//
// Возвращает:
//   - ATR в абсолютных ценовых единицах
//   - 0 если данных недостаточно
func CalculateATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || n < period+1 || len(highs) != n || len(lows) != n {
		return 0
	}

	var sum float64
	for i := n - period; i < n; i++ {
		prevClose := closes[i-1]
		tr := highs[i] - lows[i]
		if hc := math.Abs(highs[i] - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(lows[i] - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period)
}

// LogReturns расчитывает логарифмические доходности ряда цен.
//
// r_i = ln(p_i / p_{i-1}). Нулевые и отрицательные цены пропускаются
// (доходность по ним не определена).
//
// Возвращает слайс длины до len(prices)-1, от старых к новым.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	return returns
}

// ZScore расчитывает z-оценку последнего значения ряда.
//
// z = (last - mean) / stddev, где stddev - популяционное стандартное
// отклонение всего ряда. При нулевой дисперсии используется epsilon,
// чтобы избежать деления на ноль.
//
// Меньше 5 значений - статистика не значима, возвращается ровно 0.0:
// нулевая z-оценка никогда не проходит порог подтверждения.
//
// Параметры:
//   - values: значения от старых к новым
//
// Возвращает:
//   - z-оценку последнего значения, либо 0.0 при len < 5
func ZScore(values []float64) float64 {
	if len(values) < 5 {
		return 0.0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	std := 1e-9
	if variance > 0 {
		std = math.Sqrt(variance)
	}

	return (values[len(values)-1] - mean) / std
}

// VolumeSpikeRatio расчитывает всплеск объема относительно базовой линии.
//
// Сумма объемов последних spikeWindow свечей сравнивается с ожидаемым
// объемом за то же число свечей при среднем объеме базового окна:
//
//	ratio = Σ(vol последних k) / (avg(vol базы) × k)
//
// База - это свечи, предшествующие окну всплеска.
//
// Параметры:
//   - volumes: объемы свечей от старых к новым
//   - baseWindow: размер базового окна
//   - spikeWindow: размер окна всплеска (k)
//
// Возвращает:
//   - Отношение всплеска (1.0 = объем на среднем уровне)
//   - 0 если данных недостаточно или базовый объем нулевой
func VolumeSpikeRatio(volumes []float64, baseWindow, spikeWindow int) float64 {
	if baseWindow <= 0 || spikeWindow <= 0 || len(volumes) < baseWindow+spikeWindow {
		return 0
	}

	spike := volumes[len(volumes)-spikeWindow:]
	base := volumes[len(volumes)-spikeWindow-baseWindow : len(volumes)-spikeWindow]

	var baseSum float64
	for _, v := range base {
		baseSum += v
	}
	baseAvg := baseSum / float64(baseWindow)
	if baseAvg <= 0 {
		return 0
	}

	var spikeSum float64
	for _, v := range spike {
		spikeSum += v
	}

	return spikeSum / (baseAvg * float64(spikeWindow))
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
