package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Границы временных корзин для агрегации свечей и статистики.
//
// Функции:
// - BarBucket: номер корзины свечи для момента времени
// - BarBucketStart: начало корзины свечи
// - GetDayStart / GetDayStartFrom: начало дня для дневной статистики

// BarBucket возвращает номер корзины свечи для момента времени t.
//
// Корзина = floor(unix(t) / period). Все тики одной корзины попадают
// в одну свечу; рост номера корзины закрывает текущую свечу.
//
// Параметры:
//   - t: момент времени (должен быть выровнен по часам биржи)
//   - period: период свечи
//
// Возвращает:
//   - Номер корзины; 0 если period <= 0
func BarBucket(t time.Time, period time.Duration) int64 {
	if period <= 0 {
		return 0
	}
	return t.Unix() / int64(period.Seconds())
}

// BarBucketStart возвращает начало корзины свечи для момента времени t.
//
// Пример:
//
//	// t = 12:34:56, period = 1m
//	start := BarBucketStart(t, time.Minute)
//	// start = 12:34:00
func BarBucketStart(t time.Time, period time.Duration) time.Time {
	if period <= 0 {
		return t
	}
	sec := int64(period.Seconds())
	return time.Unix(t.Unix()/sec*sec, 0).UTC()
}

// GetDayStart возвращает начало текущего дня (00:00:00) в UTC
func GetDayStart() time.Time {
	return GetDayStartFrom(time.Now().UTC())
}

// GetDayStartFrom возвращает начало дня для указанного времени в UTC
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
