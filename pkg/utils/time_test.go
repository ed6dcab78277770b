package utils

import (
	"testing"
	"time"
)

func TestBarBucket(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 34, 56, 0, time.UTC)

	tests := []struct {
		name   string
		a, b   time.Time
		period time.Duration
		same   bool
	}{
		{"same minute", base, base.Add(3 * time.Second), time.Minute, true},
		{"next minute", base, base.Add(10 * time.Second), time.Minute, false},
		{"same 5s bucket", base.Truncate(5 * time.Second), base.Truncate(5 * time.Second).Add(4 * time.Second), 5 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same := BarBucket(tt.a, tt.period) == BarBucket(tt.b, tt.period)
			if same != tt.same {
				t.Errorf("BarBucket(%v) vs BarBucket(%v), period %v: same=%v, want %v",
					tt.a, tt.b, tt.period, same, tt.same)
			}
		})
	}
}

func TestBarBucketStart(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 34, 56, 0, time.UTC)

	start := BarBucketStart(ts, time.Minute)
	want := time.Date(2025, 6, 1, 12, 34, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("BarBucketStart = %v, want %v", start, want)
	}

	// Начало корзины идемпотентно
	if !BarBucketStart(start, time.Minute).Equal(start) {
		t.Error("BarBucketStart от начала корзины должна вернуть его же")
	}

	// period <= 0 возвращает исходное время
	if !BarBucketStart(ts, 0).Equal(ts) {
		t.Error("BarBucketStart с period=0 должна вернуть исходное время")
	}
}

func TestGetDayStartFrom(t *testing.T) {
	ts := time.Date(2025, 6, 1, 14, 30, 45, 123, time.UTC)
	start := GetDayStartFrom(ts)
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("GetDayStartFrom = %v, want %v", start, want)
	}
}
