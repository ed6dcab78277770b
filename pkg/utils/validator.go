package utils

import (
	"fmt"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности данных на границах системы (API, конфиг).
//
// Возвращает error с описанием проблемы или nil.

// ValidateInstrument проверяет формат идентификатора инструмента OKX.
//
// Ожидаемый формат спота: BASE-QUOTE, например "BTC-USDT".
// Обе части непустые, только заглавные буквы и цифры.
func ValidateInstrument(instID string) error {
	if instID == "" {
		return fmt.Errorf("instrument is empty")
	}

	parts := strings.Split(instID, "-")
	if len(parts) != 2 {
		return fmt.Errorf("instrument %q: expected BASE-QUOTE format", instID)
	}

	for _, part := range parts {
		if part == "" {
			return fmt.Errorf("instrument %q: empty segment", instID)
		}
		for _, r := range part {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				return fmt.Errorf("instrument %q: invalid character %q", instID, r)
			}
		}
	}

	return nil
}

// ValidatePositivePrice проверяет, что цена положительная и конечная
func ValidatePositivePrice(price float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %v", price)
	}
	if price != price || price > 1e15 {
		return fmt.Errorf("price out of range: %v", price)
	}
	return nil
}

// ValidateLimit проверяет limit параметр выборки (1..maxLimit)
func ValidateLimit(limit, maxLimit int) error {
	if limit < 1 || limit > maxLimit {
		return fmt.Errorf("limit must be in [1, %d], got %d", maxLimit, limit)
	}
	return nil
}
