package bot

import "sniper/internal/models"

// Пустая строка обозначает отсутствие позиции (absent)
const stateAbsent = ""

// ValidTransitions определяет допустимые переходы между состояниями позиции
var ValidTransitions = map[string][]string{
	stateAbsent: {models.PositionPendingEntry},
	models.PositionPendingEntry: {
		models.PositionOpen, // вход исполнен
		stateAbsent,         // не исполнен за таймаут, отменен и отброшен
	},
	models.PositionOpen: {
		models.PositionClosing, // max hold, трейлинг или сработавший TP/SL
		stateAbsent,            // прямой выход через TP/SL fill (сразу finalize)
	},
	models.PositionClosing: {
		stateAbsent,                  // подтвержденный выход
		models.PositionClosingFailed, // ордер на выход не прошел
	},
	// CLOSING_FAILED терминально: только ручной сброс через API
	models.PositionClosingFailed: {stateAbsent},
}

// CanTransition проверяет допустимость перехода.
// Переходы монотонны: позиция никогда не откатывается из OPEN в PENDING_ENTRY.
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для UI
func StateInfo(s string) string {
	switch s {
	case stateAbsent:
		return "Нет позиции (сканирование)"
	case models.PositionPendingEntry:
		return "Ожидание исполнения входа..."
	case models.PositionOpen:
		return "Позиция открыта"
	case models.PositionClosing:
		return "Закрытие позиции..."
	case models.PositionClosingFailed:
		return "Закрытие не удалось! Требуется вмешательство"
	default:
		return "Неизвестное состояние"
	}
}

// IsTerminalFailure возвращает true если позиция заморожена
// и автоматическое управление прекращено
func IsTerminalFailure(s string) bool {
	return s == models.PositionClosingFailed
}
