package actions

import "errors"

// Ошибки действий.
var (
	// ErrUnregisteredAction — тип действия не найден в реестре.
	ErrUnregisteredAction = errors.New("action type not registered")

	// ErrInvalidConfig — невалидная конфигурация действия.
	ErrInvalidConfig = errors.New("invalid action config")

	// ErrActionCancelled — выполнение действия отменено.
	ErrActionCancelled = errors.New("action execution cancelled")
)
