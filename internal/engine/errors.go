package engine

import "errors"

// Ошибки engine.
var (
	// ErrExecutionNotFound — execution не найден в хранилище.
	ErrExecutionNotFound = errors.New("execution not found")
)
