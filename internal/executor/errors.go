package executor

import "errors"

// Ошибки исполнителя.
var (
	// ErrWorkflowNotFound — определение workflow не удалось загрузить.
	ErrWorkflowNotFound = errors.New("workflow definition not found")
)
