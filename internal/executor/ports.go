package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/shaiso/Reactor/internal/domain"
)

// WorkflowStore — хранилище определений workflow.
type WorkflowStore interface {
	// GetByID возвращает workflow вместе с шагами.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)

	// Save сохраняет изменившиеся счётчики и статистику workflow.
	Save(ctx context.Context, wf *domain.Workflow) error
}

// ExecutionStore — хранилище executions и журнала шагов.
type ExecutionStore interface {
	// SaveExecution сохраняет текущее состояние execution.
	SaveExecution(ctx context.Context, exec *domain.Execution) error

	// SaveStepLog сохраняет запись журнала шага.
	SaveStepLog(ctx context.Context, log *domain.StepLog) error
}
