package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition — попытка недопустимого перехода статуса execution.
// Терминальный статус назначается ровно один раз.
var ErrInvalidTransition = errors.New("invalid execution status transition")

// Execution — экземпляр выполнения workflow.
//
// Execution создаётся когда:
// - Триггер workflow сработал на событие записи
// - Scheduler создал execution по расписанию
// - Пользователь запустил workflow вручную
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// TriggeredBy — тип события, породившего execution
	// (record_created, time_based, manual, ...).
	TriggeredBy string `json:"triggered_by,omitempty"`

	// Context — контекст выполнения: данные записи, изменения,
	// результаты шагов (step_outputs).
	Context map[string]any `json:"context,omitempty"`

	// StepsCompleted — количество успешно выполненных шагов.
	StepsCompleted int `json:"steps_completed"`

	// StepsFailed — количество шагов, завершившихся с ошибкой.
	StepsFailed int `json:"steps_failed"`

	// StepsSkipped — количество шагов, пропущенных по условиям.
	StepsSkipped int `json:"steps_skipped"`

	// ErrorMessage — текст ошибки, если execution завершился с FAILED.
	ErrorMessage string `json:"error_message,omitempty"`

	// FailedStepID — шаг, на котором execution остановился.
	// Nil, если execution не падал на конкретном шаге.
	FailedStepID *uuid.UUID `json:"failed_step_id,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (в любом терминальном статусе).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`
}

// NewExecution создаёт execution в статусе PENDING.
func NewExecution(workflowID uuid.UUID, triggeredBy string, execCtx map[string]any, now time.Time) *Execution {
	return &Execution{
		ID:          uuid.New(),
		WorkflowID:  workflowID,
		Status:      ExecutionStatusPending,
		TriggeredBy: triggeredBy,
		Context:     execCtx,
		CreatedAt:   now,
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если execution завершён (в любом статусе).
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// TotalStepsProcessed возвращает общее число обработанных шагов.
func (e *Execution) TotalStepsProcessed() int {
	return e.StepsCompleted + e.StepsFailed + e.StepsSkipped
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning(now time.Time) error {
	if err := e.transition(ExecutionStatusRunning); err != nil {
		return err
	}
	e.StartedAt = &now
	return nil
}

// MarkCompleted переводит execution в статус COMPLETED.
func (e *Execution) MarkCompleted(now time.Time) error {
	if err := e.transition(ExecutionStatusCompleted); err != nil {
		return err
	}
	e.FinishedAt = &now
	return nil
}

// MarkFailed переводит execution в статус FAILED с ошибкой.
// failedStepID может быть nil (падение вне конкретного шага).
func (e *Execution) MarkFailed(errMsg string, failedStepID *uuid.UUID, now time.Time) error {
	if err := e.transition(ExecutionStatusFailed); err != nil {
		return err
	}
	e.ErrorMessage = errMsg
	e.FailedStepID = failedStepID
	e.FinishedAt = &now
	return nil
}

// MarkCancelled переводит execution в статус CANCELLED.
func (e *Execution) MarkCancelled(now time.Time) error {
	if err := e.transition(ExecutionStatusCancelled); err != nil {
		return err
	}
	e.FinishedAt = &now
	return nil
}

func (e *Execution) transition(next ExecutionStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, next)
	}
	e.Status = next
	return nil
}
