package events

import (
	"context"

	"github.com/google/uuid"
)

// Виды событий жизненного цикла.
const (
	KindStepExecuted      = "step.executed"
	KindStepFailed        = "step.failed"
	KindWorkflowCompleted = "workflow.completed"
	KindWorkflowFailed    = "workflow.failed"
)

// Event — событие жизненного цикла execution.
type Event interface {
	// Kind возвращает вид события (step.executed, workflow.failed, ...).
	Kind() string
}

// Sink — приёмник событий жизненного цикла.
type Sink interface {
	// Publish публикует событие. Вызывается синхронно из исполнителя,
	// поэтому реализация не должна блокироваться надолго.
	Publish(ctx context.Context, ev Event) error
}

// StepExecuted — шаг успешно выполнен.
type StepExecuted struct {
	WorkflowID  uuid.UUID      `json:"workflow_id"`
	ExecutionID uuid.UUID      `json:"execution_id"`
	StepID      uuid.UUID      `json:"step_id"`
	ActionType  string         `json:"action_type"`
	DurationMs  int64          `json:"duration_ms"`
	Output      map[string]any `json:"output,omitempty"`
}

// Kind возвращает вид события.
func (StepExecuted) Kind() string { return KindStepExecuted }

// StepFailed — попытка выполнения шага завершилась ошибкой.
type StepFailed struct {
	WorkflowID    uuid.UUID `json:"workflow_id"`
	ExecutionID   uuid.UUID `json:"execution_id"`
	StepID        uuid.UUID `json:"step_id"`
	ActionType    string    `json:"action_type"`
	ErrorMessage  string    `json:"error_message"`
	AttemptNumber int       `json:"attempt_number"`

	// WillRetry — true, если для шага создана следующая попытка.
	WillRetry bool `json:"will_retry"`
}

// Kind возвращает вид события.
func (StepFailed) Kind() string { return KindStepFailed }

// WorkflowCompleted — execution успешно завершён.
type WorkflowCompleted struct {
	WorkflowID     uuid.UUID `json:"workflow_id"`
	ExecutionID    uuid.UUID `json:"execution_id"`
	StepsCompleted int       `json:"steps_completed"`
	StepsSkipped   int       `json:"steps_skipped"`
	DurationMs     int64     `json:"duration_ms"`
}

// Kind возвращает вид события.
func (WorkflowCompleted) Kind() string { return KindWorkflowCompleted }

// WorkflowFailed — execution завершился с ошибкой.
type WorkflowFailed struct {
	WorkflowID   uuid.UUID `json:"workflow_id"`
	ExecutionID  uuid.UUID `json:"execution_id"`
	ErrorMessage string    `json:"error_message"`

	// FailedStepID — шаг, на котором execution остановился (может быть nil).
	FailedStepID *uuid.UUID `json:"failed_step_id,omitempty"`

	StepsCompleted int `json:"steps_completed"`
	StepsFailed    int `json:"steps_failed"`
}

// Kind возвращает вид события.
func (WorkflowFailed) Kind() string { return KindWorkflowFailed }

// NopSink — Sink, отбрасывающий все события.
type NopSink struct{}

// Publish ничего не делает.
func (NopSink) Publish(ctx context.Context, ev Event) error { return nil }
