package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepLog — запись журнала выполнения одного шага.
//
// Журнал append-only: каждая попытка выполнения шага — отдельная
// запись со своим AttemptNumber (нумерация с 1). Записи никогда
// не перезаписываются задним числом.
type StepLog struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// ExecutionID — ссылка на execution.
	ExecutionID uuid.UUID `json:"execution_id"`

	// StepID — ссылка на шаг workflow.
	StepID uuid.UUID `json:"step_id"`

	// ActionType — тип действия шага (дублируется для истории:
	// шаг могут отредактировать после выполнения).
	ActionType string `json:"action_type"`

	// AttemptNumber — номер попытки, начиная с 1.
	AttemptNumber int `json:"attempt_number"`

	// Status — статус этой попытки.
	Status StepLogStatus `json:"status"`

	// Output — результат обработчика действия (для COMPLETED).
	Output map[string]any `json:"output,omitempty"`

	// ErrorMessage — текст ошибки обработчика (для FAILED).
	ErrorMessage string `json:"error_message,omitempty"`

	// SkipReason — причина пропуска (для SKIPPED).
	SkipReason string `json:"skip_reason,omitempty"`

	// StartedAt — время передачи шага обработчику.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения попытки.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// NewStepLog создаёт запись журнала в статусе PENDING.
func NewStepLog(executionID uuid.UUID, step *Step, attempt int, now time.Time) *StepLog {
	return &StepLog{
		ID:            uuid.New(),
		ExecutionID:   executionID,
		StepID:        step.ID,
		ActionType:    step.ActionType,
		AttemptNumber: attempt,
		Status:        StepLogStatusPending,
		CreatedAt:     now,
	}
}

// MarkStarted отмечает передачу шага обработчику действия.
func (l *StepLog) MarkStarted(now time.Time) {
	l.Status = StepLogStatusStarted
	l.StartedAt = &now
}

// MarkCompleted отмечает успешное выполнение попытки.
func (l *StepLog) MarkCompleted(output map[string]any, now time.Time) {
	l.Status = StepLogStatusCompleted
	l.Output = output
	l.FinishedAt = &now
}

// MarkFailed отмечает провал попытки.
func (l *StepLog) MarkFailed(errMsg string, now time.Time) {
	l.Status = StepLogStatusFailed
	l.ErrorMessage = errMsg
	l.FinishedAt = &now
}

// MarkSkipped отмечает пропуск шага по условиям.
func (l *StepLog) MarkSkipped(reason string, now time.Time) {
	l.Status = StepLogStatusSkipped
	l.SkipReason = reason
	l.FinishedAt = &now
}

// Duration возвращает продолжительность попытки.
// Возвращает 0, если попытка не начиналась или не завершена.
func (l *StepLog) Duration() time.Duration {
	if l.StartedAt == nil || l.FinishedAt == nil {
		return 0
	}
	return l.FinishedAt.Sub(*l.StartedAt)
}
