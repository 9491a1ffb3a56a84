package domain

import (
	"time"

	"github.com/google/uuid"
)

// Встроенные типы действий шага.
const (
	ActionSendEmail        = "send_email"
	ActionSendNotification = "send_notification"
	ActionWebhook          = "webhook"
	ActionUpdateField      = "update_field"
	ActionCreateRecord     = "create_record"
	ActionDelay            = "delay"
	ActionCondition        = "condition"
	ActionMoveStage        = "move_stage"
	ActionAssignUser       = "assign_user"
)

// Step — шаг workflow.
//
// Шаги выполняются строго последовательно в порядке DisplayOrder.
// Перед выполнением шага проверяются его Conditions: невыполненные
// условия приводят к пропуску шага, а не к ошибке.
type Step struct {
	// ID — уникальный идентификатор шага.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на родительский workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Name — человекочитаемое имя шага.
	Name string `json:"name"`

	// ActionType — тип действия (webhook, update_field, send_email, ...).
	// Должен быть зарегистрирован в реестре обработчиков.
	ActionType string `json:"action_type"`

	// DisplayOrder — позиция шага. Уникальна в рамках workflow.
	DisplayOrder int `json:"display_order"`

	// Conditions — дерево условий выполнения шага (содержимое JSONB).
	// Nil или пустое дерево — шаг выполняется всегда.
	Conditions any `json:"conditions,omitempty"`

	// ActionConfig — конфигурация действия (зависит от типа).
	// Для webhook: url, method, headers, body
	// Для update_field: field, value / value_field
	ActionConfig map[string]any `json:"action_config,omitempty"`

	// RetryCount — максимальное число повторных попыток (0–10).
	RetryCount int `json:"retry_count,omitempty"`

	// RetryDelay — задержка между попытками в секундах.
	RetryDelay int `json:"retry_delay,omitempty"`

	// ContinueOnError — продолжать ли выполнение workflow после
	// окончательного провала этого шага.
	ContinueOnError bool `json:"continue_on_error,omitempty"`

	// CreatedAt — время создания шага.
	CreatedAt time.Time `json:"created_at"`
}
