package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Типы триггеров workflow.
const (
	// TriggerRecordCreated — срабатывает при создании записи.
	TriggerRecordCreated = "record_created"

	// TriggerRecordUpdated — срабатывает при обновлении записи.
	TriggerRecordUpdated = "record_updated"

	// TriggerRecordDeleted — срабатывает при удалении записи.
	TriggerRecordDeleted = "record_deleted"

	// TriggerRecordSaved — срабатывает и при создании, и при обновлении.
	TriggerRecordSaved = "record_saved"

	// TriggerFieldChanged — срабатывает при изменении отслеживаемых полей.
	TriggerFieldChanged = "field_changed"

	// TriggerTimeBased — срабатывает по расписанию (cron или дата в записи).
	TriggerTimeBased = "time_based"

	// TriggerWebhook — срабатывает по входящему webhook.
	TriggerWebhook = "webhook_received"

	// TriggerManual — запускается пользователем вручную.
	TriggerManual = "manual"

	// TriggerRelatedCreated — срабатывает при создании связанной записи.
	TriggerRelatedCreated = "related_created"

	// TriggerRelatedUpdated — срабатывает при обновлении связанной записи.
	TriggerRelatedUpdated = "related_updated"
)

// Ограничение триггера по виду события записи.
const (
	// TimingAll — триггер реагирует и на создание, и на обновление.
	TimingAll = "all"

	// TimingCreateOnly — только на создание.
	TimingCreateOnly = "create_only"

	// TimingUpdateOnly — только на обновление.
	TimingUpdateOnly = "update_only"
)

// Вид проверяемого изменения поля для триггера field_changed.
const (
	// ChangeAny — любое изменение значения.
	ChangeAny = "any"

	// ChangeFromValue — изменение с конкретного старого значения.
	ChangeFromValue = "from_value"

	// ChangeToValue — изменение на конкретное новое значение.
	ChangeToValue = "to_value"

	// ChangeFromTo — изменение с конкретного старого на конкретное новое.
	ChangeFromTo = "from_to"
)

// Workflow — определение автоматизации.
//
// Workflow привязан к модулю CRM и описывает: когда срабатывать
// (триггер), при каких условиях и какие шаги выполнять. Каждое
// срабатывание порождает Execution.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// ModuleID — модуль CRM, к записям которого привязан workflow.
	ModuleID int64 `json:"module_id"`

	// Name — название workflow.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// IsActive — флаг активности. Неактивные workflows не срабатывают.
	IsActive bool `json:"is_active"`

	// TriggerType — тип триггера (record_created, field_changed, ...).
	TriggerType string `json:"trigger_type"`

	// TriggerTiming — ограничение по виду события: all, create_only, update_only.
	TriggerTiming string `json:"trigger_timing,omitempty"`

	// TriggerConfig — дополнительная конфигурация триггера
	// (watched_fields, change_type, from_value/to_value, related_module, ...).
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`

	// WatchedFields — отслеживаемые поля для field_changed.
	// Если пусто, используется trigger_config.fields.
	WatchedFields []string `json:"watched_fields,omitempty"`

	// DelaySeconds — задержка перед запуском execution (секунды).
	DelaySeconds int `json:"delay_seconds,omitempty"`

	// Priority — приоритет в диапазоне [-100, 100]. Больше — раньше.
	Priority int `json:"priority,omitempty"`

	// StopOnFirstMatch — если true, после срабатывания этого workflow
	// остальные workflows модуля (с меньшим приоритетом) для того же
	// события не запускаются.
	StopOnFirstMatch bool `json:"stop_on_first_match,omitempty"`

	// RunOncePerRecord — если true, workflow запускается для каждой
	// записи не более одного раза.
	RunOncePerRecord bool `json:"run_once_per_record,omitempty"`

	// AllowManualTrigger — разрешает ручной запуск независимо от
	// типа триггера.
	AllowManualTrigger bool `json:"allow_manual_trigger,omitempty"`

	// MaxExecutionsPerDay — дневной лимит срабатываний.
	// Nil — без лимита.
	MaxExecutionsPerDay *int `json:"max_executions_per_day,omitempty"`

	// ExecutionsToday — счётчик срабатываний за день ExecutionsDate.
	ExecutionsToday int `json:"executions_today"`

	// ExecutionsDate — дата, к которой относится ExecutionsToday.
	// Счётчик с другой датой считается обнулённым.
	ExecutionsDate *time.Time `json:"executions_date,omitempty"`

	// ScheduleCron — cron-выражение для time_based триггера.
	ScheduleCron string `json:"schedule_cron,omitempty"`

	// NextRunAt — следующее срабатывание по расписанию.
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// WebhookSecret — секрет для проверки входящих webhooks.
	WebhookSecret string `json:"webhook_secret,omitempty"`

	// ExecutionCount — сколько раз workflow запускался.
	ExecutionCount int `json:"execution_count"`

	// SuccessCount — сколько запусков завершились успешно.
	SuccessCount int `json:"success_count"`

	// FailureCount — сколько запусков завершились с ошибкой.
	FailureCount int `json:"failure_count"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// Steps — шаги workflow в порядке DisplayOrder.
	Steps []Step `json:"steps,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// Activate включает workflow.
func (w *Workflow) Activate(now time.Time) {
	w.IsActive = true
	w.UpdatedAt = now
}

// Deactivate выключает workflow. Неактивный workflow не срабатывает,
// но его определение и статистика сохраняются.
func (w *Workflow) Deactivate(now time.Time) {
	w.IsActive = false
	w.UpdatedAt = now
}

// CanExecuteToday возвращает true, если дневной лимит срабатываний
// не исчерпан. Счётчик за прошлый день считается обнулённым.
func (w *Workflow) CanExecuteToday(now time.Time) bool {
	if w.MaxExecutionsPerDay == nil {
		return true
	}
	if w.ExecutionsDate == nil || !sameDay(*w.ExecutionsDate, now) {
		return true
	}
	return w.ExecutionsToday < *w.MaxExecutionsPerDay
}

// IncrementTodayExecutions увеличивает дневной счётчик срабатываний.
// Если дата счётчика не сегодняшняя, счётчик сначала обнуляется.
func (w *Workflow) IncrementTodayExecutions(now time.Time) {
	if w.ExecutionsDate == nil || !sameDay(*w.ExecutionsDate, now) {
		w.ExecutionsToday = 0
		day := now
		w.ExecutionsDate = &day
	}
	w.ExecutionsToday++
}

// RecordExecution обновляет статистику запусков workflow.
func (w *Workflow) RecordExecution(success bool, now time.Time) {
	w.ExecutionCount++
	if success {
		w.SuccessCount++
	} else {
		w.FailureCount++
	}
	w.LastRunAt = &now
}

// SuccessRate возвращает долю успешных запусков в процентах.
func (w *Workflow) SuccessRate() float64 {
	if w.ExecutionCount == 0 {
		return 0
	}
	return float64(w.SuccessCount) / float64(w.ExecutionCount) * 100
}

// WatchedFieldList возвращает отслеживаемые поля для field_changed:
// WatchedFields, либо trigger_config.fields как fallback.
func (w *Workflow) WatchedFieldList() []string {
	if len(w.WatchedFields) > 0 {
		return w.WatchedFields
	}
	raw, ok := w.TriggerConfig["fields"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			fields = append(fields, s)
		}
	}
	return fields
}

// ChangeType возвращает вид проверяемого изменения поля (default: any).
func (w *Workflow) ChangeType() string {
	if s, ok := w.TriggerConfig["change_type"].(string); ok && s != "" {
		return s
	}
	return ChangeAny
}

// GenerateWebhookSecret генерирует новый секрет для webhook-триггера.
func (w *Workflow) GenerateWebhookSecret() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand на поддерживаемых платформах не возвращает ошибок
		w.WebhookSecret = uuid.NewString()
		return w.WebhookSecret
	}
	w.WebhookSecret = hex.EncodeToString(buf)
	return w.WebhookSecret
}

// IsTimeBased возвращает true для workflow с триггером по расписанию.
func (w *Workflow) IsTimeBased() bool {
	return w.TriggerType == TriggerTimeBased
}

// sameDay возвращает true, если a и b приходятся на одну календарную дату.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
