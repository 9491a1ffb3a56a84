package validate

import (
	"fmt"
	"strings"

	"github.com/shaiso/Reactor/internal/domain"
)

// Ограничения определения workflow.
const (
	maxNameLength        = 255
	maxDescriptionLength = 5000
	maxRetryCount        = 10
	minPriority          = -100
	maxPriority          = 100
)

// Error — одна ошибка валидации определения workflow.
type Error struct {
	// Field — путь к полю (например, "steps[2].action_config.url").
	Field string `json:"field"`

	// Message — описание ошибки.
	Message string `json:"message"`
}

// Error реализует интерфейс error.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate проверяет определение workflow и возвращает все найденные
// ошибки. Пустой результат — определение валидно.
func Validate(wf *domain.Workflow) []Error {
	var errs []Error

	errs = append(errs, validateBasicInfo(wf)...)
	errs = append(errs, validateTrigger(wf)...)
	errs = append(errs, validateExecutionSettings(wf)...)
	errs = append(errs, validateSteps(wf)...)

	return errs
}

func validateBasicInfo(wf *domain.Workflow) []Error {
	var errs []Error

	if strings.TrimSpace(wf.Name) == "" {
		errs = append(errs, Error{Field: "name", Message: "name is required"})
	} else if len(wf.Name) > maxNameLength {
		errs = append(errs, Error{
			Field:   "name",
			Message: fmt.Sprintf("name must not exceed %d characters", maxNameLength),
		})
	}

	if len(wf.Description) > maxDescriptionLength {
		errs = append(errs, Error{
			Field:   "description",
			Message: fmt.Sprintf("description must not exceed %d characters", maxDescriptionLength),
		})
	}

	return errs
}

func validateTrigger(wf *domain.Workflow) []Error {
	var errs []Error

	switch wf.TriggerType {
	case domain.TriggerFieldChanged:
		if len(wf.WatchedFieldList()) == 0 {
			errs = append(errs, Error{
				Field:   "watched_fields",
				Message: "field_changed trigger requires at least one watched field",
			})
		}

	case domain.TriggerTimeBased:
		dateField, _ := wf.TriggerConfig["date_field"].(string)
		if wf.ScheduleCron == "" && dateField == "" {
			errs = append(errs, Error{
				Field:   "schedule_cron",
				Message: "time_based trigger requires a cron expression or a date field",
			})
		}
		if wf.ScheduleCron != "" && !looksLikeCron(wf.ScheduleCron) {
			errs = append(errs, Error{
				Field:   "schedule_cron",
				Message: "cron expression must have 5 or 6 fields",
			})
		}

	case domain.TriggerRelatedCreated, domain.TriggerRelatedUpdated:
		if related, _ := wf.TriggerConfig["related_module"].(string); related == "" {
			errs = append(errs, Error{
				Field:   "trigger_config.related_module",
				Message: "related trigger requires a related module",
			})
		}
	}

	return errs
}

func validateExecutionSettings(wf *domain.Workflow) []Error {
	var errs []Error

	if wf.DelaySeconds < 0 {
		errs = append(errs, Error{
			Field:   "delay_seconds",
			Message: "delay must not be negative",
		})
	}

	if wf.MaxExecutionsPerDay != nil && *wf.MaxExecutionsPerDay < 1 {
		errs = append(errs, Error{
			Field:   "max_executions_per_day",
			Message: "daily execution limit must be at least 1",
		})
	}

	if wf.Priority < minPriority || wf.Priority > maxPriority {
		errs = append(errs, Error{
			Field:   "priority",
			Message: fmt.Sprintf("priority must be between %d and %d", minPriority, maxPriority),
		})
	}

	return errs
}

func validateSteps(wf *domain.Workflow) []Error {
	var errs []Error

	if len(wf.Steps) == 0 {
		errs = append(errs, Error{
			Field:   "steps",
			Message: "workflow requires at least one step",
		})
		return errs
	}

	seenOrders := make(map[int]int, len(wf.Steps))
	for i := range wf.Steps {
		step := &wf.Steps[i]
		prefix := fmt.Sprintf("steps[%d]", i)

		if prev, dup := seenOrders[step.DisplayOrder]; dup {
			errs = append(errs, Error{
				Field: prefix + ".display_order",
				Message: fmt.Sprintf("display order %d already used by steps[%d]",
					step.DisplayOrder, prev),
			})
		} else {
			seenOrders[step.DisplayOrder] = i
		}

		if step.RetryCount < 0 || step.RetryCount > maxRetryCount {
			errs = append(errs, Error{
				Field:   prefix + ".retry_count",
				Message: fmt.Sprintf("retry count must be between 0 and %d", maxRetryCount),
			})
		}

		if step.RetryDelay < 0 {
			errs = append(errs, Error{
				Field:   prefix + ".retry_delay",
				Message: "retry delay must not be negative",
			})
		}

		errs = append(errs, validateAction(step, prefix)...)
	}

	return errs
}

// looksLikeCron — грубая проверка формы cron-выражения: 5 или 6 полей.
// Точность выражения проверяет планировщик при постановке в расписание.
func looksLikeCron(expr string) bool {
	fields := strings.Fields(expr)
	return len(fields) == 5 || len(fields) == 6
}
