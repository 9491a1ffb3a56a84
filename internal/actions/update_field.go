package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/Reactor/internal/conditions"
	"github.com/shaiso/Reactor/internal/domain"
)

// UpdateFieldHandler — действие изменения поля записи в контексте
// execution. Следующие шаги видят уже изменённое значение; запись
// в хранилище CRM выполняет хост-система по результату действия.
//
// Конфигурация:
//
//	{"field": "stage", "value": "won"}
//	{"field": "owner_id", "value_field": "record.manager_id"}
//
// Результат:
//
//	{"field": "stage", "value": "won", "previous": "negotiation"}
type UpdateFieldHandler struct{}

// NewUpdateFieldHandler создаёт новый UpdateFieldHandler.
func NewUpdateFieldHandler() *UpdateFieldHandler {
	return &UpdateFieldHandler{}
}

// Type возвращает тип действия.
func (h *UpdateFieldHandler) Type() string {
	return domain.ActionUpdateField
}

// Execute устанавливает поле записи в контексте execution.
func (h *UpdateFieldHandler) Execute(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error) {
	field := GetConfigString(config, "field")
	if field == "" {
		return nil, fmt.Errorf("%w: update_field: field is required", ErrInvalidConfig)
	}

	value, ok := config["value"]
	if !ok {
		valueField := GetConfigString(config, "value_field")
		if valueField == "" {
			return nil, fmt.Errorf("%w: update_field: value or value_field is required", ErrInvalidConfig)
		}
		value = conditions.ResolvePath(execCtx, valueField)
	}

	record, ok := execCtx["record"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: update_field: no record in execution context", ErrInvalidConfig)
	}

	previous := setField(record, field, value)

	return map[string]any{
		"field":    field,
		"value":    value,
		"previous": previous,
	}, nil
}

// setField устанавливает значение по dot-пути внутри записи,
// создавая промежуточные объекты. Возвращает прежнее значение.
func setField(record map[string]any, path string, value any) any {
	parts := strings.Split(path, ".")
	current := record

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	last := parts[len(parts)-1]
	previous := current[last]
	current[last] = value
	return previous
}
