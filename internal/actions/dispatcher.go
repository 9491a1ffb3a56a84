package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Dispatcher — реестр обработчиков действий.
//
// Повторная регистрация типа перезаписывает обработчик (last wins).
// Потокобезопасен.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher создаёт пустой реестр.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
	}
}

// DefaultDispatcher создаёт реестр со встроенными обработчиками.
func DefaultDispatcher() *Dispatcher {
	d := NewDispatcher()

	d.Register(NewWebhookHandler())
	d.Register(NewConditionHandler())
	d.Register(NewUpdateFieldHandler())

	return d
}

// Register регистрирует обработчик действия.
// Если тип уже зарегистрирован, обработчик будет перезаписан.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.Type()] = h
}

// Dispatch выполняет действие через зарегистрированный обработчик.
//
// Результат всегда приводится к map[string]any: обработчик, вернувший
// не-map значение, оборачивается в {"result": значение}.
// Ошибки обработчика возвращаются как есть — классификация
// retryable/fatal остаётся за вызывающим.
func (d *Dispatcher) Dispatch(ctx context.Context, actionType string, config map[string]any, execCtx map[string]any) (map[string]any, error) {
	d.mu.RLock()
	h, exists := d.handlers[actionType]
	d.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredAction, actionType)
	}

	result, err := h.Execute(ctx, config, execCtx)
	if err != nil {
		return nil, err
	}

	return normalizeResult(result), nil
}

// Has проверяет, зарегистрирован ли тип действия.
func (d *Dispatcher) Has(actionType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.handlers[actionType]
	return exists
}

// Types возвращает отсортированный список зарегистрированных типов.
func (d *Dispatcher) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	types := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count возвращает количество зарегистрированных обработчиков.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Unregister удаляет обработчик из реестра.
func (d *Dispatcher) Unregister(actionType string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, actionType)
}

func normalizeResult(result any) map[string]any {
	if result == nil {
		return map[string]any{}
	}
	if m, ok := result.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": result}
}
