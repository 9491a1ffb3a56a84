package actions

import (
	"context"
	"fmt"

	"github.com/shaiso/Reactor/internal/conditions"
	"github.com/shaiso/Reactor/internal/domain"
)

// ConditionHandler — действие-проверка: вычисляет дерево условий
// против контекста execution и возвращает результат.
//
// Конфигурация:
//
//	{"conditions": {"logic": "and", "conditions": [...]}}
//
// Результат:
//
//	{"matched": true}
type ConditionHandler struct{}

// NewConditionHandler создаёт новый ConditionHandler.
func NewConditionHandler() *ConditionHandler {
	return &ConditionHandler{}
}

// Type возвращает тип действия.
func (h *ConditionHandler) Type() string {
	return domain.ActionCondition
}

// Execute вычисляет условия против контекста execution.
func (h *ConditionHandler) Execute(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error) {
	raw, ok := config["conditions"]
	if !ok {
		return nil, fmt.Errorf("%w: condition: conditions is required", ErrInvalidConfig)
	}

	tree, err := conditions.ParseTree(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: condition: %v", ErrInvalidConfig, err)
	}

	matched := conditions.Evaluate(tree, conditions.Context{
		Data:    execCtx,
		Changes: conditions.ChangesFrom(execCtx["changes"]),
	})

	return map[string]any{"matched": matched}, nil
}
