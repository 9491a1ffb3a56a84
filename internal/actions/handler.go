package actions

import "context"

// Handler — интерфейс обработчика действия.
//
// Каждый тип действия (webhook, update_field, send_email, ...)
// реализует этот интерфейс.
type Handler interface {
	// Type возвращает тип действия.
	Type() string

	// Execute выполняет действие и возвращает результат.
	// config — конфигурация шага, execCtx — контекст execution
	// (данные записи, результаты предыдущих шагов).
	// Обработчик должен проверять ctx.Done() для graceful shutdown.
	Execute(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error)
}

// HandlerFunc адаптирует функцию в Handler с заданным типом действия.
// Удобно для регистрации обработчиков в тестах и расширениях без
// отдельного типа.
type HandlerFunc struct {
	ActionType string
	Fn         func(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error)
}

func (h HandlerFunc) Type() string { return h.ActionType }

func (h HandlerFunc) Execute(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error) {
	return h.Fn(ctx, config, execCtx)
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigMap извлекает map из конфига.
func GetConfigMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// GetConfigMapString извлекает map[string]string из конфига.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}
