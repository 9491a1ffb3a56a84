package trigger

import (
	"reflect"
	"strconv"
	"strings"
)

// toFloat приводит значение к float64, если оно числовое.
// Числовые строки тоже считаются числами.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
