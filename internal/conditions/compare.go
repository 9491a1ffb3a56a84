package conditions

import (
	"reflect"
	"strconv"
	"strings"
)

// toFloat приводит значение к float64, если оно числовое.
// Числовые строки ("5", "3.14") тоже считаются числами.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
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

// toBool приводит значение к bool по нестрогим правилам:
// nil, false, 0, "" и "0" — false; пустые списки и объекты — false;
// всё остальное — true.
func toBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != "" && b != "0"
	case []any:
		return len(b) > 0
	case map[string]any:
		return len(b) > 0
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}
		return true
	}
}

// looseEquals сравнивает значения по нестрогим правилам оператора equals:
// nil равен только nil; если ожидаемое значение — bool, фактическое
// приводится к bool; числа и числовые строки сравниваются как числа;
// остальное — по точному совпадению.
func looseEquals(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if b, ok := expected.(bool); ok {
		return toBool(actual) == b
	}
	if af, aok := toFloat(actual); aok {
		if ef, eok := toFloat(expected); eok {
			return af == ef
		}
	}
	if actual == nil || expected == nil {
		return false
	}
	if as, ok := actual.(string); ok {
		if es, ok := expected.(string); ok {
			return as == es
		}
	}
	return reflect.DeepEqual(actual, expected)
}

// isEmpty возвращает true для nil, строк из одних пробелов,
// пустых списков и объектов.
func isEmpty(v any) bool {
	switch e := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(e) == ""
	case []any:
		return len(e) == 0
	case map[string]any:
		return len(e) == 0
	default:
		return false
	}
}

// toList оборачивает скалярное значение в список из одного элемента.
func toList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}
