package conditions

import (
	"regexp"
	"strings"
)

// Evaluate вычисляет дерево условий против контекста.
//
// Nil-дерево — true. Вычисление не возвращает ошибок: лист без поля
// и лист с неизвестным оператором дают true, некорректный regex — false.
func Evaluate(node *Node, ctx Context) bool {
	if node == nil {
		return true
	}
	if node.Group != nil {
		return evaluateGroup(node.Group, ctx)
	}
	if node.Leaf != nil {
		return evaluateLeaf(node.Leaf, ctx)
	}
	return true
}

func evaluateGroup(g *Group, ctx Context) bool {
	if len(g.Children) == 0 {
		return true
	}

	if g.Logic == LogicOr {
		for _, child := range g.Children {
			if Evaluate(child, ctx) {
				return true
			}
		}
		return false
	}

	// and; неизвестная логика трактуется так же
	for _, child := range g.Children {
		if !Evaluate(child, ctx) {
			return false
		}
	}
	return true
}

func evaluateLeaf(leaf *Leaf, ctx Context) bool {
	if leaf.Field == "" {
		return true
	}

	actual := ResolvePath(ctx.Data, leaf.Field)

	switch leaf.Operator {
	case "equals", "=", "==":
		return looseEquals(actual, leaf.Value)

	case "not_equals", "!=", "<>":
		return !looseEquals(actual, leaf.Value)

	case "contains":
		return contains(actual, leaf.Value)

	case "not_contains":
		return !contains(actual, leaf.Value)

	case "starts_with":
		as, aok := actual.(string)
		es, eok := leaf.Value.(string)
		if !aok || !eok {
			return false
		}
		return strings.HasPrefix(strings.ToLower(as), strings.ToLower(es))

	case "ends_with":
		as, aok := actual.(string)
		es, eok := leaf.Value.(string)
		if !aok || !eok {
			return false
		}
		return strings.HasSuffix(strings.ToLower(as), strings.ToLower(es))

	case "greater_than", ">":
		return compareNumeric(actual, leaf.Value, func(a, b float64) bool { return a > b })

	case "less_than", "<":
		return compareNumeric(actual, leaf.Value, func(a, b float64) bool { return a < b })

	case "greater_than_or_equals", ">=":
		return compareNumeric(actual, leaf.Value, func(a, b float64) bool { return a >= b })

	case "less_than_or_equals", "<=":
		return compareNumeric(actual, leaf.Value, func(a, b float64) bool { return a <= b })

	case "is_empty":
		return isEmpty(actual)

	case "is_not_empty":
		return !isEmpty(actual)

	case "in":
		return inList(actual, leaf.Value)

	case "not_in":
		return !inList(actual, leaf.Value)

	case "between":
		return between(actual, leaf.Value)

	case "regex_match", "regex":
		return regexMatch(actual, leaf.Value)

	case "changed":
		_, ok := ctx.Changes[changeFieldName(leaf.Field)]
		return ok

	case "changed_to":
		ch, ok := ctx.Changes[changeFieldName(leaf.Field)]
		return ok && looseEquals(ch.New, leaf.Value)

	case "changed_from":
		ch, ok := ctx.Changes[changeFieldName(leaf.Field)]
		return ok && looseEquals(ch.Old, leaf.Value)

	default:
		// Неизвестный оператор не блокирует workflow
		return true
	}
}

func contains(actual, expected any) bool {
	if list, ok := actual.([]any); ok {
		for _, item := range list {
			if looseEquals(item, expected) {
				return true
			}
		}
		return false
	}

	as, aok := actual.(string)
	es, eok := expected.(string)
	if !aok || !eok {
		return false
	}
	return strings.Contains(strings.ToLower(as), strings.ToLower(es))
}

func compareNumeric(actual, expected any, cmp func(a, b float64) bool) bool {
	af, aok := toFloat(actual)
	ef, eok := toFloat(expected)
	if !aok || !eok {
		return false
	}
	return cmp(af, ef)
}

func inList(actual, expected any) bool {
	for _, item := range toList(expected) {
		if looseEquals(actual, item) {
			return true
		}
	}
	return false
}

// between проверяет попадание в диапазон [min, max] включительно.
// Значение условия — список из двух чисел.
func between(actual, expected any) bool {
	list, ok := expected.([]any)
	if !ok || len(list) != 2 {
		return false
	}

	af, aok := toFloat(actual)
	lo, lok := toFloat(list[0])
	hi, hok := toFloat(list[1])
	if !aok || !lok || !hok {
		return false
	}
	return af >= lo && af <= hi
}

func regexMatch(actual, expected any) bool {
	as, aok := actual.(string)
	pattern, pok := expected.(string)
	if !aok || !pok || pattern == "" {
		return false
	}

	// Допускаем паттерны в PHP-стиле с делимитерами: /foo.*/
	if len(pattern) >= 2 && pattern[0] == '/' && pattern[len(pattern)-1] == '/' {
		pattern = pattern[1 : len(pattern)-1]
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(as)
}
