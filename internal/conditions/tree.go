package conditions

import (
	"errors"
	"fmt"
	"strings"
)

// Логика групп условий.
const (
	LogicAnd = "and"
	LogicOr  = "or"
)

// ErrInvalidTree — сохранённое дерево условий имеет неожиданную форму.
var ErrInvalidTree = errors.New("invalid condition tree")

// Node — узел дерева условий: либо группа, либо лист.
type Node struct {
	Group *Group
	Leaf  *Leaf
}

// Group — группа условий с логикой and/or.
// Пустая группа вычисляется в true.
type Group struct {
	Logic    string
	Children []*Node
}

// Leaf — атомарное условие: поле, оператор, значение.
type Leaf struct {
	Field    string
	Operator string
	Value    any
}

// ParseTree разбирает дерево условий из декодированного JSON.
//
// Принимаемые формы:
//   - nil — пустое дерево (всегда true)
//   - {"logic": "or", "conditions": [...]} — группа
//   - {"field": ..., "operator": ..., "value": ...} — лист
//   - [...] — список условий, неявная группа and
//
// Элементы списка, не являющиеся объектами, пропускаются.
// Логика группы и оператор листа приводятся к нижнему регистру.
func ParseTree(raw any) (*Node, error) {
	if raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case map[string]any:
		return parseNode(v)
	case []any:
		children, err := parseList(v)
		if err != nil {
			return nil, err
		}
		return &Node{Group: &Group{Logic: LogicAnd, Children: children}}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %T at root", ErrInvalidTree, raw)
	}
}

func parseNode(m map[string]any) (*Node, error) {
	if rawList, ok := m["conditions"]; ok {
		logic := LogicAnd
		if s, ok := m["logic"].(string); ok && s != "" {
			logic = strings.ToLower(s)
		}

		list, ok := rawList.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: conditions is %T, expected list", ErrInvalidTree, rawList)
		}

		children, err := parseList(list)
		if err != nil {
			return nil, err
		}
		return &Node{Group: &Group{Logic: logic, Children: children}}, nil
	}

	if hasLeafKeys(m) {
		leaf := &Leaf{Operator: "equals"}
		if s, ok := m["field"].(string); ok {
			leaf.Field = s
		}
		if s, ok := m["operator"].(string); ok && s != "" {
			leaf.Operator = strings.ToLower(s)
		}
		leaf.Value = m["value"]
		return &Node{Leaf: leaf}, nil
	}

	// Объект без известных ключей — пустая группа (true)
	return &Node{Group: &Group{Logic: LogicAnd}}, nil
}

func parseList(list []any) ([]*Node, error) {
	children := make([]*Node, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		child, err := parseNode(m)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func hasLeafKeys(m map[string]any) bool {
	if _, ok := m["field"]; ok {
		return true
	}
	if _, ok := m["operator"]; ok {
		return true
	}
	return false
}
