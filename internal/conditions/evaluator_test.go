package conditions

import (
	"encoding/json"
	"testing"
)

// parse разбирает JSON-текст дерева условий.
func parse(t *testing.T, jsonText string) *Node {
	t.Helper()

	var raw any
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		t.Fatalf("unmarshal conditions: %v", err)
	}

	node, err := ParseTree(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return node
}

// --- ParseTree Tests ---

func TestParseTree_Nil(t *testing.T) {
	node, err := ParseTree(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node != nil {
		t.Error("nil input should give nil tree")
	}
}

func TestParseTree_Group(t *testing.T) {
	node := parse(t, `{"logic": "or", "conditions": [
		{"field": "status", "operator": "equals", "value": "new"},
		{"field": "status", "operator": "equals", "value": "open"}
	]}`)

	if node.Group == nil {
		t.Fatal("expected a group node")
	}
	if node.Group.Logic != LogicOr {
		t.Errorf("expected logic or, got %s", node.Group.Logic)
	}
	if len(node.Group.Children) != 2 {
		t.Errorf("expected 2 children, got %d", len(node.Group.Children))
	}
}

func TestParseTree_BareList(t *testing.T) {
	node := parse(t, `[{"field": "a", "operator": "is_empty"}]`)

	if node.Group == nil {
		t.Fatal("expected a group node")
	}
	if node.Group.Logic != LogicAnd {
		t.Errorf("bare list should be an implicit and group, got %s", node.Group.Logic)
	}
}

func TestParseTree_LeafDefaultOperator(t *testing.T) {
	node := parse(t, `{"field": "status", "value": "new"}`)

	if node.Leaf == nil {
		t.Fatal("expected a leaf node")
	}
	if node.Leaf.Operator != "equals" {
		t.Errorf("missing operator should default to equals, got %s", node.Leaf.Operator)
	}
}

func TestParseTree_RootScalar(t *testing.T) {
	if _, err := ParseTree("not a tree"); err == nil {
		t.Error("expected error for scalar root")
	}
}

// --- Evaluate Tests ---

func TestEvaluate_NilTree(t *testing.T) {
	if !Evaluate(nil, Context{}) {
		t.Error("nil tree should evaluate to true")
	}
}

func TestEvaluate_EmptyGroup(t *testing.T) {
	node := parse(t, `{"logic": "and", "conditions": []}`)
	if !Evaluate(node, Context{}) {
		t.Error("empty group should evaluate to true")
	}
}

func TestEvaluate_AndOr(t *testing.T) {
	ctx := Context{Data: map[string]any{
		"status": "open",
		"amount": float64(500),
	}}

	and := parse(t, `{"logic": "and", "conditions": [
		{"field": "status", "operator": "equals", "value": "open"},
		{"field": "amount", "operator": "greater_than", "value": 1000}
	]}`)
	if Evaluate(and, ctx) {
		t.Error("and group with a false child should be false")
	}

	or := parse(t, `{"logic": "or", "conditions": [
		{"field": "status", "operator": "equals", "value": "open"},
		{"field": "amount", "operator": "greater_than", "value": 1000}
	]}`)
	if !Evaluate(or, ctx) {
		t.Error("or group with a true child should be true")
	}
}

func TestEvaluate_UnknownLogicActsAsAnd(t *testing.T) {
	node := parse(t, `{"logic": "xor", "conditions": [
		{"field": "a", "operator": "equals", "value": 1},
		{"field": "b", "operator": "equals", "value": 2}
	]}`)

	ctx := Context{Data: map[string]any{"a": float64(1), "b": float64(3)}}
	if Evaluate(node, ctx) {
		t.Error("unknown logic should behave as and")
	}
}

func TestEvaluate_LeafWithoutField(t *testing.T) {
	node := parse(t, `{"operator": "equals", "value": "x"}`)
	if !Evaluate(node, Context{}) {
		t.Error("leaf without field should evaluate to true")
	}
}

func TestEvaluate_UnknownOperator(t *testing.T) {
	node := parse(t, `{"field": "status", "operator": "sounds_like", "value": "open"}`)
	ctx := Context{Data: map[string]any{"status": "closed"}}

	if !Evaluate(node, ctx) {
		t.Error("unknown operator should not block the workflow")
	}
}

func TestEvaluate_SymbolAliases(t *testing.T) {
	ctx := Context{Data: map[string]any{"amount": float64(100), "status": "open"}}

	cases := []struct {
		json string
		want bool
	}{
		{`{"field": "status", "operator": "=", "value": "open"}`, true},
		{`{"field": "status", "operator": "==", "value": "open"}`, true},
		{`{"field": "status", "operator": "!=", "value": "open"}`, false},
		{`{"field": "status", "operator": "<>", "value": "closed"}`, true},
		{`{"field": "status", "operator": "regex", "value": "^op"}`, true},
		{`{"field": "amount", "operator": ">", "value": 50}`, true},
		{`{"field": "amount", "operator": "<=", "value": 99}`, false},
	}

	for _, tc := range cases {
		if got := Evaluate(parse(t, tc.json), ctx); got != tc.want {
			t.Errorf("%s: expected %t, got %t", tc.json, tc.want, got)
		}
	}
}

func TestEvaluate_OperatorAndLogicCaseInsensitive(t *testing.T) {
	ctx := Context{Data: map[string]any{"status": "closed", "amount": float64(100)}}

	// Оператор в любом регистре — это не unknown-operator fallback
	node := parse(t, `{"field": "status", "operator": "Equals", "value": "open"}`)
	if Evaluate(node, ctx) {
		t.Error("uppercase operator should still compare, not fall through to true")
	}

	node = parse(t, `{"logic": "OR", "conditions": [
		{"field": "status", "operator": "equals", "value": "closed"},
		{"field": "amount", "operator": "greater_than", "value": 1000}
	]}`)
	if !Evaluate(node, ctx) {
		t.Error("uppercase logic should still mean or")
	}
}

func TestEvaluate_EqualsNumericString(t *testing.T) {
	node := parse(t, `{"field": "count", "operator": "equals", "value": 5}`)

	ctx := Context{Data: map[string]any{"count": "5"}}
	if !Evaluate(node, ctx) {
		t.Error(`"5" should equal 5`)
	}
}

func TestEvaluate_EqualsBoolCoercion(t *testing.T) {
	node := parse(t, `{"field": "flag", "operator": "equals", "value": true}`)

	if !Evaluate(node, Context{Data: map[string]any{"flag": float64(1)}}) {
		t.Error("1 should coerce to true")
	}
	if Evaluate(node, Context{Data: map[string]any{"flag": ""}}) {
		t.Error("empty string should coerce to false")
	}
}

func TestEvaluate_EqualsStringsCaseSensitive(t *testing.T) {
	node := parse(t, `{"field": "status", "operator": "equals", "value": "Open"}`)
	ctx := Context{Data: map[string]any{"status": "open"}}

	if Evaluate(node, ctx) {
		t.Error("equals should be case sensitive for strings")
	}
}

func TestEvaluate_EqualsNil(t *testing.T) {
	node := parse(t, `{"field": "owner", "operator": "equals", "value": null}`)

	if !Evaluate(node, Context{Data: map[string]any{"owner": nil}}) {
		t.Error("nil should equal nil")
	}
	if Evaluate(node, Context{Data: map[string]any{"owner": "bob"}}) {
		t.Error("value should not equal nil")
	}
}

func TestEvaluate_ContainsString(t *testing.T) {
	node := parse(t, `{"field": "email", "operator": "contains", "value": "EXAMPLE"}`)
	ctx := Context{Data: map[string]any{"email": "user@example.com"}}

	if !Evaluate(node, ctx) {
		t.Error("contains should be case insensitive for strings")
	}
}

func TestEvaluate_ContainsList(t *testing.T) {
	node := parse(t, `{"field": "tags", "operator": "contains", "value": "vip"}`)
	ctx := Context{Data: map[string]any{"tags": []any{"new", "vip"}}}

	if !Evaluate(node, ctx) {
		t.Error("contains should check list membership")
	}
}

func TestEvaluate_StartsEndsWith(t *testing.T) {
	ctx := Context{Data: map[string]any{"name": "Acme Corp"}}

	if !Evaluate(parse(t, `{"field": "name", "operator": "starts_with", "value": "acme"}`), ctx) {
		t.Error("starts_with should be case insensitive")
	}
	if !Evaluate(parse(t, `{"field": "name", "operator": "ends_with", "value": "CORP"}`), ctx) {
		t.Error("ends_with should be case insensitive")
	}
	if Evaluate(parse(t, `{"field": "name", "operator": "starts_with", "value": 42}`), ctx) {
		t.Error("starts_with with non-string value should be false")
	}
}

func TestEvaluate_NumericComparisons(t *testing.T) {
	ctx := Context{Data: map[string]any{"amount": float64(100)}}

	cases := []struct {
		operator string
		value    any
		want     bool
	}{
		{"greater_than", 50, true},
		{"greater_than", 100, false},
		{">", 50, true},
		{"less_than", 200, true},
		{"<", 100, false},
		{"greater_than_or_equals", 100, true},
		{"greater_than_or_equals", 101, false},
		{">=", 100, true},
		{"less_than_or_equals", 100, true},
		{"less_than_or_equals", 99, false},
		{"<=", 99, false},
	}

	for _, tc := range cases {
		node := &Node{Leaf: &Leaf{Field: "amount", Operator: tc.operator, Value: tc.value}}
		if got := Evaluate(node, ctx); got != tc.want {
			t.Errorf("%s %v: expected %t, got %t", tc.operator, tc.value, tc.want, got)
		}
	}
}

func TestEvaluate_NumericComparisonNonNumeric(t *testing.T) {
	node := parse(t, `{"field": "amount", "operator": "greater_than", "value": 10}`)
	ctx := Context{Data: map[string]any{"amount": "lots"}}

	if Evaluate(node, ctx) {
		t.Error("comparison with non-numeric value should be false")
	}
}

func TestEvaluate_IsEmpty(t *testing.T) {
	node := parse(t, `{"field": "notes", "operator": "is_empty"}`)

	for _, v := range []any{nil, "", "   ", []any{}, map[string]any{}} {
		if !Evaluate(node, Context{Data: map[string]any{"notes": v}}) {
			t.Errorf("%#v should be empty", v)
		}
	}
	if !Evaluate(node, Context{Data: map[string]any{}}) {
		t.Error("missing field should be empty")
	}
	if Evaluate(node, Context{Data: map[string]any{"notes": "text"}}) {
		t.Error("non-empty string should not be empty")
	}
}

func TestEvaluate_InNotIn(t *testing.T) {
	ctx := Context{Data: map[string]any{"stage": "won"}}

	if !Evaluate(parse(t, `{"field": "stage", "operator": "in", "value": ["won", "lost"]}`), ctx) {
		t.Error("value in list should match")
	}
	if !Evaluate(parse(t, `{"field": "stage", "operator": "not_in", "value": ["open"]}`), ctx) {
		t.Error("value not in list should match not_in")
	}
	// Скалярное значение трактуется как список из одного элемента
	if !Evaluate(parse(t, `{"field": "stage", "operator": "in", "value": "won"}`), ctx) {
		t.Error("scalar in-list should be wrapped")
	}
}

func TestEvaluate_Between(t *testing.T) {
	node := parse(t, `{"field": "amount", "operator": "between", "value": [10, 20]}`)

	// Границы включительно
	for _, v := range []float64{10, 15, 20} {
		if !Evaluate(node, Context{Data: map[string]any{"amount": v}}) {
			t.Errorf("%v should be between 10 and 20", v)
		}
	}
	for _, v := range []float64{9.99, 20.01} {
		if Evaluate(node, Context{Data: map[string]any{"amount": v}}) {
			t.Errorf("%v should not be between 10 and 20", v)
		}
	}

	bad := parse(t, `{"field": "amount", "operator": "between", "value": [10]}`)
	if Evaluate(bad, Context{Data: map[string]any{"amount": float64(15)}}) {
		t.Error("between with one bound should be false")
	}
}

func TestEvaluate_RegexMatch(t *testing.T) {
	ctx := Context{Data: map[string]any{"email": "user@example.com"}}

	if !Evaluate(parse(t, `{"field": "email", "operator": "regex_match", "value": "^user@"}`), ctx) {
		t.Error("pattern should match")
	}
	// Паттерн с PHP-делимитерами
	if !Evaluate(parse(t, `{"field": "email", "operator": "regex_match", "value": "/example\\.com$/"}`), ctx) {
		t.Error("delimited pattern should match")
	}
	if Evaluate(parse(t, `{"field": "email", "operator": "regex_match", "value": "("}`), ctx) {
		t.Error("invalid pattern should be false")
	}
}

func TestEvaluate_ChangedOperators(t *testing.T) {
	ctx := Context{
		Data: map[string]any{"record": map[string]any{"stage": "closed"}},
		Changes: ChangeSet{
			"stage": {Old: "open", New: "closed"},
		},
	}

	if !Evaluate(parse(t, `{"field": "stage", "operator": "changed"}`), ctx) {
		t.Error("changed field should match")
	}
	if !Evaluate(parse(t, `{"field": "record.stage", "operator": "changed"}`), ctx) {
		t.Error("record-prefixed path should resolve to the field name")
	}
	if !Evaluate(parse(t, `{"field": "stage", "operator": "changed_to", "value": "closed"}`), ctx) {
		t.Error("changed_to should match the new value")
	}
	if Evaluate(parse(t, `{"field": "stage", "operator": "changed_to", "value": "open"}`), ctx) {
		t.Error("changed_to should not match the old value")
	}
	if !Evaluate(parse(t, `{"field": "stage", "operator": "changed_from", "value": "open"}`), ctx) {
		t.Error("changed_from should match the old value")
	}
	if Evaluate(parse(t, `{"field": "amount", "operator": "changed"}`), ctx) {
		t.Error("unchanged field should not match")
	}
}

func TestEvaluate_NestedGroups(t *testing.T) {
	node := parse(t, `{"logic": "and", "conditions": [
		{"field": "module", "operator": "equals", "value": "deals"},
		{"logic": "or", "conditions": [
			{"field": "amount", "operator": "greater_than", "value": 1000},
			{"field": "priority", "operator": "equals", "value": "high"}
		]}
	]}`)

	ctx := Context{Data: map[string]any{
		"module":   "deals",
		"amount":   float64(50),
		"priority": "high",
	}}
	if !Evaluate(node, ctx) {
		t.Error("nested or branch should satisfy the outer and")
	}

	ctx.Data["priority"] = "low"
	if Evaluate(node, ctx) {
		t.Error("no or branch satisfied, outer and should fail")
	}
}

// --- ResolvePath Tests ---

func TestResolvePath(t *testing.T) {
	data := map[string]any{
		"contact": map[string]any{
			"email": "a@b.c",
		},
	}

	if got := ResolvePath(data, "contact.email"); got != "a@b.c" {
		t.Errorf("expected a@b.c, got %v", got)
	}
	if got := ResolvePath(data, "contact.phone"); got != nil {
		t.Errorf("missing path should be nil, got %v", got)
	}
	if got := ResolvePath(data, "contact.email.domain"); got != nil {
		t.Errorf("path through a scalar should be nil, got %v", got)
	}
	if got := ResolvePath(data, ""); got != nil {
		t.Errorf("empty path should be nil, got %v", got)
	}
}

// --- ChangesFrom Tests ---

func TestChangesFrom(t *testing.T) {
	raw := map[string]any{
		"stage":  map[string]any{"old": "open", "new": "closed"},
		"junk":   "not a change",
		"amount": map[string]any{"old": float64(1), "new": float64(2)},
	}

	cs := ChangesFrom(raw)
	if len(cs) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(cs))
	}
	if cs["stage"].New != "closed" {
		t.Errorf("expected new value closed, got %v", cs["stage"].New)
	}

	if got := ChangesFrom("nonsense"); got != nil {
		t.Error("non-map input should give nil")
	}
	if got := ChangesFrom(cs); len(got) != 2 {
		t.Error("ChangeSet input should pass through")
	}
}
