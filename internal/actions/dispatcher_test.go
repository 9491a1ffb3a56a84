package actions

import (
	"context"
	"errors"
	"testing"
)

// stubHandler — обработчик с фиксированным результатом.
type stubHandler struct {
	actionType string
	result     any
	err        error
}

func (h *stubHandler) Type() string { return h.actionType }

func (h *stubHandler) Execute(ctx context.Context, config, execCtx map[string]any) (any, error) {
	return h.result, h.err
}

// --- Dispatcher Tests ---

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher()

	if d.Count() != 0 {
		t.Error("new dispatcher should be empty")
	}

	d.Register(&stubHandler{actionType: "custom"})

	if !d.Has("custom") {
		t.Error("registered type should be present")
	}
	if d.Count() != 1 {
		t.Errorf("expected 1 handler, got %d", d.Count())
	}
}

func TestDispatcher_RegisterHandlerFunc(t *testing.T) {
	d := NewDispatcher()
	d.Register(HandlerFunc{
		ActionType: "echo",
		Fn: func(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error) {
			return config["msg"], nil
		},
	})

	out, err := d.Dispatch(context.Background(), "echo", map[string]any{"msg": "hi"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["result"] != "hi" {
		t.Errorf("expected echoed config value, got %v", out["result"])
	}
}

func TestDispatcher_RegisterOverwrites(t *testing.T) {
	d := NewDispatcher()
	d.Register(&stubHandler{actionType: "custom", result: "first"})
	d.Register(&stubHandler{actionType: "custom", result: "second"})

	if d.Count() != 1 {
		t.Errorf("re-registration should not add handlers, got %d", d.Count())
	}

	out, err := d.Dispatch(context.Background(), "custom", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["result"] != "second" {
		t.Errorf("last registered handler should win, got %v", out["result"])
	}
}

func TestDispatcher_DispatchUnregistered(t *testing.T) {
	d := NewDispatcher()

	_, err := d.Dispatch(context.Background(), "missing", nil, nil)
	if !errors.Is(err, ErrUnregisteredAction) {
		t.Errorf("expected ErrUnregisteredAction, got %v", err)
	}
}

func TestDispatcher_DispatchError(t *testing.T) {
	d := NewDispatcher()
	handlerErr := errors.New("boom")
	d.Register(&stubHandler{actionType: "failing", err: handlerErr})

	_, err := d.Dispatch(context.Background(), "failing", nil, nil)
	if !errors.Is(err, handlerErr) {
		t.Errorf("handler error should pass through, got %v", err)
	}
}

func TestDispatcher_ResultNormalization(t *testing.T) {
	d := NewDispatcher()
	d.Register(&stubHandler{actionType: "scalar", result: 42})
	d.Register(&stubHandler{actionType: "mapped", result: map[string]any{"key": "value"}})
	d.Register(&stubHandler{actionType: "empty", result: nil})

	out, _ := d.Dispatch(context.Background(), "scalar", nil, nil)
	if out["result"] != 42 {
		t.Errorf("scalar result should be wrapped, got %v", out)
	}

	out, _ = d.Dispatch(context.Background(), "mapped", nil, nil)
	if out["key"] != "value" {
		t.Errorf("map result should pass through, got %v", out)
	}

	out, _ = d.Dispatch(context.Background(), "empty", nil, nil)
	if out == nil || len(out) != 0 {
		t.Errorf("nil result should give an empty map, got %v", out)
	}
}

func TestDispatcher_Types(t *testing.T) {
	d := NewDispatcher()
	d.Register(&stubHandler{actionType: "zeta"})
	d.Register(&stubHandler{actionType: "alpha"})

	types := d.Types()
	if len(types) != 2 || types[0] != "alpha" || types[1] != "zeta" {
		t.Errorf("types should be sorted, got %v", types)
	}
}

func TestDispatcher_Unregister(t *testing.T) {
	d := NewDispatcher()
	d.Register(&stubHandler{actionType: "custom"})
	d.Unregister("custom")

	if d.Has("custom") {
		t.Error("unregistered type should be absent")
	}
}

func TestDefaultDispatcher(t *testing.T) {
	d := DefaultDispatcher()

	for _, actionType := range []string{"webhook", "condition", "update_field"} {
		if !d.Has(actionType) {
			t.Errorf("default dispatcher should have %s", actionType)
		}
	}
}

// --- UpdateFieldHandler Tests ---

func TestUpdateFieldHandler(t *testing.T) {
	h := NewUpdateFieldHandler()
	execCtx := map[string]any{
		"record": map[string]any{"stage": "open"},
	}

	out, err := h.Execute(context.Background(), map[string]any{
		"field": "stage",
		"value": "won",
	}, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := out.(map[string]any)
	if result["previous"] != "open" {
		t.Errorf("expected previous open, got %v", result["previous"])
	}

	record := execCtx["record"].(map[string]any)
	if record["stage"] != "won" {
		t.Errorf("record should be updated, got %v", record["stage"])
	}
}

func TestUpdateFieldHandler_ValueField(t *testing.T) {
	h := NewUpdateFieldHandler()
	execCtx := map[string]any{
		"record": map[string]any{
			"owner_id":   float64(1),
			"manager_id": float64(7),
		},
	}

	_, err := h.Execute(context.Background(), map[string]any{
		"field":       "owner_id",
		"value_field": "record.manager_id",
	}, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record := execCtx["record"].(map[string]any)
	if record["owner_id"] != float64(7) {
		t.Errorf("expected owner_id 7, got %v", record["owner_id"])
	}
}

func TestUpdateFieldHandler_NestedPath(t *testing.T) {
	h := NewUpdateFieldHandler()
	execCtx := map[string]any{
		"record": map[string]any{},
	}

	_, err := h.Execute(context.Background(), map[string]any{
		"field": "address.city",
		"value": "Berlin",
	}, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record := execCtx["record"].(map[string]any)
	address := record["address"].(map[string]any)
	if address["city"] != "Berlin" {
		t.Errorf("intermediate objects should be created, got %v", record)
	}
}

func TestUpdateFieldHandler_InvalidConfig(t *testing.T) {
	h := NewUpdateFieldHandler()
	execCtx := map[string]any{"record": map[string]any{}}

	_, err := h.Execute(context.Background(), map[string]any{}, execCtx)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing field should give ErrInvalidConfig, got %v", err)
	}

	_, err = h.Execute(context.Background(), map[string]any{"field": "x"}, execCtx)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing value should give ErrInvalidConfig, got %v", err)
	}

	_, err = h.Execute(context.Background(), map[string]any{"field": "x", "value": 1}, map[string]any{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing record should give ErrInvalidConfig, got %v", err)
	}
}

// --- ConditionHandler Tests ---

func TestConditionHandler(t *testing.T) {
	h := NewConditionHandler()
	execCtx := map[string]any{
		"record": map[string]any{"amount": float64(500)},
	}

	out, err := h.Execute(context.Background(), map[string]any{
		"conditions": map[string]any{
			"field":    "record.amount",
			"operator": "greater_than",
			"value":    float64(100),
		},
	}, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := out.(map[string]any)
	if result["matched"] != true {
		t.Errorf("expected matched true, got %v", result)
	}
}

func TestConditionHandler_MissingConditions(t *testing.T) {
	h := NewConditionHandler()

	_, err := h.Execute(context.Background(), map[string]any{}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
