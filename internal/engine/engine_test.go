package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew_Defaults(t *testing.T) {
	e := New(Config{})

	if e.pollInterval != 5*time.Second {
		t.Errorf("expected default poll interval 5s, got %v", e.pollInterval)
	}
	if e.pollBatch != 50 {
		t.Errorf("expected default poll batch 50, got %d", e.pollBatch)
	}
	if e.active == nil {
		t.Error("active map should be initialized")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	e := New(Config{
		PollInterval: time.Minute,
		PollBatch:    10,
	})

	if e.pollInterval != time.Minute {
		t.Errorf("expected poll interval 1m, got %v", e.pollInterval)
	}
	if e.pollBatch != 10 {
		t.Errorf("expected poll batch 10, got %d", e.pollBatch)
	}
}

func TestEngine_AcquireRelease(t *testing.T) {
	e := New(Config{})
	id := uuid.New()

	if !e.tryAcquire(id) {
		t.Fatal("first acquire should succeed")
	}
	if e.tryAcquire(id) {
		t.Error("second acquire should fail while held")
	}

	e.release(id)
	if !e.tryAcquire(id) {
		t.Error("acquire after release should succeed")
	}
}

func TestExecuteAfter(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	got, ok := executeAfter(map[string]any{
		"execute_after": at.Format(time.RFC3339),
	})
	if !ok || !got.Equal(at) {
		t.Errorf("expected %s, got %s (ok=%t)", at, got, ok)
	}

	if _, ok := executeAfter(nil); ok {
		t.Error("nil context should have no execute_after")
	}
	if _, ok := executeAfter(map[string]any{}); ok {
		t.Error("missing key should have no execute_after")
	}
	if _, ok := executeAfter(map[string]any{"execute_after": "garbage"}); ok {
		t.Error("unparseable time should be ignored")
	}
}
