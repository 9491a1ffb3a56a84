package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Reactor/internal/actions"
	"github.com/shaiso/Reactor/internal/domain"
	"github.com/shaiso/Reactor/internal/events"
)

// --- Fakes ---

type fakeWorkflowStore struct {
	wf       *domain.Workflow
	getErr   error
	saves    int
	lastSave *domain.Workflow
}

func (s *fakeWorkflowStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.wf, nil
}

func (s *fakeWorkflowStore) Save(ctx context.Context, wf *domain.Workflow) error {
	s.saves++
	s.lastSave = wf
	return nil
}

type fakeExecutionStore struct {
	stepLogs []domain.StepLog
	saves    int
}

func (s *fakeExecutionStore) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	s.saves++
	return nil
}

func (s *fakeExecutionStore) SaveStepLog(ctx context.Context, log *domain.StepLog) error {
	s.stepLogs = append(s.stepLogs, *log)
	return nil
}

// logsForStep возвращает сохранённые записи журнала шага
// в порядке сохранения.
func (s *fakeExecutionStore) logsForStep(stepID uuid.UUID) []domain.StepLog {
	var logs []domain.StepLog
	for _, l := range s.stepLogs {
		if l.StepID == stepID {
			logs = append(logs, l)
		}
	}
	return logs
}

type recordingSink struct {
	events []events.Event
}

func (s *recordingSink) Publish(ctx context.Context, ev events.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) kinds() []string {
	kinds := make([]string, len(s.events))
	for i, ev := range s.events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// stubHandler — обработчик действия с заданным поведением.
type stubHandler struct {
	actionType string
	result     any
	err        error
	panicMsg   string
	calls      int
}

func (h *stubHandler) Type() string { return h.actionType }

func (h *stubHandler) Execute(ctx context.Context, config, execCtx map[string]any) (any, error) {
	h.calls++
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.result, h.err
}

// --- Helpers ---

type fixture struct {
	executor   *Executor
	workflows  *fakeWorkflowStore
	executions *fakeExecutionStore
	sink       *recordingSink
	clock      fixedClock
}

func newFixture(wf *domain.Workflow, handlers ...actions.Handler) *fixture {
	dispatcher := actions.NewDispatcher()
	for _, h := range handlers {
		dispatcher.Register(h)
	}

	workflows := &fakeWorkflowStore{wf: wf}
	executions := &fakeExecutionStore{}
	sink := &recordingSink{}
	clock := fixedClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	return &fixture{
		executor: New(Config{
			Workflows:  workflows,
			Executions: executions,
			Dispatcher: dispatcher,
			Sink:       sink,
			Clock:      clock,
		}),
		workflows:  workflows,
		executions: executions,
		sink:       sink,
		clock:      clock,
	}
}

func testWorkflow(steps ...domain.Step) *domain.Workflow {
	wf := &domain.Workflow{
		ID:       uuid.New(),
		Name:     "test workflow",
		IsActive: true,
		Steps:    steps,
	}
	for i := range wf.Steps {
		wf.Steps[i].WorkflowID = wf.ID
	}
	return wf
}

func testStep(actionType string, order int) domain.Step {
	return domain.Step{
		ID:           uuid.New(),
		Name:         actionType + " step",
		ActionType:   actionType,
		DisplayOrder: order,
	}
}

func newPendingExecution(wf *domain.Workflow) *domain.Execution {
	return domain.NewExecution(wf.ID, domain.TriggerRecordCreated, map[string]any{
		"record": map[string]any{"stage": "open"},
	}, time.Date(2026, 3, 10, 11, 59, 0, 0, time.UTC))
}

// --- Execute Tests ---

func TestExecute_Success(t *testing.T) {
	first := &stubHandler{actionType: "first", result: map[string]any{"n": 1}}
	second := &stubHandler{actionType: "second", result: map[string]any{"n": 2}}

	// Порядок объявления обратный: выполняться должны по DisplayOrder
	stepSecond := testStep("second", 2)
	stepFirst := testStep("first", 1)
	wf := testWorkflow(stepSecond, stepFirst)

	f := newFixture(wf, first, second)
	exec := newPendingExecution(wf)

	if !f.executor.Execute(context.Background(), exec) {
		t.Fatal("expected successful execution")
	}

	if exec.Status != domain.ExecutionStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", exec.Status)
	}
	if exec.StepsCompleted != 2 {
		t.Errorf("expected 2 completed steps, got %d", exec.StepsCompleted)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("each handler should run once, got %d/%d", first.calls, second.calls)
	}

	// Результаты шагов попадают в context.step_outputs
	outputs, ok := exec.Context["step_outputs"].(map[string]any)
	if !ok {
		t.Fatal("step_outputs should be in execution context")
	}
	firstOut, ok := outputs[stepFirst.ID.String()].(map[string]any)
	if !ok || firstOut["n"] != 1 {
		t.Errorf("unexpected first step output: %v", outputs)
	}

	// Статистика workflow обновлена
	if wf.ExecutionCount != 1 || wf.SuccessCount != 1 {
		t.Errorf("workflow stats not updated: count=%d success=%d", wf.ExecutionCount, wf.SuccessCount)
	}
	if f.workflows.saves == 0 {
		t.Error("workflow stats should be persisted")
	}

	kinds := f.sink.kinds()
	want := []string{"step.executed", "step.executed", "workflow.completed"}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestExecute_StepOrder(t *testing.T) {
	var order []string
	mk := func(name string) actions.Handler {
		return handlerFunc(name, func() { order = append(order, name) })
	}

	wf := testWorkflow(
		testStep("c", 30),
		testStep("a", 10),
		testStep("b", 20),
	)
	f := newFixture(wf, mk("a"), mk("b"), mk("c"))

	if !f.executor.Execute(context.Background(), newPendingExecution(wf)) {
		t.Fatal("expected successful execution")
	}

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("steps should run by display order, got %v", order)
	}
}

// handlerFunc — вспомогательный обработчик с callback.
type funcHandler struct {
	name string
	fn   func()
}

func handlerFunc(name string, fn func()) actions.Handler {
	return &funcHandler{name: name, fn: fn}
}

func (h *funcHandler) Type() string { return h.name }

func (h *funcHandler) Execute(ctx context.Context, config, execCtx map[string]any) (any, error) {
	h.fn()
	return nil, nil
}

func TestExecute_NoSteps(t *testing.T) {
	wf := testWorkflow()
	f := newFixture(wf)
	exec := newPendingExecution(wf)

	if !f.executor.Execute(context.Background(), exec) {
		t.Fatal("execution without steps should complete")
	}
	if exec.Status != domain.ExecutionStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", exec.Status)
	}
	if exec.TotalStepsProcessed() != 0 {
		t.Errorf("expected 0 processed steps, got %d", exec.TotalStepsProcessed())
	}

	// Пустое определение завершается сразу, минуя RUNNING
	if exec.StartedAt != nil {
		t.Error("execution without steps should not enter RUNNING")
	}
	if f.executions.saves != 1 {
		t.Errorf("expected a single terminal flush, got %d saves", f.executions.saves)
	}
}

func TestExecute_WorkflowNotFound(t *testing.T) {
	wf := testWorkflow()
	f := newFixture(wf)
	f.workflows.getErr = errors.New("no rows")

	exec := newPendingExecution(wf)

	if f.executor.Execute(context.Background(), exec) {
		t.Fatal("execution without a workflow should fail")
	}
	if exec.Status != domain.ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %s", exec.Status)
	}
	if !strings.Contains(exec.ErrorMessage, ErrWorkflowNotFound.Error()) {
		t.Errorf("unexpected error message: %s", exec.ErrorMessage)
	}
	if exec.StartedAt != nil {
		t.Error("execution should fail straight from PENDING, without a running phase")
	}

	kinds := f.sink.kinds()
	if len(kinds) != 1 || kinds[0] != "workflow.failed" {
		t.Errorf("expected workflow.failed event, got %v", kinds)
	}
}

func TestExecute_StepFailureStopsExecution(t *testing.T) {
	failing := &stubHandler{actionType: "failing", err: errors.New("boom")}
	after := &stubHandler{actionType: "after"}

	failingStep := testStep("failing", 1)
	afterStep := testStep("after", 2)
	wf := testWorkflow(failingStep, afterStep)

	f := newFixture(wf, failing, after)
	exec := newPendingExecution(wf)

	if f.executor.Execute(context.Background(), exec) {
		t.Fatal("execution should fail")
	}

	if exec.Status != domain.ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %s", exec.Status)
	}
	if exec.FailedStepID == nil || *exec.FailedStepID != failingStep.ID {
		t.Error("failed step ID should point at the failing step")
	}
	if after.calls != 0 {
		t.Error("steps after the failure should not run")
	}
	if exec.StepsFailed != 1 {
		t.Errorf("expected 1 failed step, got %d", exec.StepsFailed)
	}
	if wf.FailureCount != 1 {
		t.Errorf("workflow failure count should be updated, got %d", wf.FailureCount)
	}

	kinds := f.sink.kinds()
	want := []string{"step.failed", "workflow.failed"}
	if len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Errorf("expected events %v, got %v", want, kinds)
	}
}

func TestExecute_ContinueOnError(t *testing.T) {
	failing := &stubHandler{actionType: "failing", err: errors.New("boom")}
	after := &stubHandler{actionType: "after"}

	failingStep := testStep("failing", 1)
	failingStep.ContinueOnError = true
	wf := testWorkflow(failingStep, testStep("after", 2))

	f := newFixture(wf, failing, after)
	exec := newPendingExecution(wf)

	if !f.executor.Execute(context.Background(), exec) {
		t.Fatal("continue_on_error should let the execution complete")
	}

	if exec.Status != domain.ExecutionStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", exec.Status)
	}
	if exec.StepsFailed != 1 || exec.StepsCompleted != 1 {
		t.Errorf("expected 1 failed and 1 completed, got %d/%d", exec.StepsFailed, exec.StepsCompleted)
	}
	if after.calls != 1 {
		t.Error("the next step should still run")
	}
}

func TestExecute_RetryLogs(t *testing.T) {
	failing := &stubHandler{actionType: "failing", err: errors.New("boom")}

	step := testStep("failing", 1)
	step.RetryCount = 2
	step.ContinueOnError = true
	wf := testWorkflow(step)

	f := newFixture(wf, failing)
	exec := newPendingExecution(wf)

	if !f.executor.Execute(context.Background(), exec) {
		t.Fatal("continue_on_error should let the execution complete")
	}

	// Провал первой попытки + заранее созданная запись второй.
	// Сам executor шаг повторно не запускает.
	logs := f.executions.logsForStep(step.ID)
	if len(logs) < 2 {
		t.Fatalf("expected at least 2 step log saves, got %d", len(logs))
	}
	final := logs[len(logs)-2:]
	if final[0].Status != domain.StepLogStatusFailed || final[0].AttemptNumber != 1 {
		t.Errorf("expected failed attempt 1, got %s attempt %d", final[0].Status, final[0].AttemptNumber)
	}
	if final[1].Status != domain.StepLogStatusPending || final[1].AttemptNumber != 2 {
		t.Errorf("expected pending attempt 2, got %s attempt %d", final[1].Status, final[1].AttemptNumber)
	}
	if failing.calls != 1 {
		t.Errorf("executor should not re-run the step itself, got %d calls", failing.calls)
	}

	// Событие провала несёт флаг will_retry
	var failedEv events.StepFailed
	for _, ev := range f.sink.events {
		if fe, ok := ev.(events.StepFailed); ok {
			failedEv = fe
		}
	}
	if !failedEv.WillRetry {
		t.Error("step.failed event should carry will_retry=true")
	}
}

func TestExecute_NoRetryAtLimit(t *testing.T) {
	failing := &stubHandler{actionType: "failing", err: errors.New("boom")}

	step := testStep("failing", 1)
	step.RetryCount = 0
	step.ContinueOnError = true
	wf := testWorkflow(step)

	f := newFixture(wf, failing)

	if !f.executor.Execute(context.Background(), newPendingExecution(wf)) {
		t.Fatal("continue_on_error should let the execution complete")
	}

	logs := f.executions.logsForStep(step.ID)
	last := logs[len(logs)-1]
	if last.Status != domain.StepLogStatusFailed {
		t.Errorf("no retry log should be created at the limit, last status %s", last.Status)
	}
}

func TestExecute_SkippedStep(t *testing.T) {
	handler := &stubHandler{actionType: "guarded"}

	step := testStep("guarded", 1)
	step.Conditions = map[string]any{
		"field":    "record.stage",
		"operator": "equals",
		"value":    "closed",
	}
	wf := testWorkflow(step)

	f := newFixture(wf, handler)
	exec := newPendingExecution(wf) // record.stage = "open"

	if !f.executor.Execute(context.Background(), exec) {
		t.Fatal("execution with a skipped step should complete")
	}

	if exec.StepsSkipped != 1 {
		t.Errorf("expected 1 skipped step, got %d", exec.StepsSkipped)
	}
	if handler.calls != 0 {
		t.Error("skipped step handler should not run")
	}

	logs := f.executions.logsForStep(step.ID)
	last := logs[len(logs)-1]
	if last.Status != domain.StepLogStatusSkipped {
		t.Errorf("expected SKIPPED log, got %s", last.Status)
	}
	if last.SkipReason == "" {
		t.Error("skip reason should be recorded")
	}
}

func TestExecute_UnparseableConditionsRunStep(t *testing.T) {
	handler := &stubHandler{actionType: "guarded"}

	step := testStep("guarded", 1)
	step.Conditions = "not a tree"
	wf := testWorkflow(step)

	f := newFixture(wf, handler)

	if !f.executor.Execute(context.Background(), newPendingExecution(wf)) {
		t.Fatal("expected successful execution")
	}
	if handler.calls != 1 {
		t.Error("unparseable conditions should not block the step")
	}
}

func TestExecute_PanicContainment(t *testing.T) {
	panicking := &stubHandler{actionType: "panicking", panicMsg: "handler exploded"}

	wf := testWorkflow(testStep("panicking", 1))
	f := newFixture(wf, panicking)
	exec := newPendingExecution(wf)

	if f.executor.Execute(context.Background(), exec) {
		t.Fatal("panicking execution should fail")
	}

	if exec.Status != domain.ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %s", exec.Status)
	}
	if !strings.Contains(exec.ErrorMessage, "panic") {
		t.Errorf("error message should mention the panic, got %s", exec.ErrorMessage)
	}
}

func TestExecute_TerminalExecution(t *testing.T) {
	wf := testWorkflow()
	f := newFixture(wf)

	exec := newPendingExecution(wf)
	now := f.clock.Now()
	_ = exec.MarkRunning(now)
	_ = exec.MarkCompleted(now)

	if f.executor.Execute(context.Background(), exec) {
		t.Fatal("terminal execution should not run")
	}
	if exec.Status != domain.ExecutionStatusCompleted {
		t.Errorf("terminal status should not change, got %s", exec.Status)
	}
}

func TestExecute_UnregisteredAction(t *testing.T) {
	wf := testWorkflow(testStep("unknown", 1))
	f := newFixture(wf)
	exec := newPendingExecution(wf)

	if f.executor.Execute(context.Background(), exec) {
		t.Fatal("unregistered action should fail the execution")
	}
	if exec.Status != domain.ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %s", exec.Status)
	}
}
