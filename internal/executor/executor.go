package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/shaiso/Reactor/internal/actions"
	"github.com/shaiso/Reactor/internal/conditions"
	"github.com/shaiso/Reactor/internal/domain"
	"github.com/shaiso/Reactor/internal/events"
	"github.com/shaiso/Reactor/internal/telemetry"
)

// Executor выполняет executions workflow.
type Executor struct {
	workflows  WorkflowStore
	executions ExecutionStore
	dispatcher *actions.Dispatcher
	sink       events.Sink
	clock      domain.Clock
	logger     *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	Workflows  WorkflowStore
	Executions ExecutionStore
	Dispatcher *actions.Dispatcher
	Sink       events.Sink   // default: events.NopSink
	Clock      domain.Clock  // default: domain.SystemClock
	Logger     *slog.Logger  // default: slog.Default()
}

// New создаёт новый Executor.
func New(cfg Config) *Executor {
	sink := cfg.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		dispatcher: cfg.Dispatcher,
		sink:       sink,
		clock:      clock,
		logger:     logger,
	}
}

// Execute выполняет execution и возвращает true при успешном завершении.
//
// Execute не возвращает ошибку: любой сбой, включая панику обработчика
// действия, переводит execution в FAILED и даёт false. Терминальный
// статус назначается ровно один раз; каждый переход сохраняется
// в хранилище до продолжения работы.
func (e *Executor) Execute(ctx context.Context, exec *domain.Execution) (ok bool) {
	logger := telemetry.WithExecutionID(e.logger, exec.ID.String())

	var wf *domain.Workflow
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during execution", "panic", r)
			e.failExecution(ctx, wf, exec, fmt.Sprintf("panic: %v", r), nil)
			ok = false
		}
	}()

	if exec.Context == nil {
		exec.Context = make(map[string]any)
	}

	loaded, err := e.workflows.GetByID(ctx, exec.WorkflowID)
	if err != nil {
		logger.Error("failed to load workflow", "workflow_id", exec.WorkflowID, "error", err)
		e.failExecution(ctx, nil, exec,
			fmt.Sprintf("%s: %s: %v", ErrWorkflowNotFound, exec.WorkflowID, err), nil)
		return false
	}
	wf = loaded
	logger = telemetry.WithWorkflowID(logger, wf.ID.String())

	// Определение без шагов завершается сразу, минуя RUNNING
	if len(wf.Steps) == 0 {
		return e.completeExecution(ctx, wf, exec, logger)
	}

	if err := exec.MarkRunning(e.clock.Now()); err != nil {
		logger.Warn("cannot start execution", "status", exec.Status, "error", err)
		return false
	}
	e.saveExecution(ctx, exec, logger)

	condCtx := conditions.Context{
		Data:    exec.Context,
		Changes: conditions.ChangesFrom(exec.Context["changes"]),
	}

	steps := sortedSteps(wf.Steps)
	for i := range steps {
		if !e.runStep(ctx, wf, exec, &steps[i], condCtx, logger) {
			return false
		}
	}

	return e.completeExecution(ctx, wf, exec, logger)
}

// runStep обрабатывает один шаг. Возвращает false, если execution
// должен быть остановлен с ошибкой.
func (e *Executor) runStep(ctx context.Context, wf *domain.Workflow, exec *domain.Execution, step *domain.Step, condCtx conditions.Context, logger *slog.Logger) bool {
	stepLogger := telemetry.WithStepID(logger, step.ID.String())
	log := domain.NewStepLog(exec.ID, step, 1, e.clock.Now())

	tree, err := conditions.ParseTree(step.Conditions)
	if err != nil {
		// Нечитаемые условия не блокируют шаг
		stepLogger.Warn("unparseable step conditions, running step", "error", err)
		tree = nil
	}

	if !conditions.Evaluate(tree, condCtx) {
		log.MarkSkipped("step conditions not met", e.clock.Now())
		e.saveStepLog(ctx, log, stepLogger)

		exec.StepsSkipped++
		e.saveExecution(ctx, exec, stepLogger)
		telemetry.StepsTotal.WithLabelValues("skipped").Inc()

		stepLogger.Debug("step skipped", "step_name", step.Name)
		return true
	}

	log.MarkStarted(e.clock.Now())
	e.saveStepLog(ctx, log, stepLogger)

	output, err := e.dispatcher.Dispatch(ctx, step.ActionType, step.ActionConfig, exec.Context)
	if err != nil {
		return e.handleStepFailure(ctx, wf, exec, step, log, err, stepLogger)
	}

	log.MarkCompleted(output, e.clock.Now())
	e.saveStepLog(ctx, log, stepLogger)

	exec.StepsCompleted++
	e.saveExecution(ctx, exec, stepLogger)
	telemetry.StepsTotal.WithLabelValues("completed").Inc()

	mergeStepOutput(exec.Context, step.ID, output)

	e.publish(ctx, events.StepExecuted{
		WorkflowID:  wf.ID,
		ExecutionID: exec.ID,
		StepID:      step.ID,
		ActionType:  step.ActionType,
		DurationMs:  log.Duration().Milliseconds(),
		Output:      output,
	}, stepLogger)

	stepLogger.Info("step completed",
		"step_name", step.Name,
		"action_type", step.ActionType,
		"duration_ms", log.Duration().Milliseconds(),
	)
	return true
}

// handleStepFailure фиксирует провал попытки шага. Возвращает false,
// если execution должен быть остановлен.
func (e *Executor) handleStepFailure(ctx context.Context, wf *domain.Workflow, exec *domain.Execution, step *domain.Step, log *domain.StepLog, stepErr error, logger *slog.Logger) bool {
	log.MarkFailed(stepErr.Error(), e.clock.Now())
	e.saveStepLog(ctx, log, logger)

	exec.StepsFailed++
	e.saveExecution(ctx, exec, logger)
	telemetry.StepsTotal.WithLabelValues("failed").Inc()

	willRetry := log.AttemptNumber < step.RetryCount

	e.publish(ctx, events.StepFailed{
		WorkflowID:    wf.ID,
		ExecutionID:   exec.ID,
		StepID:        step.ID,
		ActionType:    step.ActionType,
		ErrorMessage:  stepErr.Error(),
		AttemptNumber: log.AttemptNumber,
		WillRetry:     willRetry,
	}, logger)

	logger.Warn("step failed",
		"step_name", step.Name,
		"action_type", step.ActionType,
		"attempt", log.AttemptNumber,
		"will_retry", willRetry,
		"error", stepErr,
	)

	if willRetry {
		// Запись следующей попытки создаётся заранее; отложенный
		// повторный запуск выполняет хост-система (retry_delay — подсказка ей)
		retryLog := domain.NewStepLog(exec.ID, step, log.AttemptNumber+1, e.clock.Now())
		e.saveStepLog(ctx, retryLog, logger)
	}

	if !step.ContinueOnError {
		stepID := step.ID
		e.failExecution(ctx, wf, exec,
			fmt.Sprintf("step %q failed: %v", step.Name, stepErr), &stepID)
		return false
	}

	return true
}

// completeExecution завершает execution успешно.
func (e *Executor) completeExecution(ctx context.Context, wf *domain.Workflow, exec *domain.Execution, logger *slog.Logger) bool {
	now := e.clock.Now()
	if err := exec.MarkCompleted(now); err != nil {
		logger.Warn("cannot complete execution", "status", exec.Status, "error", err)
		return false
	}
	e.saveExecution(ctx, exec, logger)

	wf.RecordExecution(true, now)
	if err := e.workflows.Save(ctx, wf); err != nil {
		logger.Error("failed to save workflow statistics", "error", err)
	}

	telemetry.ExecutionsTotal.WithLabelValues("completed").Inc()
	telemetry.ExecutionDuration.Observe(exec.Duration().Seconds())

	e.publish(ctx, events.WorkflowCompleted{
		WorkflowID:     wf.ID,
		ExecutionID:    exec.ID,
		StepsCompleted: exec.StepsCompleted,
		StepsSkipped:   exec.StepsSkipped,
		DurationMs:     exec.Duration().Milliseconds(),
	}, logger)

	logger.Info("execution completed",
		"steps_completed", exec.StepsCompleted,
		"steps_skipped", exec.StepsSkipped,
		"duration_ms", exec.Duration().Milliseconds(),
	)
	return true
}

// failExecution завершает execution с ошибкой. Уже терминальный
// execution не трогается. wf может быть nil (определение не загрузилось).
func (e *Executor) failExecution(ctx context.Context, wf *domain.Workflow, exec *domain.Execution, errMsg string, failedStepID *uuid.UUID) {
	now := e.clock.Now()
	if err := exec.MarkFailed(errMsg, failedStepID, now); err != nil {
		e.logger.Warn("cannot fail execution",
			"execution_id", exec.ID,
			"status", exec.Status,
			"error", err,
		)
		return
	}
	e.saveExecution(ctx, exec, e.logger)

	workflowID := exec.WorkflowID
	if wf != nil {
		workflowID = wf.ID
		wf.RecordExecution(false, now)
		if err := e.workflows.Save(ctx, wf); err != nil {
			e.logger.Error("failed to save workflow statistics", "error", err)
		}
	}

	telemetry.ExecutionsTotal.WithLabelValues("failed").Inc()

	e.publish(ctx, events.WorkflowFailed{
		WorkflowID:     workflowID,
		ExecutionID:    exec.ID,
		ErrorMessage:   errMsg,
		FailedStepID:   failedStepID,
		StepsCompleted: exec.StepsCompleted,
		StepsFailed:    exec.StepsFailed,
	}, e.logger)

	e.logger.Warn("execution failed",
		"execution_id", exec.ID,
		"error", errMsg,
	)
}

func (e *Executor) saveExecution(ctx context.Context, exec *domain.Execution, logger *slog.Logger) {
	if err := e.executions.SaveExecution(ctx, exec); err != nil {
		logger.Error("failed to save execution", "error", err)
	}
}

func (e *Executor) saveStepLog(ctx context.Context, log *domain.StepLog, logger *slog.Logger) {
	if err := e.executions.SaveStepLog(ctx, log); err != nil {
		logger.Error("failed to save step log", "error", err)
	}
}

func (e *Executor) publish(ctx context.Context, ev events.Event, logger *slog.Logger) {
	if err := e.sink.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish lifecycle event", "kind", ev.Kind(), "error", err)
	}
}

// mergeStepOutput записывает результат шага в context.step_outputs.
func mergeStepOutput(execCtx map[string]any, stepID uuid.UUID, output map[string]any) {
	outputs, ok := execCtx["step_outputs"].(map[string]any)
	if !ok {
		outputs = make(map[string]any)
		execCtx["step_outputs"] = outputs
	}
	outputs[stepID.String()] = output
}

// sortedSteps возвращает шаги, упорядоченные по DisplayOrder.
func sortedSteps(steps []domain.Step) []domain.Step {
	sorted := make([]domain.Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return sorted
}
