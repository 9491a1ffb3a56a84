package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Reactor/internal/domain"
	"github.com/shaiso/Reactor/internal/mq"
	"github.com/shaiso/Reactor/internal/repo"
	"github.com/shaiso/Reactor/internal/telemetry"
	"github.com/shaiso/Reactor/internal/trigger"
)

// handleRecordEvent обрабатывает событие записи CRM из records.events.
func (e *Engine) handleRecordEvent(ctx context.Context, msg *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RecordEventPayload](&msg.Message)
	if err != nil {
		// Некорректный payload retry не исправит — ack и в лог
		e.logger.Error("invalid record event payload",
			"message_id", msg.Message.ID,
			"error", err,
		)
		return nil
	}

	return e.processRecordEvent(ctx, payload)
}

// processRecordEvent проверяет триггеры активных workflows модуля
// и создаёт executions для сработавших.
func (e *Engine) processRecordEvent(ctx context.Context, payload mq.RecordEventPayload) error {
	logger := e.logger.With(
		"module_id", payload.ModuleID,
		"event_type", payload.EventType,
		"record_id", payload.RecordID,
	)

	workflows, err := e.workflows.ListActiveForModule(ctx, payload.ModuleID)
	if err != nil {
		return fmt.Errorf("list active workflows for module %d: %w", payload.ModuleID, err)
	}

	if len(workflows) == 0 {
		return nil
	}

	ev := trigger.Event{
		Type:     payload.EventType,
		IsCreate: payload.IsCreate,
		Record:   payload.Record,
		Previous: payload.Previous,
	}

	var triggered int
	for i := range workflows {
		wf := &workflows[i]

		if !e.trigger.ShouldTrigger(wf, ev) {
			telemetry.TriggerChecksTotal.WithLabelValues("not_matched").Inc()
			continue
		}
		telemetry.TriggerChecksTotal.WithLabelValues("matched").Inc()

		if wf.RunOncePerRecord {
			seen, err := e.executions.HasForRecord(ctx, wf.ID, payload.RecordID)
			if err != nil {
				logger.Error("failed to check run_once_per_record",
					"workflow_id", wf.ID,
					"error", err,
				)
				continue
			}
			if seen {
				logger.Debug("workflow already ran for record", "workflow_id", wf.ID)
				continue
			}
		}

		if err := e.startExecution(ctx, wf, payload); err != nil {
			logger.Error("failed to start execution",
				"workflow_id", wf.ID,
				"workflow_name", wf.Name,
				"error", err,
			)
			// Остальные workflows обрабатываем независимо
			continue
		}
		triggered++

		// Workflows отсортированы по убыванию приоритета: сработавший
		// stop_on_first_match обрывает цепочку для этого события
		if wf.StopOnFirstMatch {
			logger.Debug("stop_on_first_match, skipping remaining workflows",
				"workflow_id", wf.ID,
			)
			break
		}
	}

	if triggered > 0 {
		logger.Info("record event triggered workflows",
			"checked", len(workflows),
			"triggered", triggered,
		)
	}

	return nil
}

// startExecution создаёт execution для сработавшего workflow
// и выполняет его. Workflow с задержкой остаётся в PENDING до
// наступления execute_after и подбирается polling-циклом.
func (e *Engine) startExecution(ctx context.Context, wf *domain.Workflow, payload mq.RecordEventPayload) error {
	now := e.clock.Now()

	execCtx := map[string]any{
		"record":    payload.Record,
		"module_id": payload.ModuleID,
		"record_id": payload.RecordID,
		"trigger":   payload.EventType,
	}
	if payload.Previous != nil {
		execCtx["previous"] = payload.Previous
		execCtx["changes"] = trigger.ChangedFields(payload.Record, payload.Previous)
	}
	if wf.DelaySeconds > 0 {
		executeAfter := now.Add(time.Duration(wf.DelaySeconds) * time.Second)
		execCtx["execute_after"] = executeAfter.UTC().Format(time.RFC3339)
	}

	exec := domain.NewExecution(wf.ID, payload.EventType, execCtx, now)
	if err := e.executions.SaveExecution(ctx, exec); err != nil {
		return fmt.Errorf("create execution: %w", err)
	}

	wf.IncrementTodayExecutions(now)
	if err := e.workflows.Save(ctx, wf); err != nil {
		return fmt.Errorf("update workflow counters: %w", err)
	}

	if wf.DelaySeconds > 0 {
		e.logger.Info("execution deferred",
			"execution_id", exec.ID,
			"workflow_id", wf.ID,
			"delay_seconds", wf.DelaySeconds,
		)
		return nil
	}

	e.processExecution(ctx, exec)
	return nil
}

// handleExecutionPending обрабатывает сообщение о pending execution
// из executions.pending.
func (e *Engine) handleExecutionPending(ctx context.Context, msg *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionPendingPayload](&msg.Message)
	if err != nil {
		e.logger.Error("invalid execution pending payload",
			"message_id", msg.Message.ID,
			"error", err,
		)
		return nil
	}

	exec, err := e.executions.GetByID(ctx, payload.ExecutionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Execution удалён — сообщение устарело
			e.logger.Warn("pending execution not found", "execution_id", payload.ExecutionID)
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrExecutionNotFound, payload.ExecutionID, err)
	}

	e.processExecution(ctx, exec)
	return nil
}

// processExecution выполняет один pending execution.
// Не-pending executions и executions с ненаступившим execute_after
// пропускаются молча.
func (e *Engine) processExecution(ctx context.Context, exec *domain.Execution) {
	if exec.Status != domain.ExecutionStatusPending {
		e.logger.Debug("execution is not pending, skipping",
			"execution_id", exec.ID,
			"status", exec.Status,
		)
		return
	}

	if after, ok := executeAfter(exec.Context); ok && e.clock.Now().Before(after) {
		// Задержка ещё не истекла — execution остаётся в PENDING
		return
	}

	if !e.tryAcquire(exec.ID) {
		e.logger.Debug("execution already in progress", "execution_id", exec.ID)
		return
	}
	defer e.release(exec.ID)

	e.executor.Execute(ctx, exec)
}

// executeAfter извлекает из context время отложенного запуска.
func executeAfter(execCtx map[string]any) (time.Time, bool) {
	if execCtx == nil {
		return time.Time{}, false
	}
	raw, ok := execCtx["execute_after"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
