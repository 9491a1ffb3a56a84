package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Reactor/internal/domain"
)

// executionColumns — колонки executions в порядке сканирования.
const executionColumns = `
	id, workflow_id, status, triggered_by, context,
	steps_completed, steps_failed, steps_skipped,
	error_message, failed_step_id,
	started_at, finished_at, created_at`

// ExecutionRepo — репозиторий для работы с executions и журналом шагов.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// SaveExecution сохраняет execution (insert или update по ID).
//
// Исполнитель сохраняет execution после каждого перехода статуса,
// поэтому запись может как создаваться, так и обновляться.
func (r *ExecutionRepo) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	contextJSON, err := json.Marshal(exec.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	query := `
		INSERT INTO executions (
			id, workflow_id, status, triggered_by, context,
			steps_completed, steps_failed, steps_skipped,
			error_message, failed_step_id,
			started_at, finished_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    context = EXCLUDED.context,
		    steps_completed = EXCLUDED.steps_completed,
		    steps_failed = EXCLUDED.steps_failed,
		    steps_skipped = EXCLUDED.steps_skipped,
		    error_message = EXCLUDED.error_message,
		    failed_step_id = EXCLUDED.failed_step_id,
		    started_at = EXCLUDED.started_at,
		    finished_at = EXCLUDED.finished_at
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.WorkflowID,
		exec.Status,
		nullString(exec.TriggeredBy),
		contextJSON,
		exec.StepsCompleted,
		exec.StepsFailed,
		exec.StepsSkipped,
		nullString(exec.ErrorMessage),
		exec.FailedStepID,
		exec.StartedAt,
		exec.FinishedAt,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// ListPending возвращает executions в статусе PENDING (для polling fallback).
func (r *ExecutionRepo) ListPending(ctx context.Context, limit int) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

// HasForRecord возвращает true, если у workflow уже есть execution
// для записи. Используется для run_once_per_record.
func (r *ExecutionRepo) HasForRecord(ctx context.Context, workflowID uuid.UUID, recordID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM executions
			WHERE workflow_id = $1 AND context->>'record_id' = $2
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, workflowID, recordID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check execution for record: %w", err)
	}
	return exists, nil
}

// ListByWorkflow возвращает executions workflow, новые первыми.
func (r *ExecutionRepo) ListByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

// SaveStepLog сохраняет запись журнала шага (insert или update по ID).
// Каждая попытка — отдельная запись; прежние попытки не перезаписываются.
func (r *ExecutionRepo) SaveStepLog(ctx context.Context, log *domain.StepLog) error {
	outputJSON, err := json.Marshal(log.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		INSERT INTO step_logs (
			id, execution_id, step_id, action_type, attempt_number,
			status, output, error_message, skip_reason,
			started_at, finished_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    output = EXCLUDED.output,
		    error_message = EXCLUDED.error_message,
		    skip_reason = EXCLUDED.skip_reason,
		    started_at = EXCLUDED.started_at,
		    finished_at = EXCLUDED.finished_at
	`
	_, err = r.pool.Exec(ctx, query,
		log.ID,
		log.ExecutionID,
		log.StepID,
		log.ActionType,
		log.AttemptNumber,
		log.Status,
		outputJSON,
		nullString(log.ErrorMessage),
		nullString(log.SkipReason),
		log.StartedAt,
		log.FinishedAt,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save step log: %w", err)
	}
	return nil
}

// GetStepLogs возвращает журнал шагов execution в порядке создания.
func (r *ExecutionRepo) GetStepLogs(ctx context.Context, executionID uuid.UUID) ([]domain.StepLog, error) {
	query := `
		SELECT id, execution_id, step_id, action_type, attempt_number,
		       status, output, error_message, skip_reason,
		       started_at, finished_at, created_at
		FROM step_logs
		WHERE execution_id = $1
		ORDER BY created_at ASC, attempt_number ASC
	`
	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("list step logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.StepLog
	for rows.Next() {
		var log domain.StepLog
		var outputJSON []byte
		var errorMessage, skipReason *string

		err := rows.Scan(
			&log.ID,
			&log.ExecutionID,
			&log.StepID,
			&log.ActionType,
			&log.AttemptNumber,
			&log.Status,
			&outputJSON,
			&errorMessage,
			&skipReason,
			&log.StartedAt,
			&log.FinishedAt,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step log: %w", err)
		}

		if outputJSON != nil {
			if err := json.Unmarshal(outputJSON, &log.Output); err != nil {
				return nil, fmt.Errorf("unmarshal output: %w", err)
			}
		}
		if errorMessage != nil {
			log.ErrorMessage = *errorMessage
		}
		if skipReason != nil {
			log.SkipReason = *skipReason
		}

		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// scanExecution сканирует одну строку в Execution.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var triggeredBy, errorMessage *string
	var contextJSON []byte

	err := row.Scan(
		&exec.ID,
		&exec.WorkflowID,
		&exec.Status,
		&triggeredBy,
		&contextJSON,
		&exec.StepsCompleted,
		&exec.StepsFailed,
		&exec.StepsSkipped,
		&errorMessage,
		&exec.FailedStepID,
		&exec.StartedAt,
		&exec.FinishedAt,
		&exec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if triggeredBy != nil {
		exec.TriggeredBy = *triggeredBy
	}
	if errorMessage != nil {
		exec.ErrorMessage = *errorMessage
	}
	if contextJSON != nil {
		if err := json.Unmarshal(contextJSON, &exec.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}

	return &exec, nil
}
