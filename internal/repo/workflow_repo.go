package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Reactor/internal/domain"
)

// workflowColumns — колонки workflows в порядке сканирования.
const workflowColumns = `
	id, module_id, name, description, is_active,
	trigger_type, trigger_timing, trigger_config, watched_fields,
	delay_seconds, priority, max_executions_per_day,
	stop_on_first_match, run_once_per_record, allow_manual_trigger,
	executions_today, executions_date,
	schedule_cron, next_run_at, webhook_secret,
	execution_count, success_count, failure_count, last_run_at,
	created_at, updated_at`

// WorkflowRepo — репозиторий для работы с workflows и их шагами.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create создаёт workflow вместе с шагами.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	triggerConfigJSON, watchedFieldsJSON, err := marshalWorkflowJSON(wf)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO workflows (
			id, module_id, name, description, is_active,
			trigger_type, trigger_timing, trigger_config, watched_fields,
			delay_seconds, priority, max_executions_per_day,
			stop_on_first_match, run_once_per_record, allow_manual_trigger,
			executions_today, executions_date,
			schedule_cron, next_run_at, webhook_secret,
			execution_count, success_count, failure_count, last_run_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23,
		        $24, $25, $26)
	`
	_, err = tx.Exec(ctx, query,
		wf.ID,
		wf.ModuleID,
		wf.Name,
		nullString(wf.Description),
		wf.IsActive,
		wf.TriggerType,
		nullString(wf.TriggerTiming),
		triggerConfigJSON,
		watchedFieldsJSON,
		wf.DelaySeconds,
		wf.Priority,
		wf.MaxExecutionsPerDay,
		wf.StopOnFirstMatch,
		wf.RunOncePerRecord,
		wf.AllowManualTrigger,
		wf.ExecutionsToday,
		wf.ExecutionsDate,
		nullString(wf.ScheduleCron),
		wf.NextRunAt,
		nullString(wf.WebhookSecret),
		wf.ExecutionCount,
		wf.SuccessCount,
		wf.FailureCount,
		wf.LastRunAt,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %q in module %d", ErrDuplicateWorkflow, wf.Name, wf.ModuleID)
		}
		return fmt.Errorf("insert workflow: %w", err)
	}

	for i := range wf.Steps {
		if err := insertStep(ctx, tx, &wf.Steps[i]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID возвращает workflow вместе с шагами.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	wf, err := scanWorkflow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	steps, err := r.loadSteps(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	wf.Steps = steps

	return wf, nil
}

// ListActiveForModule возвращает активные workflows модуля, отсортированные
// по убыванию приоритета. Шаги не загружаются: для проверки триггера они
// не нужны, исполнитель загрузит workflow целиком сам.
func (r *WorkflowRepo) ListActiveForModule(ctx context.Context, moduleID int64) ([]domain.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE module_id = $1 AND is_active = TRUE
		ORDER BY priority DESC, created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// ListDueScheduled возвращает активные time_based workflows, у которых
// наступило (или ещё не назначено) время следующего запуска.
func (r *WorkflowRepo) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE is_active = TRUE
		  AND trigger_type = 'time_based'
		  AND schedule_cron IS NOT NULL
		  AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY next_run_at ASC NULLS FIRST
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Save сохраняет изменяемые поля workflow: активность, счётчики,
// статистику запусков и расписание. Определение шагов не трогается.
func (r *WorkflowRepo) Save(ctx context.Context, wf *domain.Workflow) error {
	query := `
		UPDATE workflows
		SET is_active = $2,
		    executions_today = $3,
		    executions_date = $4,
		    next_run_at = $5,
		    webhook_secret = $6,
		    execution_count = $7,
		    success_count = $8,
		    failure_count = $9,
		    last_run_at = $10,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		wf.ID,
		wf.IsActive,
		wf.ExecutionsToday,
		wf.ExecutionsDate,
		wf.NextRunAt,
		nullString(wf.WebhookSecret),
		wf.ExecutionCount,
		wf.SuccessCount,
		wf.FailureCount,
		wf.LastRunAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow вместе с шагами (ON DELETE CASCADE).
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// loadSteps возвращает шаги workflow в порядке display_order.
func (r *WorkflowRepo) loadSteps(ctx context.Context, workflowID uuid.UUID) ([]domain.Step, error) {
	query := `
		SELECT id, workflow_id, name, action_type, display_order,
		       conditions, action_config, retry_count, retry_delay,
		       continue_on_error, created_at
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY display_order ASC
	`
	rows, err := r.pool.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		var step domain.Step
		var name *string
		var conditionsJSON, actionConfigJSON []byte

		err := rows.Scan(
			&step.ID,
			&step.WorkflowID,
			&name,
			&step.ActionType,
			&step.DisplayOrder,
			&conditionsJSON,
			&actionConfigJSON,
			&step.RetryCount,
			&step.RetryDelay,
			&step.ContinueOnError,
			&step.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		if name != nil {
			step.Name = *name
		}
		if conditionsJSON != nil {
			if err := json.Unmarshal(conditionsJSON, &step.Conditions); err != nil {
				return nil, fmt.Errorf("unmarshal step conditions: %w", err)
			}
		}
		if actionConfigJSON != nil {
			if err := json.Unmarshal(actionConfigJSON, &step.ActionConfig); err != nil {
				return nil, fmt.Errorf("unmarshal action config: %w", err)
			}
		}

		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func insertStep(ctx context.Context, tx pgx.Tx, step *domain.Step) error {
	conditionsJSON, err := json.Marshal(step.Conditions)
	if err != nil {
		return fmt.Errorf("marshal step conditions: %w", err)
	}
	actionConfigJSON, err := json.Marshal(step.ActionConfig)
	if err != nil {
		return fmt.Errorf("marshal action config: %w", err)
	}

	query := `
		INSERT INTO workflow_steps (
			id, workflow_id, name, action_type, display_order,
			conditions, action_config, retry_count, retry_delay,
			continue_on_error, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, query,
		step.ID,
		step.WorkflowID,
		nullString(step.Name),
		step.ActionType,
		step.DisplayOrder,
		conditionsJSON,
		actionConfigJSON,
		step.RetryCount,
		step.RetryDelay,
		step.ContinueOnError,
		step.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// scanWorkflow сканирует одну строку в Workflow (без шагов).
func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var description, triggerTiming, scheduleCron, webhookSecret *string
	var triggerConfigJSON, watchedFieldsJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.ModuleID,
		&wf.Name,
		&description,
		&wf.IsActive,
		&wf.TriggerType,
		&triggerTiming,
		&triggerConfigJSON,
		&watchedFieldsJSON,
		&wf.DelaySeconds,
		&wf.Priority,
		&wf.MaxExecutionsPerDay,
		&wf.StopOnFirstMatch,
		&wf.RunOncePerRecord,
		&wf.AllowManualTrigger,
		&wf.ExecutionsToday,
		&wf.ExecutionsDate,
		&scheduleCron,
		&wf.NextRunAt,
		&webhookSecret,
		&wf.ExecutionCount,
		&wf.SuccessCount,
		&wf.FailureCount,
		&wf.LastRunAt,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if description != nil {
		wf.Description = *description
	}
	if triggerTiming != nil {
		wf.TriggerTiming = *triggerTiming
	}
	if scheduleCron != nil {
		wf.ScheduleCron = *scheduleCron
	}
	if webhookSecret != nil {
		wf.WebhookSecret = *webhookSecret
	}
	if triggerConfigJSON != nil {
		if err := json.Unmarshal(triggerConfigJSON, &wf.TriggerConfig); err != nil {
			return nil, fmt.Errorf("unmarshal trigger config: %w", err)
		}
	}
	if watchedFieldsJSON != nil {
		if err := json.Unmarshal(watchedFieldsJSON, &wf.WatchedFields); err != nil {
			return nil, fmt.Errorf("unmarshal watched fields: %w", err)
		}
	}

	return &wf, nil
}

func marshalWorkflowJSON(wf *domain.Workflow) (triggerConfig, watchedFields []byte, err error) {
	triggerConfig, err = json.Marshal(wf.TriggerConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal trigger config: %w", err)
	}
	watchedFields, err = json.Marshal(wf.WatchedFields)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal watched fields: %w", err)
	}
	return triggerConfig, watchedFields, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
