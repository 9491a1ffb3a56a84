package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Reactor/internal/domain"
	"github.com/shaiso/Reactor/internal/mq"
	"github.com/shaiso/Reactor/internal/repo"
	"github.com/shaiso/Reactor/internal/telemetry"
)

// Scheduler — планировщик, запускающий time_based workflows.
type Scheduler struct {
	workflows  *repo.WorkflowRepo
	executions *repo.ExecutionRepo
	publisher  *mq.Publisher
	clock      domain.Clock
	logger     *slog.Logger
	batchSize  int
}

// Config — конфигурация Scheduler.
type Config struct {
	Workflows  *repo.WorkflowRepo
	Executions *repo.ExecutionRepo
	Publisher  *mq.Publisher // опционально: без него executions заберёт polling
	Clock      domain.Clock  // default: domain.SystemClock
	Logger     *slog.Logger  // default: slog.Default()
	BatchSize  int           // количество workflows за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Scheduler{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		publisher:  cfg.Publisher,
		clock:      clock,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due workflows (is_active, trigger_type=time_based, next_run_at <= now)
// 2. Для каждого создаёт execution в статусе PENDING
// 3. Сдвигает next_run_at по cron-выражению
// 4. Публикует execution.pending в RabbitMQ
//
// Ошибки одного workflow не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.clock.Now()

	workflows, err := s.workflows.ListDueScheduled(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due workflows: %w", err)
	}

	if len(workflows) == 0 {
		return nil
	}

	s.logger.Debug("found due workflows", "count", len(workflows))

	var processed, created int
	for i := range workflows {
		wf := &workflows[i]

		execCreated, err := s.processWorkflow(ctx, wf, now)
		if err != nil {
			s.logger.Error("failed to process scheduled workflow",
				"workflow_id", wf.ID,
				"workflow_name", wf.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if execCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(workflows),
		"processed", processed,
		"executions_created", created,
	)

	return nil
}

// processWorkflow обрабатывает один due workflow.
// Возвращает true, если execution был создан.
func (s *Scheduler) processWorkflow(ctx context.Context, wf *domain.Workflow, now time.Time) (bool, error) {
	// 1. Вычисляем следующее время запуска. Некорректное выражение —
	// next_run_at не трогаем, workflow остаётся в due до исправления.
	nextRun, err := NextDue(wf.ScheduleCron, now)
	if err != nil {
		s.logger.Error("failed to calculate next run",
			"workflow_id", wf.ID,
			"cron", wf.ScheduleCron,
			"error", err,
		)
		return false, nil
	}

	// 2. Дневной лимит: пропускаем запуск, но расписание сдвигаем,
	// иначе workflow останется в due на весь день
	if !wf.CanExecuteToday(now) {
		s.logger.Debug("daily execution limit reached, skipping scheduled run",
			"workflow_id", wf.ID,
		)
		wf.NextRunAt = &nextRun
		if err := s.workflows.Save(ctx, wf); err != nil {
			return false, fmt.Errorf("update workflow schedule: %w", err)
		}
		return false, nil
	}

	// 3. Создаём execution
	exec := domain.NewExecution(wf.ID, domain.TriggerTimeBased, map[string]any{
		"scheduled_at": now.UTC().Format(time.RFC3339),
	}, now)

	if err := s.executions.SaveExecution(ctx, exec); err != nil {
		return false, fmt.Errorf("create execution: %w", err)
	}

	// 4. Обновляем счётчики и расписание workflow
	wf.IncrementTodayExecutions(now)
	wf.NextRunAt = &nextRun
	if err := s.workflows.Save(ctx, wf); err != nil {
		return false, fmt.Errorf("update workflow schedule: %w", err)
	}

	telemetry.ScheduledExecutionsTotal.Inc()

	s.logger.Info("created scheduled execution",
		"execution_id", exec.ID,
		"workflow_id", wf.ID,
		"workflow_name", wf.Name,
		"next_run_at", nextRun,
	)

	// 5. Публикуем событие в RabbitMQ (если publisher настроен)
	if s.publisher != nil {
		if err := s.publisher.PublishExecutionPending(ctx, exec.ID); err != nil {
			// Не фатальная ошибка — execution уже создан в БД,
			// Engine может забрать его через polling
			s.logger.Warn("failed to publish execution.pending",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	return true, nil
}
