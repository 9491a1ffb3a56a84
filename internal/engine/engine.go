package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Reactor/internal/domain"
	"github.com/shaiso/Reactor/internal/executor"
	"github.com/shaiso/Reactor/internal/mq"
	"github.com/shaiso/Reactor/internal/repo"
	"github.com/shaiso/Reactor/internal/trigger"
)

// Engine — центральный сервис: триггеры и выполнение workflows.
type Engine struct {
	workflows  *repo.WorkflowRepo
	executions *repo.ExecutionRepo
	trigger    *trigger.Evaluator
	executor   *executor.Executor
	conn       *mq.Connection
	clock      domain.Clock
	logger     *slog.Logger

	pollInterval time.Duration
	pollBatch    int

	recordConsumer  *mq.Consumer
	pendingConsumer *mq.Consumer

	// active — executions, находящиеся в обработке прямо сейчас.
	// Защищает от двойного запуска, когда одно и то же execution
	// приходит и из очереди, и из polling-цикла.
	mu     sync.Mutex
	active map[uuid.UUID]struct{}

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Engine.
type Config struct {
	Workflows  *repo.WorkflowRepo
	Executions *repo.ExecutionRepo
	Trigger    *trigger.Evaluator
	Executor   *executor.Executor

	// Conn — соединение с RabbitMQ. Nil — Engine работает
	// только на polling-цикле.
	Conn *mq.Connection

	Clock  domain.Clock // default: domain.SystemClock
	Logger *slog.Logger // default: slog.Default()

	// PollInterval — интервал polling-цикла (default: 5s).
	PollInterval time.Duration

	// PollBatch — количество pending executions за один проход (default: 50).
	PollBatch int
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	pollBatch := cfg.PollBatch
	if pollBatch <= 0 {
		pollBatch = 50
	}

	return &Engine{
		workflows:    cfg.Workflows,
		executions:   cfg.Executions,
		trigger:      cfg.Trigger,
		executor:     cfg.Executor,
		conn:         cfg.Conn,
		clock:        clock,
		logger:       logger,
		pollInterval: pollInterval,
		pollBatch:    pollBatch,
		active:       make(map[uuid.UUID]struct{}),
	}
}

// Start запускает Engine: consumers для records.events и
// executions.pending (если настроен RabbitMQ) и polling-цикл.
// Не блокирует.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	if e.conn != nil {
		e.recordConsumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:   string(mq.QueueRecordEvents),
			Handler: e.handleRecordEvent,
		})
		e.pendingConsumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:   string(mq.QueueExecutionsPending),
			Handler: e.handleExecutionPending,
		})

		e.wg.Add(2)
		go func() {
			defer e.wg.Done()
			if err := e.recordConsumer.Start(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("record events consumer stopped", "error", err)
			}
		}()
		go func() {
			defer e.wg.Done()
			if err := e.pendingConsumer.Start(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("pending executions consumer stopped", "error", err)
			}
		}()
	} else {
		e.logger.Warn("rabbitmq not configured, running in polling-only mode")
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()

	e.logger.Info("engine started",
		"poll_interval", e.pollInterval,
		"mq_enabled", e.conn != nil,
	)

	return nil
}

// Stop останавливает Engine и дожидается завершения обработчиков.
func (e *Engine) Stop() {
	if e.cancelFunc != nil {
		e.cancelFunc()
	}
	if e.recordConsumer != nil {
		e.recordConsumer.Stop()
	}
	if e.pendingConsumer != nil {
		e.pendingConsumer.Stop()
	}
	e.wg.Wait()
	e.logger.Info("engine stopped")
}

// pollLoop периодически подбирает pending executions из БД.
// Работает как fallback: при живом RabbitMQ почти все executions
// приходят через consumer раньше, чем их увидит polling.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll обрабатывает партию pending executions.
func (e *Engine) poll(ctx context.Context) {
	pending, err := e.executions.ListPending(ctx, e.pollBatch)
	if err != nil {
		e.logger.Error("failed to list pending executions", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	e.logger.Debug("polling picked up pending executions", "count", len(pending))

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		e.processExecution(ctx, &pending[i])
	}
}

// tryAcquire помечает execution как обрабатываемое.
// Возвращает false, если оно уже в работе.
func (e *Engine) tryAcquire(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.active[id]; busy {
		return false
	}
	e.active[id] = struct{}{}
	return true
}

// release снимает пометку обработки.
func (e *Engine) release(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, id)
}
