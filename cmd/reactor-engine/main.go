// Reactor Engine — сердце автоматизации CRM.
//
// Engine:
//   - Получает события записей CRM из RabbitMQ
//   - Проверяет триггеры активных workflows
//   - Создаёт executions и выполняет их шаги
//   - Публикует события жизненного цикла executions
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Reactor/internal/actions"
	"github.com/shaiso/Reactor/internal/engine"
	"github.com/shaiso/Reactor/internal/events"
	"github.com/shaiso/Reactor/internal/executor"
	"github.com/shaiso/Reactor/internal/mq"
	"github.com/shaiso/Reactor/internal/repo"
	"github.com/shaiso/Reactor/internal/telemetry"
	"github.com/shaiso/Reactor/internal/trigger"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting reactor-engine")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)

	// RabbitMQ. Без него Engine работает в polling-only режиме.
	var mqConn *mq.Connection
	var sink events.Sink = events.NopSink{}

	mqConn, err = mq.NewConnection(mq.URL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		sink = mq.NewLifecycleSink(mq.NewPublisher(mqConn, logger))
	}

	// Выполнение шагов
	exec := executor.New(executor.Config{
		Workflows:  workflowRepo,
		Executions: executionRepo,
		Dispatcher: actions.DefaultDispatcher(),
		Sink:       sink,
		Logger:     logger,
	})

	// Создаём engine
	eng := engine.New(engine.Config{
		Workflows:  workflowRepo,
		Executions: executionRepo,
		Trigger:    trigger.New(trigger.Config{Logger: logger}),
		Executor:   exec,
		Conn:       mqConn,
		Logger:     logger,
	})

	// Запускаем engine
	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8080"
	if v := os.Getenv("ENGINE_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем engine
	eng.Stop()
	logger.Info("reactor-engine stopped")
}
