// Package scheduler реализует запуск time_based workflows по расписанию.
//
// Scheduler периодически проверяет активные workflows с истекшим
// next_run_at, создаёт для них executions и сдвигает next_run_at
// по cron-выражению.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, processWorkflow)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Workflows:  workflowRepo,
//	    Executions: executionRepo,
//	    Publisher:  publisher,  // опционально
//	    Logger:     logger,
//	})
//
//	// Вызывается каждый тик (обычно раз в секунду)
//	if err := sched.Tick(ctx); err != nil {
//	    logger.Error("scheduler tick failed", "error", err)
//	}
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Метод Tick() вызывается только лидером.
package scheduler
