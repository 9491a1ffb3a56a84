// Package engine связывает транспорт, триггеры и выполнение workflows.
//
// Engine потребляет события записей CRM из очереди records.events,
// проверяет триггеры активных workflows модуля и создаёт executions.
// Готовые executions выполняются по сообщению executions.pending
// или подбираются polling-циклом из БД (fallback при недоступном
// RabbitMQ и страховка от потерянных сообщений).
//
// Структура:
//   - engine.go   — жизненный цикл Engine (Start, Stop, pollLoop)
//   - handlers.go — обработчики сообщений и основная логика
//
// Использование:
//
//	eng := engine.New(engine.Config{
//	    Workflows:  workflowRepo,
//	    Executions: executionRepo,
//	    Trigger:    triggerEval,
//	    Executor:   exec,
//	    Conn:       mqConn,   // опционально
//	    Logger:     logger,
//	})
//
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop()
package engine
