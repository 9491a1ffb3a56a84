// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//   - sink.go       — публикация событий жизненного цикла (events.Sink)
//
// Типы сообщений:
//   - record.event       — событие записи CRM (создание/обновление/удаление)
//   - execution.pending  — новый execution ожидает выполнения
//   - step.executed, step.failed, workflow.completed, workflow.failed —
//     события жизненного цикла execution
//
// Exchanges:
//   - reactor.records    — события записей CRM
//   - reactor.workflows  — executions и события жизненного цикла
//   - reactor.dlq        — dead letter queue
package mq
