package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeRecords   Exchange = "reactor.records"
	ExchangeWorkflows Exchange = "reactor.workflows"
	ExchangeDLQ       Exchange = "reactor.dlq"
)

// Queues — имена очередей.
const (
	QueueRecordEvents      Queue = "records.events"
	QueueExecutionsPending Queue = "executions.pending"
	QueueLifecycle         Queue = "workflows.lifecycle"
	QueueRetries           Queue = "workflows.retries"
	QueueDLQRecords        Queue = "dlq.records"
)

// Routing keys.
const (
	RoutingKeyEvent      RoutingKey = "event"
	RoutingKeyPending    RoutingKey = "pending"
	RoutingKeyLifecycle  RoutingKey = "lifecycle"
	RoutingKeyRetry      RoutingKey = "retry"
	RoutingKeyDLQRecords RoutingKey = "records"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeRecords, "direct"},
		{ExchangeWorkflows, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQRecords),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// records.events — с DLQ (событие записи может уходить в DLQ после retry)
		{QueueRecordEvents, dlqArgs},

		// executions.pending — без DLQ (execution обрабатывается один раз)
		{QueueExecutionsPending, nil},

		// workflows.lifecycle — без DLQ (события для внешних потребителей)
		{QueueLifecycle, nil},

		// workflows.retries — уведомления о повторных попытках шагов
		{QueueRetries, nil},

		// dlq.records — сама DLQ очередь
		{QueueDLQRecords, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueRecordEvents, RoutingKeyEvent, ExchangeRecords},
		{QueueExecutionsPending, RoutingKeyPending, ExchangeWorkflows},
		{QueueLifecycle, RoutingKeyLifecycle, ExchangeWorkflows},
		{QueueRetries, RoutingKeyRetry, ExchangeWorkflows},
		{QueueDLQRecords, RoutingKeyDLQRecords, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Reactor RabbitMQ Topology:

    reactor.records (direct)
    └── records.events [routing: event]
            Consumer: Engine (trigger evaluation)
            DLQ: dlq.records

    reactor.workflows (direct)
    ├── executions.pending [routing: pending]
    │       Consumer: Engine (execution)
    ├── workflows.lifecycle [routing: lifecycle]
    │       Consumer: external systems
    └── workflows.retries [routing: retry]
            Consumer: external systems (retry monitoring)

    reactor.dlq (direct)
    └── dlq.records [routing: records]
            Manual processing
  `
}
