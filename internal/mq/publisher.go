package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRecordEvent      MessageType = "record.event"
	MessageTypeExecutionPending MessageType = "execution.pending"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RecordEventPayload — payload события записи CRM.
type RecordEventPayload struct {
	// ModuleID — модуль CRM, в котором произошло событие.
	ModuleID int64 `json:"module_id"`

	// EventType — тип события: record_created, record_updated, record_deleted.
	EventType string `json:"event_type"`

	// RecordID — идентификатор записи в модуле.
	RecordID string `json:"record_id"`

	// Record — данные записи после события.
	Record map[string]any `json:"record,omitempty"`

	// Previous — данные записи до события. Nil для создания.
	Previous map[string]any `json:"previous,omitempty"`

	// IsCreate — true для события создания.
	IsCreate bool `json:"is_create"`
}

// ExecutionPendingPayload — payload для сообщения о новом execution.
type ExecutionPendingPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishRecordEvent публикует событие записи CRM.
// Потребитель: Engine (проверка триггеров).
func (p *Publisher) PublishRecordEvent(ctx context.Context, payload RecordEventPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeRecordEvent,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeRecords, RoutingKeyEvent, msg)
}

// PublishExecutionPending публикует событие о новом execution,
// ожидающем выполнения. Потребитель: Engine.
func (p *Publisher) PublishExecutionPending(ctx context.Context, executionID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionPending,
		Payload:   ExecutionPendingPayload{ExecutionID: executionID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeWorkflows, RoutingKeyPending, msg)
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, exchange, routingKey, msg)
}
