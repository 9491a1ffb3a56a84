package mq

import (
	"context"

	"github.com/shaiso/Reactor/internal/events"
)

// LifecycleSink публикует события жизненного цикла execution
// в очередь workflows.lifecycle. Реализует events.Sink.
type LifecycleSink struct {
	publisher *Publisher
}

// NewLifecycleSink создаёт новый LifecycleSink.
func NewLifecycleSink(publisher *Publisher) *LifecycleSink {
	return &LifecycleSink{publisher: publisher}
}

// Publish публикует событие жизненного цикла. Тип сообщения —
// вид события (step.executed, workflow.failed, ...).
//
// Падения шагов с назначенной повторной попыткой дублируются
// в workflows.retries для мониторинга.
func (s *LifecycleSink) Publish(ctx context.Context, ev events.Event) error {
	if sf, ok := ev.(events.StepFailed); ok && sf.WillRetry {
		if err := s.publisher.PublishJSON(
			ctx,
			ExchangeWorkflows,
			RoutingKeyRetry,
			MessageType(ev.Kind()),
			ev,
		); err != nil {
			return err
		}
	}

	return s.publisher.PublishJSON(
		ctx,
		ExchangeWorkflows,
		RoutingKeyLifecycle,
		MessageType(ev.Kind()),
		ev,
	)
}
