package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики движка workflow.
var (
	// TriggerChecksTotal — количество проверок триггеров по результату
	// (matched / not_matched).
	TriggerChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactor",
		Name:      "trigger_checks_total",
		Help:      "Trigger evaluations by result.",
	}, []string{"result"})

	// ExecutionsTotal — количество завершённых executions по статусу.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactor",
		Name:      "executions_total",
		Help:      "Finished workflow executions by status.",
	}, []string{"status"})

	// ExecutionDuration — длительность executions в секундах.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reactor",
		Name:      "execution_duration_seconds",
		Help:      "Workflow execution duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	// StepsTotal — количество обработанных шагов по результату
	// (completed / failed / skipped).
	StepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactor",
		Name:      "steps_total",
		Help:      "Processed workflow steps by result.",
	}, []string{"result"})

	// ScheduledExecutionsTotal — количество executions, созданных планировщиком.
	ScheduledExecutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reactor",
		Name:      "scheduled_executions_total",
		Help:      "Executions created by the scheduler.",
	})
)
