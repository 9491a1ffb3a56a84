package trigger

import (
	"log/slog"
	"strings"

	"github.com/shaiso/Reactor/internal/conditions"
	"github.com/shaiso/Reactor/internal/domain"
)

// RateLimiter — проверка дневного лимита срабатываний workflow.
type RateLimiter interface {
	CanExecuteToday(wf *domain.Workflow) bool
}

// DailyCap — RateLimiter на основе счётчиков самого workflow.
type DailyCap struct {
	clock domain.Clock
}

// NewDailyCap создаёт DailyCap. Nil clock заменяется системным.
func NewDailyCap(clock domain.Clock) *DailyCap {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &DailyCap{clock: clock}
}

// CanExecuteToday возвращает true, если лимит на сегодня не исчерпан.
func (c *DailyCap) CanExecuteToday(wf *domain.Workflow) bool {
	return wf.CanExecuteToday(c.clock.Now())
}

// Evaluator решает, срабатывает ли workflow на событие записи.
type Evaluator struct {
	limiter RateLimiter
	logger  *slog.Logger
}

// Config — конфигурация Evaluator.
type Config struct {
	Limiter RateLimiter  // default: DailyCap с системным clock
	Logger  *slog.Logger // default: slog.Default()
}

// New создаёт новый Evaluator.
func New(cfg Config) *Evaluator {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewDailyCap(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{limiter: limiter, logger: logger}
}

// Event — событие записи, против которого проверяется триггер.
type Event struct {
	// Type — тип события: record_created, record_updated,
	// record_deleted, manual.
	Type string

	// IsCreate — true для события создания записи.
	IsCreate bool

	// Record — данные записи после события.
	Record map[string]any

	// Previous — данные записи до события. Nil для создания.
	Previous map[string]any
}

// ShouldTrigger возвращает true, если workflow должен сработать на событие.
//
// Порядок проверок фиксирован: is_active → дневной лимит → ручной запуск →
// trigger_timing → тип триггера → (для field_changed) изменившиеся поля.
func (e *Evaluator) ShouldTrigger(wf *domain.Workflow, ev Event) bool {
	if !wf.IsActive {
		return false
	}

	if !e.limiter.CanExecuteToday(wf) {
		e.logger.Debug("daily execution limit reached",
			"workflow_id", wf.ID,
			"workflow_name", wf.Name,
		)
		return false
	}

	// Ручной запуск — явное действие пользователя: разрешён для
	// manual-триггеров и workflows с флагом allow_manual_trigger,
	// trigger_timing на него не распространяется.
	if ev.Type == domain.TriggerManual {
		return wf.TriggerType == domain.TriggerManual || wf.AllowManualTrigger
	}

	switch wf.TriggerTiming {
	case domain.TimingCreateOnly:
		if !ev.IsCreate {
			return false
		}
	case domain.TimingUpdateOnly:
		if ev.IsCreate {
			return false
		}
	}

	if wf.TriggerType == ev.Type {
		return true
	}

	// record_saved покрывает и создание, и обновление
	if wf.TriggerType == domain.TriggerRecordSaved &&
		(ev.Type == domain.TriggerRecordCreated || ev.Type == domain.TriggerRecordUpdated) {
		return true
	}

	if wf.TriggerType == domain.TriggerFieldChanged && ev.Type == domain.TriggerRecordUpdated {
		return e.checkFieldChanged(wf, ev)
	}

	return false
}

// checkFieldChanged проверяет, изменилось ли хотя бы одно отслеживаемое
// поле требуемым образом (change_type: any / from_value / to_value / from_to).
func (e *Evaluator) checkFieldChanged(wf *domain.Workflow, ev Event) bool {
	fields := wf.WatchedFieldList()
	if len(fields) == 0 || ev.Previous == nil {
		return false
	}

	changeType := wf.ChangeType()
	fromValue := wf.TriggerConfig["from_value"]
	toValue := wf.TriggerConfig["to_value"]

	for _, field := range fields {
		oldVal := conditions.ResolvePath(ev.Previous, field)
		newVal := conditions.ResolvePath(ev.Record, field)

		// Факт изменения проверяется строго: смена регистра или типа —
		// тоже изменение. Нестрогое сравнение — только для from/to.
		if deepEqual(oldVal, newVal) {
			continue
		}

		switch changeType {
		case domain.ChangeFromValue:
			if compareValues(oldVal, fromValue) {
				return true
			}
		case domain.ChangeToValue:
			if compareValues(newVal, toValue) {
				return true
			}
		case domain.ChangeFromTo:
			if compareValues(oldVal, fromValue) && compareValues(newVal, toValue) {
				return true
			}
		default: // any
			return true
		}
	}

	return false
}

// ChangedFields строит ChangeSet по старому и новому состоянию записи:
// объединение ключей обеих версий, для каждого — пара old/new.
// Изменение определяется строгим сравнением. Без одного из снимков
// diff невозможен — возвращается пустой набор.
func ChangedFields(record, previous map[string]any) conditions.ChangeSet {
	changes := make(conditions.ChangeSet)
	if record == nil || previous == nil {
		return changes
	}

	for field, newVal := range record {
		oldVal, existed := previous[field]
		if existed && deepEqual(oldVal, newVal) {
			continue
		}
		changes[field] = conditions.Change{Old: oldVal, New: newVal}
	}

	for field, oldVal := range previous {
		if _, ok := record[field]; ok {
			continue
		}
		changes[field] = conditions.Change{Old: oldVal, New: nil}
	}

	return changes
}

// compareValues — нестрогое сравнение для классификации from/to
// (факт изменения определяется строгим deepEqual): nil равен только
// nil, строки сравниваются без учёта регистра, числа и числовые строки —
// как числа, bool-ожидание приводит фактическое значение к bool.
func compareValues(actual, expected any) bool {
	if expected == nil {
		return actual == nil
	}
	if actual == nil {
		return false
	}

	if as, aok := actual.(string); aok {
		if es, eok := expected.(string); eok {
			return strings.EqualFold(as, es)
		}
	}

	if af, aok := toFloat(actual); aok {
		if ef, eok := toFloat(expected); eok {
			return af == ef
		}
	}

	if b, ok := expected.(bool); ok {
		ab, aok := actual.(bool)
		return aok && ab == b
	}

	return deepEqual(actual, expected)
}
