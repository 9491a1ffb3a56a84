package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
//
// Из PENDING допустим и прямой переход в COMPLETED/FAILED: execution
// без шагов завершается сразу, а execution, чьё определение не
// загрузилось, падает не начав выполняться. Терминальный статус
// назначается ровно один раз: повторный переход из
// COMPLETED/FAILED/CANCELLED запрещён.
type ExecutionStatus string

const (
	// ExecutionStatusPending — execution создан, но ещё не начал выполняться.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — execution в процессе выполнения.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusCompleted — все шаги выполнены (или пропущены).
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"

	// ExecutionStatusFailed — execution завершился с ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"

	// ExecutionStatusCancelled — execution отменён извне.
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (execution завершён).
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo возвращает true, если переход в статус next допустим.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning ||
			next == ExecutionStatusCompleted ||
			next == ExecutionStatusFailed ||
			next == ExecutionStatusCancelled
	case ExecutionStatusRunning:
		return next == ExecutionStatusCompleted ||
			next == ExecutionStatusFailed ||
			next == ExecutionStatusCancelled
	default:
		return false
	}
}

// StepLogStatus — статус записи журнала шага.
//
// Жизненный цикл:
//
//	PENDING → STARTED → COMPLETED
//	                  ↘ FAILED
//	        (или) → SKIPPED (условия шага не выполнены)
type StepLogStatus string

const (
	// StepLogStatusPending — запись создана, шаг ожидает выполнения.
	StepLogStatusPending StepLogStatus = "PENDING"

	// StepLogStatusStarted — шаг передан обработчику действия.
	StepLogStatusStarted StepLogStatus = "STARTED"

	// StepLogStatusCompleted — шаг успешно выполнен.
	StepLogStatusCompleted StepLogStatus = "COMPLETED"

	// StepLogStatusFailed — обработчик действия вернул ошибку.
	StepLogStatusFailed StepLogStatus = "FAILED"

	// StepLogStatusSkipped — шаг пропущен по условиям.
	StepLogStatusSkipped StepLogStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s StepLogStatus) IsTerminal() bool {
	switch s {
	case StepLogStatusCompleted, StepLogStatusFailed, StepLogStatusSkipped:
		return true
	default:
		return false
	}
}
