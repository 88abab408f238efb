package domain

// JobStatus — статус задачи в пределах одного run.
//
// Жизненный цикл:
//
//	PENDING → READY → RUNNING → SUCCEEDED
//	                          ↘ FAILED
//	PENDING → SKIPPED (упала задача выше по графу или run отменён)
//	PENDING → FAILED  (задача отклонена до выполнения)
type JobStatus string

const (
	// JobStatusPending — задача ждёт своих источников.
	JobStatusPending JobStatus = "PENDING"

	// JobStatusReady — все источники готовы, задача ждёт запуска.
	JobStatusReady JobStatus = "READY"

	// JobStatusRunning — задача выполняется.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — задача выполнена, выходы опубликованы.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — задача завершилась с ошибкой.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusSkipped — задача не запускалась.
	JobStatusSkipped JobStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusSkipped:
		return true
	default:
		return false
	}
}

// IsUnsuccessful возвращает true для FAILED и SKIPPED.
func (s JobStatus) IsUnsuccessful() bool {
	return s == JobStatusFailed || s == JobStatusSkipped
}

// RunStatus — итоговый статус run.
type RunStatus string

const (
	// RunStatusSucceeded — все задачи выполнены.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusPartial — часть задач выполнена, часть упала или пропущена.
	RunStatusPartial RunStatus = "PARTIAL"

	// RunStatusFailed — ни одна задача не выполнена успешно.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusAborted — фатальная ошибка до запуска (цикл, дубли выходов).
	RunStatusAborted RunStatus = "ABORTED"

	// RunStatusCancelled — run отменён.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
// Все статусы run финальные: отчёт строится только по завершении.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusPartial, RunStatusFailed, RunStatusAborted, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseRunStatus парсит строку в RunStatus.
func ParseRunStatus(s string) (RunStatus, bool) {
	status := RunStatus(s)
	return status, status.IsTerminal()
}
