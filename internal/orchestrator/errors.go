package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrNilWorkflow — Run вызван без workflow.
	ErrNilWorkflow = errors.New("workflow is nil")

	// ErrInvalidTransition — недопустимый переход состояния задачи.
	ErrInvalidTransition = errors.New("invalid job state transition")

	// ErrUnknownJob — задача не найдена в состоянии run.
	ErrUnknownJob = errors.New("unknown job")

	// ErrRecursiveWorkflow — вложенный workflow включает сам себя.
	ErrRecursiveWorkflow = errors.New("recursive workflow")

	// ErrSaveRun — запись о run не сохранена.
	ErrSaveRun = errors.New("save run")
)
