package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Textflow/internal/domain"
)

// Структурные ошибки workflow. Фатальны: run прерывается до запуска задач.
var (
	// ErrEmptyJobID — задача не имеет ID.
	ErrEmptyJobID = errors.New("job has empty ID")

	// ErrDuplicateJobID — несколько задач с одинаковым ID.
	ErrDuplicateJobID = errors.New("duplicate job ID")

	// ErrEmptyTaskRef — задача не ссылается на объект задачи.
	ErrEmptyTaskRef = errors.New("job has no task object")

	// ErrInvalidSource — источник входа заполнен некорректно.
	ErrInvalidSource = errors.New("invalid input source")

	// ErrInvalidClaim — заявка выхода заполнена некорректно.
	ErrInvalidClaim = errors.New("invalid output claim")

	// ErrGraphHasCycle — обнаружен цикл в зависимостях задач.
	ErrGraphHasCycle = errors.New("graph has cycle")

	// ErrDuplicateMainOutput — главный выход заявлен дважды.
	ErrDuplicateMainOutput = errors.New("multiple definition of main output")

	// ErrDuplicateNamedOutput — именованный выход заявлен дважды.
	ErrDuplicateNamedOutput = errors.New("multiple definition of named output")
)

// Ошибки задачи. Задача становится FAILED, остальной граф продолжает работу.
var (
	// ErrTaskNotFound — объект задачи не найден в реестре.
	ErrTaskNotFound = errors.New("task object not found")

	// ErrInvalidTaskConfig — объект задачи отверг конфигурацию задачи.
	ErrInvalidTaskConfig = errors.New("invalid task config")

	// ErrInvalidPorts — объект задачи объявил некорректные порты.
	ErrInvalidPorts = domain.ErrInvalidPorts

	// ErrUnknownInput — привязка к входу, которого нет у задачи.
	ErrUnknownInput = errors.New("unknown input")

	// ErrUnknownOutput — заявка выхода, которого нет у задачи.
	ErrUnknownOutput = errors.New("unknown output")

	// ErrUnspecifiedInput — обязательный вход не привязан.
	ErrUnspecifiedInput = errors.New("unspecified input")

	// ErrExternalInputNotFound — внешний объект не найден.
	ErrExternalInputNotFound = errors.New("external input not found")

	// ErrSourceObjectNotFound — источник ссылается на несуществующую задачу или выход.
	ErrSourceObjectNotFound = errors.New("source object not found")

	// ErrKindMismatch — вид объекта не подходит входу.
	ErrKindMismatch = errors.New("kind mismatch")

	// ErrBatchCardinalityMismatch — пакет передан во вход, не принимающий пакеты.
	ErrBatchCardinalityMismatch = errors.New("batch cardinality mismatch")

	// ErrNoCommonKindSolution — у потребителей значения нет общего вида.
	ErrNoCommonKindSolution = errors.New("no common kind solution")

	// ErrUnclaimedOutput — обязательный выход ни к чему не привязан.
	ErrUnclaimedOutput = errors.New("unclaimed output")

	// ErrTaskExecutionFailure — задача вернула ошибку при выполнении.
	ErrTaskExecutionFailure = errors.New("task execution failure")

	// ErrMissingOutput — задача не вернула выход, который кому-то нужен.
	ErrMissingOutput = errors.New("missing output")

	// ErrUnexpectedOutput — задача вернула выход, которого не объявляла.
	ErrUnexpectedOutput = errors.New("unexpected output")

	// ErrUpstreamFailed — задача пропущена из-за ошибки выше по графу.
	ErrUpstreamFailed = errors.New("error in child task")

	// ErrRunCancelled — задача пропущена, потому что run отменён.
	ErrRunCancelled = errors.New("run cancelled")
)

// JobError — ошибка конкретной задачи с контекстом.
type JobError struct {
	JobID   string // ID задачи, к которой относится ошибка
	Task    string // имя объекта задачи
	Port    string // порт, вызвавший ошибку (если есть)
	Object  string // имя связанного объекта или источника (если есть)
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *JobError) Error() string {
	if e.JobID != "" {
		return "Job " + e.JobID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError создаёт новую ошибку задачи.
func NewJobError(jobID, port, message string, err error) *JobError {
	return &JobError{
		JobID:   jobID,
		Port:    port,
		Message: message,
		Err:     err,
	}
}

// CycleError — цикл в графе зависимостей.
type CycleError struct {
	// Jobs — задачи, лежащие на цикле, в порядке объявления. Задачи
	// ниже цикла сюда не входят.
	Jobs []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return "Graph has cycle between jobs: " + strings.Join(e.Jobs, ", ")
}

// Unwrap возвращает ErrGraphHasCycle.
func (e *CycleError) Unwrap() error {
	return ErrGraphHasCycle
}

// DuplicateOutputError — повторная заявка на выход workflow.
type DuplicateOutputError struct {
	// Name — имя именованного выхода; пустое для главного выхода.
	Name string

	// First, Second — первые две задачи, заявившие выход, по порядку объявления.
	First  string
	Second string
}

// Error реализует интерфейс error.
func (e *DuplicateOutputError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("Multiple definition of main output; first defined in job %s and second in job %s",
			e.First, e.Second)
	}
	return fmt.Sprintf("Multiple definition of output %q; first defined in job %s and second in job %s",
		e.Name, e.First, e.Second)
}

// Unwrap возвращает ErrDuplicateMainOutput или ErrDuplicateNamedOutput.
func (e *DuplicateOutputError) Unwrap() error {
	if e.Name == "" {
		return ErrDuplicateMainOutput
	}
	return ErrDuplicateNamedOutput
}

// StructureError — структурная ошибка workflow с контекстом.
type StructureError struct {
	JobID   string
	Field   string
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (e *StructureError) Error() string {
	if e.JobID != "" {
		return "job " + e.JobID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *StructureError) Unwrap() error {
	return e.Err
}

// IsFatal проверяет, прерывает ли ошибка весь run.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrGraphHasCycle),
		errors.Is(err, ErrDuplicateMainOutput),
		errors.Is(err, ErrDuplicateNamedOutput),
		errors.Is(err, ErrEmptyJobID),
		errors.Is(err, ErrDuplicateJobID),
		errors.Is(err, ErrEmptyTaskRef),
		errors.Is(err, ErrInvalidSource),
		errors.Is(err, ErrInvalidClaim):
		return true
	default:
		return false
	}
}
