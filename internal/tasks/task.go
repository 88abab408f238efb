package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Textflow/internal/domain"
)

// Ошибки объектов задач.
var (
	// ErrTaskNotFound — объект задачи не найден в реестре.
	ErrTaskNotFound = errors.New("task object not found")

	// ErrUnknownType — тип объекта задачи не зарегистрирован в фабрике.
	ErrUnknownType = errors.New("unknown task type")

	// ErrInvalidConfig — невалидные настройки объекта задачи.
	ErrInvalidConfig = errors.New("invalid task config")

	// ErrMissingInput — задача не получила нужный вход.
	ErrMissingInput = errors.New("missing input")

	// ErrTaskCancelled — выполнение задачи отменено.
	ErrTaskCancelled = errors.New("task execution cancelled")

	// ErrForcedFailure — задача завершилась ошибкой по настройке fail.
	ErrForcedFailure = errors.New("forced failure")

	// ErrKindNotProduced — задача не может выдать опубликованный вид выхода.
	ErrKindNotProduced = errors.New("published kind cannot be produced")
)

// Task — интерфейс объекта задачи.
//
// Объект задачи неизменяем и разделяется всеми задачами workflow, которые
// на него ссылаются. Конфигурация конкретной задачи передаётся в Ports и
// в Request.Config и может переопределять настройки объекта.
type Task interface {
	// Type возвращает тип объекта задачи.
	Type() string

	// Ports возвращает входы и выходы для конфигурации задачи.
	Ports(config map[string]any) (domain.Ports, error)

	// Execute выполняет задачу.
	// Задача должна проверять ctx.Done(), если выполняется долго.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Request — входные данные для выполнения задачи.
type Request struct {
	// JobID — идентификатор задачи в workflow.
	JobID string

	// Config — конфигурация задачи.
	Config map[string]any

	// Inputs — значения входов по имени порта.
	// Непривязанные необязательные входы отсутствуют.
	Inputs map[string]domain.Value

	// OutputKinds — виды, опубликованные для выходов задачи.
	// KindAny — подходит любой вид из объявления порта.
	OutputKinds map[string]domain.Kind
}

// Input возвращает значение входа.
func (r *Request) Input(name string) (domain.Value, bool) {
	v, ok := r.Inputs[name]
	return v, ok
}

// OutputKind возвращает опубликованный вид выхода или KindAny.
func (r *Request) OutputKind(name string) domain.Kind {
	if k, ok := r.OutputKinds[name]; ok {
		return k
	}
	return domain.KindAny
}

// Response — результат выполнения задачи.
type Response struct {
	// Outputs — значения выходов по имени порта.
	Outputs map[string]domain.Value
}

// NewResponse создаёт новый Response с outputs.
func NewResponse(outputs map[string]domain.Value) *Response {
	if outputs == nil {
		outputs = make(map[string]domain.Value)
	}
	return &Response{
		Outputs: outputs,
	}
}

// SingleOutput возвращает Response с одним объектом на выходе port.
func SingleOutput(port string, obj *domain.DataObject) *Response {
	return NewResponse(map[string]domain.Value{port: domain.Single(obj)})
}

// checkCancelled возвращает ErrTaskCancelled, если контекст отменён.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTaskCancelled, ctx.Err())
	default:
		return nil
	}
}
