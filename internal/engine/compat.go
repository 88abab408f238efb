package engine

import (
	"fmt"
	"strings"

	"github.com/shaiso/Textflow/internal/domain"
)

// IsCompatible проверяет, можно ли передать значение во входной порт.
func IsCompatible(v domain.Value, port domain.InputPort) bool {
	return CheckInput(v, port) == nil
}

// CheckInput проверяет значение против входного порта.
//
// Правила:
//   - одиночный объект (и пакет из одного объекта) совместим всегда,
//     если подходит вид;
//   - пакет из нескольких объектов совместим только с AcceptsBatch;
//   - пустой пакет совместим только с AcceptsEmptyBatch;
//   - вид каждого объекта должен удовлетворять ограничению порта.
//
// Возвращает *JobError без JobID: его заполняет вызывающий код.
func CheckInput(v domain.Value, port domain.InputPort) *JobError {
	if v.IsEmpty() && !port.AcceptsEmptyBatch {
		return &JobError{
			Port:    port.Name,
			Message: fmt.Sprintf("Input %s: empty batch is not accepted.", port.Name),
			Err:     ErrBatchCardinalityMismatch,
		}
	}

	if v.IsMultiple() && !port.AcceptsBatch {
		return &JobError{
			Port:    port.Name,
			Message: fmt.Sprintf("Input %s: Temporary output is a batch but the input does not accept batch.", port.Name),
			Err:     ErrBatchCardinalityMismatch,
		}
	}

	for _, obj := range v.Objects {
		if !port.Kinds.Accepts(obj.Kind) {
			return &JobError{
				Port:    port.Name,
				Object:  obj.Name,
				Message: fmt.Sprintf("Input %s: object kind %s is not accepted (accepts %s).", port.Name, obj.Kind, formatKinds(port.Kinds)),
				Err:     ErrKindMismatch,
			}
		}
	}

	return nil
}

// CheckOutput проверяет значение, которое задача вернула на выходной порт.
//
// published — вид, опубликованный для этого значения при разрешении
// привязок. KindAny означает, что подходит любой вид из объявления порта.
func CheckOutput(v domain.Value, port domain.OutputPort, published domain.Kind) *JobError {
	if v.IsMultiple() && !port.Batch {
		return &JobError{
			Port:    port.Name,
			Message: fmt.Sprintf("Output %s: task produced a batch of %d objects but the output is not a batch.", port.Name, v.Len()),
			Err:     ErrBatchCardinalityMismatch,
		}
	}

	for _, obj := range v.Objects {
		if obj == nil {
			return &JobError{
				Port:    port.Name,
				Message: fmt.Sprintf("Output %s: task produced a nil object.", port.Name),
				Err:     ErrMissingOutput,
			}
		}

		ok := port.Kinds.Accepts(obj.Kind)
		if !published.IsWildcard() {
			ok = ok && obj.Kind == published
		}
		if !ok {
			expected := published.String()
			if published.IsWildcard() {
				expected = formatKinds(port.Kinds)
			}
			return &JobError{
				Port:    port.Name,
				Object:  obj.Name,
				Message: fmt.Sprintf("Output %s: produced kind %s, expected %s.", port.Name, obj.Kind, expected),
				Err:     ErrKindMismatch,
			}
		}
	}

	return nil
}

// formatKinds форматирует ограничение для сообщений.
func formatKinds(kinds domain.KindSet) string {
	if kinds.IsWildcard() {
		return string(domain.KindAny)
	}
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
