package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/shaiso/Textflow/internal/domain"
)

// PassthroughSettings — настройки объекта задачи passthrough.
type PassthroughSettings struct {
	// Kinds — допустимые виды. Пустой список — любой вид.
	Kinds []string `mapstructure:"kinds" validate:"dive,required"`
}

// PassthroughTask — передаёт вход на выход без изменений.
//
// Вход in и выход out принимают пакеты. Виды задаются настройкой kinds.
type PassthroughTask struct {
	settings PassthroughSettings
}

// NewPassthroughTask создаёт новый PassthroughTask.
func NewPassthroughTask(s PassthroughSettings) *PassthroughTask {
	return &PassthroughTask{settings: s}
}

// Type возвращает тип объекта задачи.
func (t *PassthroughTask) Type() string {
	return TypePassthrough
}

// Ports возвращает порты задачи.
func (t *PassthroughTask) Ports(config map[string]any) (domain.Ports, error) {
	s := t.settings
	s.Kinds = slices.Clone(s.Kinds)
	if err := DecodeSettings(nil, config, &s); err != nil {
		return domain.Ports{}, err
	}

	kinds := make(domain.KindSet, len(s.Kinds))
	for i, k := range s.Kinds {
		kinds[i] = domain.Kind(k)
	}

	return domain.Ports{
		Inputs:  []domain.InputPort{{Name: "in", Kinds: kinds, AcceptsBatch: true, AcceptsEmptyBatch: true}},
		Outputs: []domain.OutputPort{{Name: "out", Kinds: kinds, Batch: true}},
	}, nil
}

// Execute возвращает вход как есть.
//
// Если потребители сузили вид выхода, каждый объект входа должен
// иметь этот вид: passthrough не преобразует объекты.
func (t *PassthroughTask) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	in, ok := req.Input("in")
	if !ok {
		return nil, fmt.Errorf("%w: in", ErrMissingInput)
	}

	if want := req.OutputKind("out"); !want.IsWildcard() {
		for _, obj := range in.Objects {
			if obj.Kind != want {
				return nil, fmt.Errorf("%w: object %s has kind %s, consumers of out need %s",
					ErrKindNotProduced, obj.Name, obj.Kind, want)
			}
		}
	}

	return NewResponse(map[string]domain.Value{"out": in}), nil
}
