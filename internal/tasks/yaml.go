package tasks

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Textflow/internal/domain"
)

// YAMLTask — разбор YAML (и JSON) текста в дерево.
//
// Вход in (text), выход out (tree). Каждый объект пакета разбирается
// отдельно, поэтому вход и выход принимают пакеты.
type YAMLTask struct{}

// NewYAMLTask создаёт новый YAMLTask.
func NewYAMLTask() *YAMLTask {
	return &YAMLTask{}
}

// Type возвращает тип объекта задачи.
func (t *YAMLTask) Type() string {
	return TypeYAML
}

// Ports возвращает порты задачи.
func (t *YAMLTask) Ports(map[string]any) (domain.Ports, error) {
	return domain.Ports{
		Inputs:  []domain.InputPort{{Name: "in", Kinds: domain.KindSet{domain.KindText}, AcceptsBatch: true}},
		Outputs: []domain.OutputPort{{Name: "out", Kinds: domain.KindSet{domain.KindTree}, Batch: true}},
	}, nil
}

// Execute разбирает текст.
func (t *YAMLTask) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	in, ok := req.Input("in")
	if !ok {
		return nil, fmt.Errorf("%w: in", ErrMissingInput)
	}

	objs := make([]*domain.DataObject, len(in.Objects))
	for i, obj := range in.Objects {
		var tree any
		if err := yaml.Unmarshal([]byte(obj.Text()), &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", obj.Name, err)
		}
		objs[i] = domain.NewTree(obj.Name, tree)
	}

	return NewResponse(map[string]domain.Value{"out": domain.Batch(objs...)}), nil
}
