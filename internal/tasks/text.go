package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/Textflow/internal/domain"
)

// SplitSettings — настройки объекта задачи split.
type SplitSettings struct {
	// Separator — разделитель. По умолчанию перевод строки.
	Separator string `mapstructure:"separator"`

	// Trim — обрезать пробелы по краям частей.
	Trim bool `mapstructure:"trim"`

	// SkipEmpty — отбрасывать пустые части.
	SkipEmpty bool `mapstructure:"skip_empty"`
}

// SplitTask — разбиение текста на пакет текстов.
//
// Вход in (text), выход out (пакет text). Каждая часть — отдельный объект
// с именем "<job>.out[<i>]".
type SplitTask struct {
	settings SplitSettings
}

// NewSplitTask создаёт новый SplitTask.
func NewSplitTask(s SplitSettings) *SplitTask {
	return &SplitTask{settings: s}
}

// Type возвращает тип объекта задачи.
func (t *SplitTask) Type() string {
	return TypeSplit
}

func (t *SplitTask) resolve(config map[string]any) (SplitSettings, error) {
	s := t.settings
	if err := DecodeSettings(nil, config, &s); err != nil {
		return s, err
	}
	if s.Separator == "" {
		s.Separator = "\n"
	}
	return s, nil
}

// Ports возвращает порты задачи.
func (t *SplitTask) Ports(config map[string]any) (domain.Ports, error) {
	if _, err := t.resolve(config); err != nil {
		return domain.Ports{}, err
	}
	return domain.Ports{
		Inputs:  []domain.InputPort{{Name: "in", Kinds: domain.KindSet{domain.KindText}}},
		Outputs: []domain.OutputPort{{Name: "out", Kinds: domain.KindSet{domain.KindText}, Batch: true}},
	}, nil
}

// Execute разбивает текст.
func (t *SplitTask) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	s, err := t.resolve(req.Config)
	if err != nil {
		return nil, err
	}

	in, ok := req.Input("in")
	if !ok {
		return nil, fmt.Errorf("%w: in", ErrMissingInput)
	}

	parts := strings.Split(in.First().Text(), s.Separator)
	objs := make([]*domain.DataObject, 0, len(parts))
	for _, part := range parts {
		if s.Trim {
			part = strings.TrimSpace(part)
		}
		if s.SkipEmpty && part == "" {
			continue
		}
		objs = append(objs, domain.NewText(fmt.Sprintf("%s.out[%d]", req.JobID, len(objs)), part))
	}

	return NewResponse(map[string]domain.Value{"out": domain.Batch(objs...)}), nil
}

// JoinSettings — настройки объекта задачи join.
type JoinSettings struct {
	// Separator — разделитель. По умолчанию перевод строки.
	Separator string `mapstructure:"separator"`
}

// JoinTask — склейка пакета текстов в один текст.
//
// Вход in принимает пакет text, в том числе пустой. Выход out (text).
type JoinTask struct {
	settings JoinSettings
}

// NewJoinTask создаёт новый JoinTask.
func NewJoinTask(s JoinSettings) *JoinTask {
	return &JoinTask{settings: s}
}

// Type возвращает тип объекта задачи.
func (t *JoinTask) Type() string {
	return TypeJoin
}

func (t *JoinTask) resolve(config map[string]any) (JoinSettings, error) {
	s := t.settings
	if err := DecodeSettings(nil, config, &s); err != nil {
		return s, err
	}
	if s.Separator == "" {
		s.Separator = "\n"
	}
	return s, nil
}

// Ports возвращает порты задачи.
func (t *JoinTask) Ports(config map[string]any) (domain.Ports, error) {
	if _, err := t.resolve(config); err != nil {
		return domain.Ports{}, err
	}
	return domain.Ports{
		Inputs: []domain.InputPort{{
			Name:              "in",
			Kinds:             domain.KindSet{domain.KindText},
			AcceptsBatch:      true,
			AcceptsEmptyBatch: true,
		}},
		Outputs: []domain.OutputPort{{Name: "out", Kinds: domain.KindSet{domain.KindText}}},
	}, nil
}

// Execute склеивает тексты.
func (t *JoinTask) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	s, err := t.resolve(req.Config)
	if err != nil {
		return nil, err
	}

	in, ok := req.Input("in")
	if !ok {
		return nil, fmt.Errorf("%w: in", ErrMissingInput)
	}

	parts := make([]string, len(in.Objects))
	for i, obj := range in.Objects {
		parts[i] = obj.Text()
	}

	return SingleOutput("out", domain.NewText(req.JobID+".out", strings.Join(parts, s.Separator))), nil
}
