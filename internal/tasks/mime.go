package tasks

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/shaiso/Textflow/internal/domain"
)

// MIMESettings — настройки объекта задачи mime.
type MIMESettings struct {
	// ContentType — тип содержимого. Пустой — определяется по данным.
	ContentType string `mapstructure:"content_type"`
}

// MIMETask — упаковка текста в MIME-объект.
//
// Вход in (text), выход out (mime).
type MIMETask struct {
	settings MIMESettings
}

// NewMIMETask создаёт новый MIMETask.
func NewMIMETask(s MIMESettings) *MIMETask {
	return &MIMETask{settings: s}
}

// Type возвращает тип объекта задачи.
func (t *MIMETask) Type() string {
	return TypeMIME
}

// Ports возвращает порты задачи.
func (t *MIMETask) Ports(config map[string]any) (domain.Ports, error) {
	var s MIMESettings
	if err := DecodeSettings(nil, config, &s); err != nil {
		return domain.Ports{}, err
	}
	return domain.Ports{
		Inputs:  []domain.InputPort{{Name: "in", Kinds: domain.KindSet{domain.KindText}}},
		Outputs: []domain.OutputPort{{Name: "out", Kinds: domain.KindSet{domain.KindMIME}}},
	}, nil
}

// Execute упаковывает текст.
func (t *MIMETask) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	s := t.settings
	if err := DecodeSettings(nil, req.Config, &s); err != nil {
		return nil, err
	}

	in, ok := req.Input("in")
	if !ok {
		return nil, fmt.Errorf("%w: in", ErrMissingInput)
	}

	body := []byte(in.First().Text())
	return SingleOutput("out", NewMIMEObject(req.JobID+".out", s.ContentType, body)), nil
}

// NewMIMEObject создаёт MIME-объект. Пустой contentType определяется
// по содержимому.
func NewMIMEObject(name, contentType string, body []byte) *domain.DataObject {
	if contentType == "" {
		contentType = mimetype.Detect(body).String()
	}
	return &domain.DataObject{
		Name: name,
		Kind: domain.KindMIME,
		Data: &domain.MIMEBundle{ContentType: contentType, Body: body},
	}
}
