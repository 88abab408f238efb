package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Textflow/internal/domain"
)

// SleepSettings — настройки объекта задачи sleep.
type SleepSettings struct {
	// Duration — задержка, например "250ms".
	Duration time.Duration `mapstructure:"duration" validate:"gte=0"`

	// Fail — завершиться ошибкой после задержки.
	Fail bool `mapstructure:"fail"`

	// Message — текст ошибки при Fail или текст выхода.
	Message string `mapstructure:"message"`
}

// SleepTask — задержка с опциональной ошибкой.
//
// Нужна для проверки планировщика: параллелизма, отмены и распространения
// ошибок. Поддерживает graceful shutdown через context cancellation.
//
// Настройки:
//
//	{
//	    "duration": "100ms",
//	    "fail": false,
//	    "message": "done"
//	}
//
// Вход in необязателен и принимает что угодно. Выход out (text) содержит
// message или ID задачи.
type SleepTask struct {
	settings SleepSettings
}

// NewSleepTask создаёт новый SleepTask.
func NewSleepTask(s SleepSettings) *SleepTask {
	return &SleepTask{settings: s}
}

// Type возвращает тип объекта задачи.
func (t *SleepTask) Type() string {
	return TypeSleep
}

func (t *SleepTask) resolve(config map[string]any) (SleepSettings, error) {
	s := t.settings
	if err := DecodeSettings(nil, config, &s); err != nil {
		return s, err
	}
	return s, nil
}

// Ports возвращает порты задачи.
func (t *SleepTask) Ports(config map[string]any) (domain.Ports, error) {
	if _, err := t.resolve(config); err != nil {
		return domain.Ports{}, err
	}
	return domain.Ports{
		Inputs: []domain.InputPort{{
			Name:              "in",
			AcceptsBatch:      true,
			AcceptsEmptyBatch: true,
			Optional:          true,
		}},
		Outputs: []domain.OutputPort{{Name: "out", Kinds: domain.KindSet{domain.KindText}}},
	}, nil
}

// Execute выполняет задержку.
func (t *SleepTask) Execute(ctx context.Context, req *Request) (*Response, error) {
	s, err := t.resolve(req.Config)
	if err != nil {
		return nil, err
	}

	if s.Duration > 0 {
		// Создаём таймер
		timer := time.NewTimer(s.Duration)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			// Контекст отменён — graceful shutdown
			return nil, fmt.Errorf("%w: %v", ErrTaskCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	if s.Fail {
		msg := s.Message
		if msg == "" {
			msg = "sleep task configured to fail"
		}
		return nil, fmt.Errorf("%w: %s", ErrForcedFailure, msg)
	}

	text := s.Message
	if text == "" {
		text = req.JobID
	}
	return SingleOutput("out", domain.NewText(req.JobID+".out", text)), nil
}
