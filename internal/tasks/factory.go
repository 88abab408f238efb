package tasks

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Типы встроенных объектов задач.
const (
	TypeTemplate    = "template"
	TypeSplit       = "split"
	TypeJoin        = "join"
	TypeYAML        = "yaml"
	TypeMIME        = "mime"
	TypePassthrough = "passthrough"
	TypeSleep       = "sleep"
)

// Constructor создаёт объект задачи из настроек.
type Constructor func(settings map[string]any) (Task, error)

// Factory — фабрика объектов задач по типу.
//
// Определение workflow описывает объекты задач как тип плюс настройки;
// фабрика превращает такое описание в Task.
type Factory struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewFactory создаёт фабрику со встроенными типами.
func NewFactory() *Factory {
	f := &Factory{ctors: make(map[string]Constructor)}

	f.Register(TypeTemplate, func(settings map[string]any) (Task, error) {
		var s TemplateSettings
		if err := DecodeSettings(settings, nil, &s); err != nil {
			return nil, err
		}
		return NewTemplateTask(s), nil
	})
	f.Register(TypeSplit, func(settings map[string]any) (Task, error) {
		var s SplitSettings
		if err := DecodeSettings(settings, nil, &s); err != nil {
			return nil, err
		}
		return NewSplitTask(s), nil
	})
	f.Register(TypeJoin, func(settings map[string]any) (Task, error) {
		var s JoinSettings
		if err := DecodeSettings(settings, nil, &s); err != nil {
			return nil, err
		}
		return NewJoinTask(s), nil
	})
	f.Register(TypeYAML, func(map[string]any) (Task, error) {
		return NewYAMLTask(), nil
	})
	f.Register(TypeMIME, func(settings map[string]any) (Task, error) {
		var s MIMESettings
		if err := DecodeSettings(settings, nil, &s); err != nil {
			return nil, err
		}
		return NewMIMETask(s), nil
	})
	f.Register(TypePassthrough, func(settings map[string]any) (Task, error) {
		var s PassthroughSettings
		if err := DecodeSettings(settings, nil, &s); err != nil {
			return nil, err
		}
		return NewPassthroughTask(s), nil
	})
	f.Register(TypeSleep, func(settings map[string]any) (Task, error) {
		var s SleepSettings
		if err := DecodeSettings(settings, nil, &s); err != nil {
			return nil, err
		}
		return NewSleepTask(s), nil
	})

	return f
}

// Register регистрирует конструктор типа.
func (f *Factory) Register(typ string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[typ] = ctor
}

// Has проверяет, зарегистрирован ли тип.
func (f *Factory) Has(typ string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ctors[typ]
	return ok
}

// Build создаёт объект задачи заданного типа.
func (f *Factory) Build(typ string, settings map[string]any) (Task, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[typ]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}

	task, err := ctor(settings)
	if err != nil {
		return nil, fmt.Errorf("build %s task: %w", typ, err)
	}
	return task, nil
}

// Types возвращает зарегистрированные типы в лексическом порядке.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.ctors))
	for t := range f.ctors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

var validate = validator.New()

// DecodeSettings декодирует настройки объекта задачи в структуру out.
//
// overrides (конфигурация задачи) накладываются поверх base (настройки
// объекта). После декодирования структура проверяется по тегам validate.
// Все ошибки оборачивают ErrInvalidConfig.
func DecodeSettings(base, overrides map[string]any, out any) error {
	merged := make(map[string]any, len(base)+len(overrides))
	maps.Copy(merged, base)
	maps.Copy(merged, overrides)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := decoder.Decode(merged); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}
