package tasks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Textflow/internal/domain"
)

// Registry — реестр именованных объектов задач.
//
// Задачи workflow ссылаются на объекты задач по имени.
// Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]Task),
	}
}

// DefaultRegistry создаёт реестр со встроенными объектами задач,
// зарегистрированными под именами своих типов с настройками по умолчанию.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(TypeTemplate, NewTemplateTask(TemplateSettings{}))
	r.Register(TypeSplit, NewSplitTask(SplitSettings{}))
	r.Register(TypeJoin, NewJoinTask(JoinSettings{}))
	r.Register(TypeYAML, NewYAMLTask())
	r.Register(TypeMIME, NewMIMETask(MIMESettings{}))
	r.Register(TypePassthrough, NewPassthroughTask(PassthroughSettings{}))
	r.Register(TypeSleep, NewSleepTask(SleepSettings{}))

	return r
}

// Register регистрирует объект задачи под именем.
// Если объект с таким именем уже существует, он будет перезаписан.
func (r *Registry) Register(name string, task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = task
}

// Get возвращает объект задачи по имени.
// Возвращает ErrTaskNotFound, если объект не найден.
func (r *Registry) Get(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}

	return task, nil
}

// Has проверяет, зарегистрирован ли объект задачи.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tasks[name]
	return exists
}

// PortsOf возвращает порты объекта задачи для конфигурации задачи.
func (r *Registry) PortsOf(name string, config map[string]any) (domain.Ports, error) {
	task, err := r.Get(name)
	if err != nil {
		return domain.Ports{}, err
	}
	return task.Ports(config)
}

// Names возвращает имена всех объектов задач в лексическом порядке.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных объектов задач.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Unregister удаляет объект задачи из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, name)
}

// Clone возвращает копию реестра.
// Используется, чтобы добавить объекты задач одного определения,
// не меняя общий реестр.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := NewRegistry()
	for name, task := range r.tasks {
		clone.tasks[name] = task
	}
	return clone
}
