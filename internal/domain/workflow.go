package domain

import "fmt"

// SourceType — тип источника данных для входа задачи.
type SourceType string

const (
	// SourceExternal — объект из внешнего набора по имени.
	SourceExternal SourceType = "external"

	// SourceJob — выход другой задачи workflow.
	SourceJob SourceType = "job"
)

// Source — источник значения для входного порта.
//
// Размеченное объединение: для SourceExternal заполнено Name,
// для SourceJob — JobID и Port.
type Source struct {
	Type  SourceType `json:"type"`
	Name  string     `json:"name,omitempty"`
	JobID string     `json:"job_id,omitempty"`
	Port  string     `json:"port,omitempty"`
}

// External создаёт ссылку на внешний объект.
func External(name string) Source {
	return Source{Type: SourceExternal, Name: name}
}

// JobOutput создаёт ссылку на выход другой задачи.
func JobOutput(jobID, port string) Source {
	return Source{Type: SourceJob, JobID: jobID, Port: port}
}

// IsExternal проверяет, что источник — внешний объект.
func (s Source) IsExternal() bool {
	return s.Type == SourceExternal
}

// IsJob проверяет, что источник — выход задачи.
func (s Source) IsJob() bool {
	return s.Type == SourceJob
}

// Ref возвращает ссылку на выход для источника SourceJob.
func (s Source) Ref() OutputRef {
	return OutputRef{JobID: s.JobID, Port: s.Port}
}

// String возвращает читаемое представление источника.
func (s Source) String() string {
	if s.IsJob() {
		return s.JobID + "." + s.Port
	}
	return "external:" + s.Name
}

// OutputRef — адрес произведённого значения: задача + выходной порт.
type OutputRef struct {
	JobID string `json:"job_id"`
	Port  string `json:"port"`
}

// String возвращает "job.port".
func (r OutputRef) String() string {
	return r.JobID + "." + r.Port
}

// InputRef — адрес входного порта задачи.
type InputRef struct {
	JobID string `json:"job_id"`
	Port  string `json:"port"`
}

// String возвращает "job.port".
func (r InputRef) String() string {
	return r.JobID + "." + r.Port
}

// OutputClaim — заявка выхода задачи на роль выхода workflow.
type OutputClaim struct {
	// Main — выход становится главным выходом workflow.
	Main bool `json:"main,omitempty"`

	// Name — имя именованного выхода workflow.
	Name string `json:"name,omitempty"`
}

// String возвращает "main" или имя выхода.
func (c OutputClaim) String() string {
	if c.Main {
		return "main"
	}
	return fmt.Sprintf("%q", c.Name)
}

// Job — узел workflow: вызов объекта задачи с привязкой входов.
type Job struct {
	// ID — идентификатор, уникальный в пределах workflow.
	ID string `json:"id"`

	// Task — имя объекта задачи в реестре.
	Task string `json:"task"`

	// Config — настройки задачи для этого вызова.
	Config map[string]any `json:"config,omitempty"`

	// Inputs — привязка входов: имя порта → источник.
	Inputs map[string]Source `json:"inputs,omitempty"`

	// Outputs — заявки выходов: имя порта → заявка.
	Outputs map[string]OutputClaim `json:"outputs,omitempty"`
}

// Workflow — упорядоченный список задач.
//
// Порядок объявления значим: он определяет порядок запуска готовых задач
// и порядок диагностики.
type Workflow struct {
	Name string `json:"name"`
	Jobs []Job  `json:"jobs"`
}

// JobIndex возвращает позицию задачи в порядке объявления или -1.
func (w *Workflow) JobIndex(id string) int {
	for i := range w.Jobs {
		if w.Jobs[i].ID == id {
			return i
		}
	}
	return -1
}

// Job возвращает задачу по ID.
func (w *Workflow) Job(id string) (*Job, bool) {
	if i := w.JobIndex(id); i >= 0 {
		return &w.Jobs[i], true
	}
	return nil, false
}
