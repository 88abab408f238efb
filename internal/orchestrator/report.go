package orchestrator

import (
	"errors"
	"fmt"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/engine"
)

// Report — результат выполнения workflow.
//
// Report не содержит времени и случайных идентификаторов: для чистых задач
// JSON двух запусков одного workflow на одних внешних объектах совпадает
// побайтно. Время и ID run хранятся в domain.RunRecord.
type Report struct {
	// Workflow — имя workflow.
	Workflow string `json:"workflow"`

	// Status — итоговый статус run.
	Status domain.RunStatus `json:"status"`

	// Jobs — задачи в порядке объявления.
	Jobs []JobReport `json:"jobs"`

	// MainOutput — главный выход workflow; nil, если его нет или
	// заявившая его задача не выполнилась.
	MainOutput *domain.Value `json:"main_output,omitempty"`

	// NamedOutputs — именованные выходы workflow успешно выполненных задач.
	NamedOutputs map[string]domain.Value `json:"named_outputs,omitempty"`

	// Errors — сообщения об ошибках задач в порядке объявления.
	Errors []string `json:"errors,omitempty"`

	// Fatal — фатальная ошибка, прервавшая run до запуска задач.
	Fatal string `json:"fatal,omitempty"`
}

// JobReport — результат одной задачи.
type JobReport struct {
	ID     string           `json:"id"`
	Task   string           `json:"task"`
	Status domain.JobStatus `json:"status"`

	// Error — сообщение об ошибке для FAILED и SKIPPED.
	Error string `json:"error,omitempty"`

	// Cause — ID задачи выше по графу, из-за которой задача пропущена.
	Cause string `json:"cause,omitempty"`

	// Outputs — опубликованные выходы успешной задачи.
	Outputs map[string]domain.Value `json:"outputs,omitempty"`

	// Err — типизированная ошибка задачи для errors.Is.
	Err error `json:"-"`
}

// Succeeded проверяет, что все задачи выполнены успешно.
func (r *Report) Succeeded() bool {
	return r.Status == domain.RunStatusSucceeded
}

// Job возвращает отчёт задачи по ID.
func (r *Report) Job(id string) (*JobReport, bool) {
	for i := range r.Jobs {
		if r.Jobs[i].ID == id {
			return &r.Jobs[i], true
		}
	}
	return nil, false
}

// RootCause возвращает ID задачи, с которой началась цепочка пропусков.
//
// Для упавшей задачи это она сама. Для пропущенной — первая задача по
// цепочке Cause, у которой Cause нет. Пустая строка, если задача успешна
// или не найдена.
func (r *Report) RootCause(id string) string {
	seen := make(map[string]bool)
	for {
		job, ok := r.Job(id)
		if !ok || !job.Status.IsUnsuccessful() {
			return ""
		}
		if job.Cause == "" || seen[id] {
			return id
		}
		seen[id] = true
		id = job.Cause
	}
}

// Stats возвращает количество задач по статусам.
func (r *Report) Stats() RunStats {
	stats := RunStats{TotalJobs: len(r.Jobs)}
	for _, job := range r.Jobs {
		switch job.Status {
		case domain.JobStatusSucceeded:
			stats.SucceededJobs++
		case domain.JobStatusFailed:
			stats.FailedJobs++
		case domain.JobStatusSkipped:
			stats.SkippedJobs++
		case domain.JobStatusRunning:
			stats.RunningJobs++
		default:
			stats.PendingJobs++
		}
	}
	return stats
}

// IDsWithStatus возвращает ID задач с заданным статусом в порядке объявления.
func (r *Report) IDsWithStatus(status domain.JobStatus) []string {
	ids := make([]string, 0)
	for _, job := range r.Jobs {
		if job.Status == status {
			ids = append(ids, job.ID)
		}
	}
	return ids
}

// abortedReport строит отчёт для фатальной ошибки: все задачи PENDING.
func abortedReport(wf *domain.Workflow, err error) *Report {
	report := &Report{
		Workflow: wf.Name,
		Status:   domain.RunStatusAborted,
		Jobs:     make([]JobReport, len(wf.Jobs)),
		Fatal:    err.Error(),
		Errors:   []string{err.Error()},
	}
	for i, job := range wf.Jobs {
		report.Jobs[i] = JobReport{ID: job.ID, Task: job.Task, Status: domain.JobStatusPending}
	}
	return report
}

// buildReport собирает отчёт по завершённому состоянию run.
func buildReport(state *RunState) *Report {
	plan := state.Plan
	report := &Report{
		Workflow: plan.Workflow.Name,
		Jobs:     make([]JobReport, 0, len(plan.DAG.Ordered)),
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	var succeeded, unsuccessful int

	for _, node := range plan.DAG.Ordered {
		job := JobReport{
			ID:     node.ID,
			Task:   node.Job.Task,
			Status: state.statuses[node.ID],
		}

		switch job.Status {
		case domain.JobStatusSucceeded:
			succeeded++
			job.Outputs = make(map[string]domain.Value)
			for _, out := range plan.Ports[node.ID].Outputs {
				if v, ok := state.produced[domain.OutputRef{JobID: node.ID, Port: out.Name}]; ok {
					job.Outputs[out.Name] = v
				}
			}
			if len(job.Outputs) == 0 {
				job.Outputs = nil
			}

		case domain.JobStatusSkipped:
			unsuccessful++
			if _, has := state.errs[node.ID]; !has {
				// Непосредственная причина — первая по объявлению
				// неуспешная задача среди производителей
				cause := immediateCause(node, state)
				state.errs[node.ID] = &engine.JobError{
					JobID:   node.ID,
					Task:    node.Job.Task,
					Object:  cause,
					Message: fmt.Sprintf("Error in child task %s", cause),
					Err:     engine.ErrUpstreamFailed,
				}
				job.Cause = cause
			}

		case domain.JobStatusFailed:
			unsuccessful++
		}

		if jerr, ok := state.errs[node.ID]; ok {
			job.Error = jerr.Error()
			job.Err = jerr
			report.Errors = append(report.Errors, jerr.Error())
		}

		report.Jobs = append(report.Jobs, job)
	}

	main, named := plan.Claims.Harvest(func(ref domain.OutputRef) (domain.Value, bool) {
		if state.statuses[ref.JobID] != domain.JobStatusSucceeded {
			return domain.Value{}, false
		}
		v, ok := state.produced[ref]
		return v, ok
	})
	report.MainOutput = main
	if len(named) > 0 {
		report.NamedOutputs = named
	}

	switch {
	case state.cancelled:
		report.Status = domain.RunStatusCancelled
	case unsuccessful == 0:
		report.Status = domain.RunStatusSucceeded
	case succeeded > 0:
		report.Status = domain.RunStatusPartial
	default:
		report.Status = domain.RunStatusFailed
	}

	return report
}

// immediateCause возвращает ID первого по объявлению неуспешного производителя.
func immediateCause(node *engine.Node, state *RunState) string {
	for _, dep := range node.DependsOn {
		if state.statuses[dep.ID].IsUnsuccessful() {
			return dep.ID
		}
	}
	return ""
}

// JobErr возвращает типизированную ошибку задачи или nil.
func (r *Report) JobErr(id string) error {
	job, ok := r.Job(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return job.Err
}

// HasError проверяет, упала ли хоть одна задача с ошибкой target.
func (r *Report) HasError(target error) bool {
	for _, job := range r.Jobs {
		if job.Err != nil && errors.Is(job.Err, target) {
			return true
		}
	}
	return false
}
