package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/engine"
	"github.com/shaiso/Textflow/internal/tasks"
)

// Default configuration values.
const (
	defaultWorkers = 1
)

// Catalog — источник объектов задач: порты для разрешения привязок
// и сами объекты для выполнения.
type Catalog interface {
	engine.TaskCatalog

	// Get возвращает объект задачи по имени.
	Get(name string) (tasks.Task, error)
}

// Recorder получает метрики выполнения.
type Recorder interface {
	RunFinished(status domain.RunStatus)
	JobFinished(task string, status domain.JobStatus, d time.Duration)
}

// nopRecorder — Recorder, который ничего не делает.
type nopRecorder struct{}

func (nopRecorder) RunFinished(domain.RunStatus)                          {}
func (nopRecorder) JobFinished(string, domain.JobStatus, time.Duration) {}

// Orchestrator выполняет workflow.
//
// Orchestrator:
//   - Разрешает привязки через engine.Resolver
//   - Отклоняет задачи с ошибками разрешения до запуска
//   - Запускает готовые задачи в порядке объявления
//   - Проверяет входы и выходы каждой задачи
//   - Пропускает потомков упавших задач
//   - Собирает детерминированный Report
//
// Orchestrator не хранит состояние между runs: один экземпляр можно
// использовать для параллельных вызовов Run.
type Orchestrator struct {
	catalog  Catalog
	resolver *engine.Resolver
	workers  int
	logger   *slog.Logger
	metrics  Recorder
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Catalog — объекты задач (обычно *tasks.Registry).
	Catalog Catalog

	// Lattice — решётка видов (default: engine.DefaultLattice).
	Lattice *engine.Lattice

	// Workers — число параллельно выполняемых задач (default: 1,
	// последовательное выполнение).
	Workers int

	// Logger
	Logger *slog.Logger

	// Metrics — получатель метрик (default: без метрик).
	Metrics Recorder
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var metrics Recorder = nopRecorder{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Orchestrator{
		catalog:  cfg.Catalog,
		resolver: engine.NewResolver(cfg.Catalog, cfg.Lattice),
		workers:  workers,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolver возвращает resolver, которым пользуется Orchestrator.
func (o *Orchestrator) Resolver() *engine.Resolver {
	return o.resolver
}

// Run выполняет workflow на наборе внешних объектов.
//
// Ошибки задач не возвращаются как error: они в Report. Error возвращается
// только при фатальной ошибке (структура, цикл, дубли выходов); Report в
// этом случае имеет статус ABORTED и все задачи PENDING.
//
// Отмена ctx проверяется между запусками задач: новые задачи не
// запускаются, уже запущенные получают тот же ctx.
func (o *Orchestrator) Run(ctx context.Context, wf *domain.Workflow, externals domain.ObjectSet) (*Report, error) {
	if wf == nil {
		return nil, ErrNilWorkflow
	}

	logger := o.logger.With("workflow", wf.Name)

	// 1. Разрешение привязок
	plan, err := o.resolver.Resolve(wf, externals)
	if err != nil {
		logger.Error("workflow aborted", "error", err)
		report := abortedReport(wf, err)
		o.metrics.RunFinished(report.Status)
		return report, err
	}

	state := NewRunState(plan)

	// 2. Задачи с ошибками разрешения падают до запуска,
	// затем пропускаются их потомки
	rejected := plan.FailedJobs()
	for _, id := range rejected {
		jerr := plan.Err(id)
		if err := state.Reject(id, jerr); err != nil {
			return nil, fmt.Errorf("reject job %s: %w", id, err)
		}
		logger.Warn("job rejected", "job_id", id, "error", jerr.Error())
	}
	for _, id := range rejected {
		if _, err := state.SkipDownstream(id); err != nil {
			return nil, err
		}
	}

	// 3. Выполнение
	if err := o.schedule(ctx, state, externals, logger); err != nil {
		return nil, err
	}

	// 4. Отчёт
	report := buildReport(state)
	for _, job := range report.Jobs {
		o.metrics.JobFinished(job.Task, job.Status, state.Duration(job.ID))
	}
	o.metrics.RunFinished(report.Status)

	stats := report.Stats()
	logger.Info("workflow finished",
		"status", report.Status,
		"succeeded", stats.SucceededJobs,
		"failed", stats.FailedJobs,
		"skipped", stats.SkippedJobs,
	)

	return report, nil
}

// jobResult — результат выполнения одной задачи.
type jobResult struct {
	jobID    string
	outputs  map[string]domain.Value
	err      *engine.JobError
	duration time.Duration
}

// schedule крутит цикл планировщика до завершения всех задач.
//
// Состоянием владеет только этот цикл. Задачи выполняются в горутинах
// errgroup и возвращают результаты через канал; публикация выходов
// происходит здесь, до повторного поиска готовых задач.
func (o *Orchestrator) schedule(ctx context.Context, state *RunState, externals domain.ObjectSet, logger *slog.Logger) error {
	var g errgroup.Group
	results := make(chan jobResult, o.workers)
	running := 0

	for {
		// Отмена проверяется перед каждым запуском
		if ctx.Err() == nil {
			for _, node := range state.Promote() {
				if running >= o.workers {
					break
				}
				if ctx.Err() != nil {
					break
				}

				inputs := o.collectInputs(state, node.ID, externals)
				if err := state.Start(node.ID); err != nil {
					return err
				}
				running++

				logger.Debug("job dispatched", "job_id", node.ID, "task", node.Job.Task)

				node := node
				g.Go(func() error {
					results <- o.execute(ctx, state.Plan, node, inputs)
					return nil
				})
			}
		}

		if running == 0 {
			break
		}

		res := <-results
		running--
		if err := o.apply(state, res, logger); err != nil {
			_ = g.Wait()
			return err
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if ctx.Err() != nil {
		if skipped := state.Cancel(); len(skipped) > 0 {
			logger.Warn("run cancelled", "skipped", len(skipped))
		}
	}

	return nil
}

// collectInputs собирает значения входов задачи.
func (o *Orchestrator) collectInputs(state *RunState, jobID string, externals domain.ObjectSet) map[string]domain.Value {
	bindings := state.Plan.Bindings[jobID]
	inputs := make(map[string]domain.Value, len(bindings))
	for _, b := range bindings {
		var (
			v  domain.Value
			ok bool
		)
		if b.Source.IsExternal() {
			v, ok = externals.Lookup(b.Source.Name)
		} else {
			v, ok = state.Produced(b.Source.Ref())
		}
		if ok {
			inputs[b.Port.Name] = v
		}
	}
	return inputs
}

// apply применяет результат задачи к состоянию run.
func (o *Orchestrator) apply(state *RunState, res jobResult, logger *slog.Logger) error {
	if res.err == nil {
		logger.Debug("job succeeded", "job_id", res.jobID, "duration_ms", res.duration.Milliseconds())
		return state.Succeed(res.jobID, res.outputs, res.duration)
	}

	skipped, err := state.Fail(res.jobID, res.err, res.duration)
	if err != nil {
		return err
	}
	logger.Warn("job failed", "job_id", res.jobID, "error", res.err.Error(), "skipped", len(skipped))
	return nil
}

// execute выполняет одну задачу. Не трогает RunState.
func (o *Orchestrator) execute(ctx context.Context, plan *engine.Plan, node *engine.Node, inputs map[string]domain.Value) (res jobResult) {
	job := node.Job
	start := time.Now()
	res.jobID = job.ID

	fail := func(jerr *engine.JobError) jobResult {
		jerr.JobID = job.ID
		jerr.Task = job.Task
		return jobResult{jobID: job.ID, err: jerr, duration: time.Since(start)}
	}

	defer func() {
		if r := recover(); r != nil {
			res = fail(&engine.JobError{
				Message: fmt.Sprintf("Task %s panicked: %v", job.Task, r),
				Err:     engine.ErrTaskExecutionFailure,
			})
		}
	}()

	// 1. Проверка входов по фактическим значениям
	for _, b := range plan.Bindings[job.ID] {
		v, ok := inputs[b.Port.Name]
		if !ok {
			return fail(&engine.JobError{
				Port:    b.Port.Name,
				Object:  b.Source.String(),
				Message: fmt.Sprintf("Input %s: value of %s is not available", b.Port.Name, b.Source),
				Err:     engine.ErrSourceObjectNotFound,
			})
		}
		if jerr := engine.CheckInput(v, b.Port); jerr != nil {
			jerr.Object = b.Source.String()
			return fail(jerr)
		}
	}

	// 2. Выполнение
	task, err := o.catalog.Get(job.Task)
	if err != nil {
		return fail(&engine.JobError{
			Message: fmt.Sprintf("Task object %q not found", job.Task),
			Err:     engine.ErrTaskNotFound,
		})
	}

	resp, err := task.Execute(ctx, &tasks.Request{
		JobID:       job.ID,
		Config:      job.Config,
		Inputs:      inputs,
		OutputKinds: plan.OutputKinds(job.ID),
	})
	if err != nil {
		return fail(&engine.JobError{
			Message: fmt.Sprintf("Task %s failed: %v", job.Task, err),
			Err:     fmt.Errorf("%w: %w", engine.ErrTaskExecutionFailure, err),
		})
	}
	if resp == nil {
		resp = tasks.NewResponse(nil)
	}

	// 3. Проверка выходов до публикации
	outputs, jerr := validateOutputs(plan, job, resp.Outputs)
	if jerr != nil {
		return fail(jerr)
	}

	return jobResult{jobID: job.ID, outputs: outputs, duration: time.Since(start)}
}

// validateOutputs проверяет выходы задачи против её портов и
// опубликованных видов.
func validateOutputs(plan *engine.Plan, job *domain.Job, produced map[string]domain.Value) (map[string]domain.Value, *engine.JobError) {
	ports := plan.Ports[job.ID]

	names := make([]string, 0, len(produced))
	for name := range produced {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := ports.Output(name); !ok {
			return nil, &engine.JobError{
				Port:    name,
				Message: fmt.Sprintf("Output %s is not declared by task %s", name, job.Task),
				Err:     engine.ErrUnexpectedOutput,
			}
		}
	}

	outputs := make(map[string]domain.Value, len(produced))
	for _, port := range ports.SortedOutputs() {
		ref := domain.OutputRef{JobID: job.ID, Port: port.Name}
		v, ok := produced[port.Name]
		if !ok {
			if plan.IsUsed(ref) {
				return nil, &engine.JobError{
					Port:    port.Name,
					Message: fmt.Sprintf("Output %s was not produced", port.Name),
					Err:     engine.ErrMissingOutput,
				}
			}
			continue
		}

		published, ok := plan.Published[ref]
		if !ok {
			published = domain.KindAny
		}
		if jerr := engine.CheckOutput(v, port, published); jerr != nil {
			return nil, jerr
		}
		outputs[port.Name] = v
	}

	return outputs, nil
}
