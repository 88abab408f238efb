package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/mq"
)

// ReportStore сохраняет записи о runs.
type ReportStore interface {
	Save(ctx context.Context, rec *domain.RunRecord) error
}

// EventPublisher публикует события о runs.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, payload mq.RunCompletedPayload) error
	PublishJobFailed(ctx context.Context, payload mq.JobFailedPayload) error
}

// Runner выполняет workflow и завершает run: сохраняет запись в хранилище
// и публикует события. Store и Events необязательны.
type Runner struct {
	orch   *Orchestrator
	store  ReportStore
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	Orchestrator *Orchestrator

	// Store — хранилище записей (default: не сохранять).
	Store ReportStore

	// Events — публикация событий (default: не публиковать).
	Events EventPublisher

	Logger *slog.Logger
}

// NewRunner создаёт новый Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		orch:   cfg.Orchestrator,
		store:  cfg.Store,
		events: cfg.Events,
		logger: logger,
		now:    time.Now,
	}
}

// Execute выполняет workflow и возвращает запись о run вместе с отчётом.
//
// Фатальная ошибка run возвращается как error, но запись для ABORTED
// отчёта всё равно сохраняется. Ошибка сохранения возвращается, ошибка
// публикации только логируется.
func (r *Runner) Execute(ctx context.Context, wf *domain.Workflow, externals domain.ObjectSet) (*domain.RunRecord, *Report, error) {
	started := r.now()

	// 1. Выполнение
	report, runErr := r.orch.Run(ctx, wf, externals)
	if report == nil {
		return nil, nil, runErr
	}

	// 2. Запись о run
	body, err := json.Marshal(report)
	if err != nil {
		return nil, report, fmt.Errorf("marshal report: %w", err)
	}
	rec := domain.NewRunRecord(wf.Name, report.Status, body, started, r.now())

	logger := r.logger.With("run_id", rec.ID, "workflow", wf.Name)

	// 3. Сохранение. Отмена ctx не должна терять запись о run
	if r.store != nil {
		if err := r.store.Save(context.WithoutCancel(ctx), rec); err != nil {
			return rec, report, fmt.Errorf("%w %s: %w", ErrSaveRun, rec.ID, err)
		}
		logger.Debug("run saved")
	}

	// 4. События
	if r.events != nil {
		r.publish(context.WithoutCancel(ctx), rec, report, logger)
	}

	return rec, report, runErr
}

// publish отправляет job.failed для каждой упавшей задачи и run.completed.
func (r *Runner) publish(ctx context.Context, rec *domain.RunRecord, report *Report, logger *slog.Logger) {
	failed := report.IDsWithStatus(domain.JobStatusFailed)

	for _, id := range failed {
		job, _ := report.Job(id)
		err := r.events.PublishJobFailed(ctx, mq.JobFailedPayload{
			RunID:    rec.ID,
			Workflow: rec.Workflow,
			JobID:    id,
			Error:    job.Error,
		})
		if err != nil {
			logger.Warn("failed to publish job.failed", "job_id", id, "error", err)
		}
	}

	err := r.events.PublishRunCompleted(ctx, mq.RunCompletedPayload{
		RunID:       rec.ID,
		Workflow:    rec.Workflow,
		Status:      rec.Status,
		FailedJobs:  failed,
		SkippedJobs: report.IDsWithStatus(domain.JobStatusSkipped),
	})
	if err != nil {
		logger.Warn("failed to publish run.completed", "error", err)
	}
}
