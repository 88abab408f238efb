package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Textflow/internal/definition"
	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/orchestrator"
)

// Scheduler повторно запускает workflow по cron-расписанию.
//
// Перед каждым запуском определение перечитывается с диска, поэтому
// правки файла подхватываются без перезапуска. Runs независимы: ошибка
// одного не останавливает расписание.
type Scheduler struct {
	schedule  domain.Schedule
	loader    *definition.Loader
	store     orchestrator.ReportStore
	events    orchestrator.EventPublisher
	externals domain.ObjectSet
	maxRuns   int
	logger    *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedule domain.Schedule

	// Loader — загрузчик определений (default: встроенные типы задач).
	Loader *definition.Loader

	Store  orchestrator.ReportStore
	Events orchestrator.EventPublisher

	// Externals перекрывают внешние объекты определения.
	Externals domain.ObjectSet

	// MaxRuns — число запусков до остановки (default: без ограничения).
	MaxRuns int

	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if err := Validate(&cfg.Schedule); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loader := cfg.Loader
	if loader == nil {
		loader = definition.NewLoader(definition.Config{
			Orchestrator: orchestrator.Config{Logger: logger},
		})
	}

	name := cfg.Schedule.Name
	if name == "" {
		name = cfg.Schedule.DefinitionPath
	}

	return &Scheduler{
		schedule:  cfg.Schedule,
		loader:    loader,
		store:     cfg.Store,
		events:    cfg.Events,
		externals: cfg.Externals,
		maxRuns:   cfg.MaxRuns,
		logger:    logger.With("schedule", name),
		now:       time.Now,
		after:     time.After,
	}, nil
}

// Run запускает workflow в каждое время по расписанию, пока ctx не
// отменён или не выполнено MaxRuns запусков.
func (s *Scheduler) Run(ctx context.Context) error {
	runs := 0
	for s.maxRuns <= 0 || runs < s.maxRuns {
		now := s.now()
		next, err := NextDue(&s.schedule, now)
		if err != nil {
			return err
		}

		s.logger.Info("next run scheduled", "at", next)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-s.after(next.Sub(now)):
		}

		runs++
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduled run failed", "run", runs, "error", err)
		}
	}

	s.logger.Info("scheduler finished", "runs", runs)
	return nil
}

// Tick выполняет один запуск.
//
// 1. Перечитывает определение
// 2. Выполняет workflow через Runner
// 3. Логирует итог
func (s *Scheduler) Tick(ctx context.Context) (*domain.RunRecord, error) {
	// 1. Определение
	def, err := s.loader.LoadFile(s.schedule.DefinitionPath)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}

	// 2. Выполнение
	runner := def.Runner(orchestrator.RunnerConfig{
		Store:  s.store,
		Events: s.events,
		Logger: s.logger,
	})
	rec, report, err := runner.Execute(ctx, def.Workflow, def.MergeExternals(s.externals))
	if err != nil {
		return rec, err
	}

	// 3. Итог
	stats := report.Stats()
	s.logger.Info("scheduled run finished",
		"run_id", rec.ID,
		"workflow", rec.Workflow,
		"status", rec.Status,
		"succeeded", stats.SucceededJobs,
		"failed", stats.FailedJobs,
		"skipped", stats.SkippedJobs,
	)

	return rec, nil
}
