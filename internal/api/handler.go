package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/Textflow/internal/definition"
	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/orchestrator"
	"github.com/shaiso/Textflow/internal/repo"
)

// defaultMaxBodyBytes — максимальный размер определения по умолчанию.
const defaultMaxBodyBytes = 1 << 20

// RunStore — хранилище записей о runs (обычно *repo.ReportRepo).
type RunStore interface {
	orchestrator.ReportStore
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error)
	ListByWorkflow(ctx context.Context, workflow string, limit int) ([]domain.RunRecord, error)
}

var _ RunStore = (*repo.ReportRepo)(nil)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	loader   *definition.Loader
	store    RunStore
	events   orchestrator.EventPublisher
	gatherer prometheus.Gatherer
	metrics  string
	baseDir  string
	maxBody  int64
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Loader — загрузчик определений (default: встроенные типы задач).
	Loader *definition.Loader

	// Store — хранилище записей. Без него runs не сохраняются, а
	// маршруты чтения отвечают 501.
	Store RunStore

	// Events — публикация событий (опционально).
	Events orchestrator.EventPublisher

	// Gatherer — источник метрик для /metrics (опционально).
	Gatherer prometheus.Gatherer

	// MetricsPath — путь метрик (default: /metrics).
	MetricsPath string

	// BaseDir — каталог для относительных путей в определениях.
	BaseDir string

	// MaxBodyBytes — максимальный размер тела запроса.
	MaxBodyBytes int64

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
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

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	// Определения приходят от клиентов: файлы читаются только из baseDir
	loader = loader.Confined(baseDir)

	metrics := cfg.MetricsPath
	if metrics == "" {
		metrics = "/metrics"
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &Handler{
		loader:   loader,
		store:    cfg.Store,
		events:   cfg.Events,
		gatherer: cfg.Gatherer,
		metrics:  metrics,
		baseDir:  baseDir,
		maxBody:  maxBody,
		logger:   logger,
	}
}
