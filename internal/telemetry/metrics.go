package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/Textflow/internal/domain"
)

// Metrics — Prometheus метрики выполнения workflow.
//
// Реализует orchestrator.Recorder.
type Metrics struct {
	runs        *prometheus.CounterVec
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "textflow_runs_total",
			Help: "Total number of finished workflow runs",
		}, []string{"status"}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "textflow_jobs_total",
			Help: "Total number of finished jobs",
		}, []string{"status"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "textflow_job_duration_seconds",
			Help:    "Duration of executed jobs",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}
}

// RunFinished учитывает завершённый run.
func (m *Metrics) RunFinished(status domain.RunStatus) {
	m.runs.WithLabelValues(string(status)).Inc()
}

// JobFinished учитывает завершённую задачу.
// Длительность учитывается только для задач, которые запускались.
func (m *Metrics) JobFinished(task string, status domain.JobStatus, d time.Duration) {
	m.jobs.WithLabelValues(string(status)).Inc()
	if d > 0 {
		m.jobDuration.WithLabelValues(task).Observe(d.Seconds())
	}
}
