package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Textflow/internal/domain"
)

// RunResponse — ответ с run.
type RunResponse struct {
	ID         uuid.UUID        `json:"id"`
	Workflow   string           `json:"workflow"`
	Status     domain.RunStatus `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	DurationMs int64            `json:"duration_ms"`
	Report     json.RawMessage  `json:"report"`
}

// RunFromDomain конвертирует domain.RunRecord в RunResponse.
func RunFromDomain(rec domain.RunRecord) RunResponse {
	return RunResponse{
		ID:         rec.ID,
		Workflow:   rec.Workflow,
		Status:     rec.Status,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		DurationMs: rec.Duration().Milliseconds(),
		Report:     rec.Report,
	}
}

// RunSummary — краткая запись для списков, без отчёта.
type RunSummary struct {
	ID         uuid.UUID        `json:"id"`
	Workflow   string           `json:"workflow"`
	Status     domain.RunStatus `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMs int64            `json:"duration_ms"`
}

// SummaryFromDomain конвертирует domain.RunRecord в RunSummary.
func SummaryFromDomain(rec domain.RunRecord) RunSummary {
	return RunSummary{
		ID:         rec.ID,
		Workflow:   rec.Workflow,
		Status:     rec.Status,
		StartedAt:  rec.StartedAt,
		DurationMs: rec.Duration().Milliseconds(),
	}
}

// HealthResponse — ответ /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Store  bool   `json:"store"`
	Events bool   `json:"events"`
}
