package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunRecord — сохранённый результат одного выполнения workflow.
//
// Отчёт о выполнении детерминирован и не содержит ни времени, ни
// идентификаторов; они живут здесь, в обёртке для хранения и событий.
type RunRecord struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Workflow — имя выполненного workflow.
	Workflow string `json:"workflow"`

	// Status — итоговый статус run.
	Status RunStatus `json:"status"`

	// Report — сериализованный отчёт о выполнении.
	Report json.RawMessage `json:"report"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения.
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunRecord создаёт запись со свежим ID.
func NewRunRecord(workflow string, status RunStatus, report json.RawMessage, started, finished time.Time) *RunRecord {
	return &RunRecord{
		ID:         uuid.New(),
		Workflow:   workflow,
		Status:     status,
		Report:     report,
		StartedAt:  started,
		FinishedAt: finished,
	}
}

// Duration возвращает продолжительность выполнения.
func (r *RunRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
