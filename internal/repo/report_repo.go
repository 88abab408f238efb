package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/Textflow/internal/domain"
)

// defaultListLimit — число записей ListByWorkflow без явного лимита.
const defaultListLimit = 50

// ReportRepo — репозиторий отчётов о выполнении.
type ReportRepo struct {
	db DB
}

// NewReportRepo создаёт новый ReportRepo.
func NewReportRepo(db DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Save сохраняет запись о run.
func (r *ReportRepo) Save(ctx context.Context, rec *domain.RunRecord) error {
	query := `
		INSERT INTO run_reports (id, workflow, status, report, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.Workflow,
		string(rec.Status),
		[]byte(rec.Report),
		rec.StartedAt,
		rec.FinishedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("run %s: %w", rec.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert run report: %w", err)
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *ReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	query := `
		SELECT id, workflow, status, report, started_at, finished_at
		FROM run_reports
		WHERE id = $1
	`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByWorkflow возвращает последние записи workflow, новые первыми.
func (r *ReportRepo) ListByWorkflow(ctx context.Context, workflow string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, workflow, status, report, started_at, finished_at
		FROM run_reports
		WHERE workflow = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, workflow, limit)
	if err != nil {
		return nil, fmt.Errorf("list run reports: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanRecord сканирует одну строку в RunRecord.
func scanRecord(row pgx.Row) (*domain.RunRecord, error) {
	var (
		rec    domain.RunRecord
		status string
		report []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.Workflow,
		&status,
		&report,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run report: %w", err)
	}

	rec.Status = domain.RunStatus(status)
	rec.Report = report
	return &rec, nil
}
