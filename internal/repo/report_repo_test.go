package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/shaiso/Textflow/internal/domain"
)

var reportColumns = []string{"id", "workflow", "status", "report", "started_at", "finished_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func testRecord() *domain.RunRecord {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.RunRecord{
		ID:         uuid.New(),
		Workflow:   "wf",
		Status:     domain.RunStatusSucceeded,
		Report:     []byte(`{"workflow":"wf","status":"SUCCEEDED"}`),
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
}

// --- Save Tests ---

func TestReportRepo_Save(t *testing.T) {
	mock := newMock(t)
	rec := testRecord()

	mock.ExpectExec("INSERT INTO run_reports").
		WithArgs(rec.ID, "wf", "SUCCEEDED", []byte(rec.Report), rec.StartedAt, rec.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := NewReportRepo(mock).Save(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReportRepo_Save_Duplicate(t *testing.T) {
	mock := newMock(t)
	rec := testRecord()

	mock.ExpectExec("INSERT INTO run_reports").
		WithArgs(rec.ID, "wf", "SUCCEEDED", []byte(rec.Report), rec.StartedAt, rec.FinishedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := NewReportRepo(mock).Save(context.Background(), rec)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

// --- GetByID Tests ---

func TestReportRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	rec := testRecord()

	rows := mock.NewRows(reportColumns).
		AddRow(rec.ID, rec.Workflow, "PARTIAL", []byte(rec.Report), rec.StartedAt, rec.FinishedAt)
	mock.ExpectQuery("SELECT (.+) FROM run_reports WHERE id = \\$1").
		WithArgs(rec.ID).
		WillReturnRows(rows)

	got, err := NewReportRepo(mock).GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ID != rec.ID || got.Workflow != "wf" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Status != domain.RunStatusPartial {
		t.Errorf("expected PARTIAL, got %s", got.Status)
	}
	if string(got.Report) != string(rec.Report) {
		t.Errorf("unexpected report: %s", got.Report)
	}
	if got.Duration() != time.Second {
		t.Errorf("expected 1s duration, got %v", got.Duration())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReportRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM run_reports WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := NewReportRepo(mock).GetByID(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- ListByWorkflow Tests ---

func TestReportRepo_ListByWorkflow(t *testing.T) {
	mock := newMock(t)
	first, second := testRecord(), testRecord()

	rows := mock.NewRows(reportColumns).
		AddRow(first.ID, "wf", "SUCCEEDED", []byte(first.Report), first.StartedAt, first.FinishedAt).
		AddRow(second.ID, "wf", "FAILED", []byte(second.Report), second.StartedAt, second.FinishedAt)
	mock.ExpectQuery("SELECT (.+) FROM run_reports WHERE workflow = \\$1").
		WithArgs("wf", defaultListLimit).
		WillReturnRows(rows)

	records, err := NewReportRepo(mock).ListByWorkflow(context.Background(), "wf", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != first.ID || records[1].Status != domain.RunStatusFailed {
		t.Errorf("unexpected records: %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReportRepo_ListByWorkflow_QueryError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM run_reports").
		WithArgs("wf", 5).
		WillReturnError(errors.New("connection reset"))

	if _, err := NewReportRepo(mock).ListByWorkflow(context.Background(), "wf", 5); err == nil {
		t.Fatal("expected error")
	}
}

// --- Schema Tests ---

func TestEnsureSchema(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS run_reports").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := EnsureSchema(context.Background(), mock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
