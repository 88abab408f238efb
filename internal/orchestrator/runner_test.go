package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/engine"
	"github.com/shaiso/Textflow/internal/mq"
)

type fakeStore struct {
	saved []*domain.RunRecord
	err   error
}

func (s *fakeStore) Save(ctx context.Context, rec *domain.RunRecord) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, rec)
	return nil
}

type fakeEvents struct {
	completed []mq.RunCompletedPayload
	failed    []mq.JobFailedPayload
	err       error
}

func (e *fakeEvents) PublishRunCompleted(ctx context.Context, p mq.RunCompletedPayload) error {
	e.completed = append(e.completed, p)
	return e.err
}

func (e *fakeEvents) PublishJobFailed(ctx context.Context, p mq.JobFailedPayload) error {
	e.failed = append(e.failed, p)
	return e.err
}

func testRunner(store ReportStore, events EventPublisher) *Runner {
	return NewRunner(RunnerConfig{
		Orchestrator: testOrchestrator(testRegistry(), 1),
		Store:        store,
		Events:       events,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// --- Runner Tests ---

func TestRunner_Execute(t *testing.T) {
	store := &fakeStore{}
	events := &fakeEvents{}

	rec, report, err := testRunner(store, events).Execute(context.Background(), diamond(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.saved) != 1 || store.saved[0] != rec {
		t.Fatalf("expected the record to be saved once, got %v", store.saved)
	}
	if rec.Status != report.Status || rec.Workflow != "diamond" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.FinishedAt.Before(rec.StartedAt) {
		t.Error("finished before started")
	}

	var decoded Report
	if err := json.Unmarshal(rec.Report, &decoded); err != nil {
		t.Fatalf("stored report is not JSON: %v", err)
	}
	if decoded.Status != domain.RunStatusPartial || len(decoded.Jobs) != 6 {
		t.Errorf("unexpected stored report: %+v", decoded)
	}

	if len(events.failed) != 1 || events.failed[0].JobID != "e" || events.failed[0].RunID != rec.ID {
		t.Errorf("unexpected job.failed events: %+v", events.failed)
	}
	if len(events.completed) != 1 {
		t.Fatalf("expected one run.completed, got %d", len(events.completed))
	}
	done := events.completed[0]
	if done.Status != domain.RunStatusPartial || len(done.SkippedJobs) != 1 || done.SkippedJobs[0] != "f" {
		t.Errorf("unexpected run.completed: %+v", done)
	}
}

func TestRunner_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	events := &fakeEvents{}

	_, report, err := testRunner(store, events).Execute(context.Background(), diamond(), nil)
	if !errors.Is(err, ErrSaveRun) || !errors.Is(err, store.err) {
		t.Fatalf("expected ErrSaveRun wrapping store error, got %v", err)
	}
	if report == nil {
		t.Error("report must be returned with store error")
	}
	if len(events.completed) != 0 {
		t.Error("events must not be published for an unsaved run")
	}
}

func TestRunner_PublishErrorIgnored(t *testing.T) {
	events := &fakeEvents{err: errors.New("broker down")}

	rec, _, err := testRunner(nil, events).Execute(context.Background(), diamond(), nil)
	if err != nil {
		t.Fatalf("publish errors must not fail the run: %v", err)
	}
	if rec == nil {
		t.Error("record must be returned")
	}
}

func TestRunner_FatalStillRecorded(t *testing.T) {
	store := &fakeStore{}

	wf := &domain.Workflow{Name: "cycle", Jobs: []domain.Job{
		job("a", "upper", from("b"), nil),
		job("b", "upper", from("a"), nil),
	}}
	rec, _, err := testRunner(store, nil).Execute(context.Background(), wf, nil)
	if !errors.Is(err, engine.ErrGraphHasCycle) {
		t.Fatalf("expected ErrGraphHasCycle, got %v", err)
	}
	if rec == nil || rec.Status != domain.RunStatusAborted || len(store.saved) != 1 {
		t.Errorf("aborted run must be recorded: %+v", rec)
	}
}
