package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Textflow/internal/api"
	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/mq"
	"github.com/shaiso/Textflow/internal/repo"
	"github.com/shaiso/Textflow/internal/telemetry"
)

const upperYAML = `
name: upper
externals:
  doc:
    text: hello
tasks:
  shout:
    type: template
    settings:
      template: "{{ .Inputs.in | upper }}"
jobs:
  - id: render
    task: shout
    inputs:
      in: external:doc
    outputs:
      out: main
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// execute выполняет корневую команду и возвращает stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := NewRootCmd("test")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// --- Inputs Tests ---

func TestParseInputs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "note.txt"), []byte("from file"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := ParseInputs([]string{"doc=hello", "lines=a", "lines=b=c", "note=@note.txt"}, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set["doc"].First().Text() != "hello" {
		t.Errorf("unexpected doc: %v", set["doc"])
	}

	lines := set["lines"]
	if lines.Len() != 2 || lines.Objects[1].Text() != "b=c" || lines.Objects[1].Name != "lines[1]" {
		t.Errorf("unexpected batch: %+v", lines.Objects)
	}
	if lines.Objects[0].Name != "lines[0]" {
		t.Errorf("expected first batch item renamed, got %s", lines.Objects[0].Name)
	}

	if set["note"].First().Text() != "from file" {
		t.Errorf("unexpected file input: %v", set["note"])
	}
}

func TestParseInputs_Invalid(t *testing.T) {
	for _, flag := range []string{"novalue", "=x"} {
		if _, err := ParseInputs([]string{flag}, "."); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%q: expected ErrInvalidInput, got %v", flag, err)
		}
	}
}

// --- Output Tests ---

func TestOutput_Table(t *testing.T) {
	var buf bytes.Buffer
	out := newOutput(false, &buf, &buf)

	out.Print([]string{"ID", "STATUS"}, [][]string{{"a", "SUCCEEDED"}}, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "--") || !strings.Contains(lines[2], "SUCCEEDED") {
		t.Errorf("unexpected table: %q", buf.String())
	}
}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	out := newOutput(true, &buf, &buf)

	out.Print(nil, nil, map[string]int{"n": 1})

	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil || got["n"] != 1 {
		t.Errorf("unexpected json %q: %v", buf.String(), err)
	}
}

func TestOutput_Value(t *testing.T) {
	var buf bytes.Buffer
	out := newOutput(false, &buf, &buf)

	out.Value("fields", domain.Single(domain.NewTree("t", map[string]any{"name": "x"})))
	out.Value("files", domain.Batch(
		domain.NewText("files[0]", "one"),
		&domain.DataObject{Name: "files[1]", Kind: domain.KindMIME, Data: &domain.MIMEBundle{ContentType: "image/png", Body: []byte{1, 2}}},
	))

	s := buf.String()
	for _, want := range []string{"fields:\nname: x", "# files[0]\none", "<image/png, 2 bytes>"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in output:\n%s", want, s)
		}
	}
}

// --- Run Tests ---

func TestRunCmd_JSON(t *testing.T) {
	stdout, err := execute(t, "run", "-f", writeFile(t, "wf.yaml", upperYAML), "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var got RunOutput
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if got.Status != domain.RunStatusSucceeded || got.Report.MainOutput.First().Text() != "HELLO" {
		t.Errorf("unexpected run: %+v", got)
	}
}

func TestRunCmd_TableWithInputOverride(t *testing.T) {
	stdout, err := execute(t, "run", "-f", writeFile(t, "wf.yaml", upperYAML), "-i", "doc=bye", "--workers", "2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(stdout, "render") || !strings.Contains(stdout, "main:\nBYE") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestRunCmd_FailedRun(t *testing.T) {
	path := writeFile(t, "wf.yaml", `
name: failing
jobs:
  - id: a
    task: sleep
    config:
      fail: true
`)

	if _, err := execute(t, "run", "-f", path); !errors.Is(err, ErrRunNotSucceeded) {
		t.Errorf("expected ErrRunNotSucceeded, got %v", err)
	}
}

func TestRunCmd_RequiresFile(t *testing.T) {
	if _, err := execute(t, "run"); err == nil {
		t.Error("expected missing flag error")
	}
}

// --- Validate Tests ---

func TestValidateCmd(t *testing.T) {
	stdout, err := execute(t, "validate", "-f", writeFile(t, "wf.yaml", upperYAML), "--json")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	var got ValidateOutput
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Workflow != "upper" || len(got.Jobs) != 1 || got.Jobs[0].Error != "" {
		t.Errorf("unexpected result: %+v", got)
	}
	if len(got.Ports.Outputs) != 1 || got.Ports.Outputs[0].Name != "main" {
		t.Errorf("unexpected ports: %+v", got.Ports)
	}
}

func TestValidateCmd_UnresolvedJob(t *testing.T) {
	path := writeFile(t, "wf.yaml", `
name: broken
jobs:
  - id: a
    task: passthrough
    inputs:
      in: external:missing
`)

	stdout, err := execute(t, "validate", "-f", path)
	if !errors.Is(err, ErrUnresolvedJobs) {
		t.Fatalf("expected ErrUnresolvedJobs, got %v", err)
	}
	if !strings.Contains(stdout, "missing") {
		t.Errorf("expected resolution error in output:\n%s", stdout)
	}
}

// --- Remote Tests ---

type memStore struct {
	mu      sync.Mutex
	records []domain.RunRecord
}

func (s *memStore) Save(_ context.Context, rec *domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *rec)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *memStore) ListByWorkflow(_ context.Context, workflow string, limit int) ([]domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RunRecord
	for _, rec := range s.records {
		if rec.Workflow == workflow && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := api.NewHandler(api.Config{Store: &memStore{}, Logger: telemetry.DiscardLogger()})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestRemote_RunShowList(t *testing.T) {
	srv := newAPIServer(t)
	path := writeFile(t, "wf.yaml", upperYAML)

	stdout, err := execute(t, "remote", "run", "-f", path, "--api-url", srv.URL, "--json")
	if err != nil {
		t.Fatalf("remote run: %v", err)
	}
	var run RunResponse
	if err := json.Unmarshal([]byte(stdout), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Status != string(domain.RunStatusSucceeded) {
		t.Fatalf("unexpected run: %+v", run)
	}

	stdout, err = execute(t, "remote", "show", run.ID, "--api-url", srv.URL)
	if err != nil {
		t.Fatalf("remote show: %v", err)
	}
	if !strings.Contains(stdout, run.ID) {
		t.Errorf("expected run id in output:\n%s", stdout)
	}

	stdout, err = execute(t, "remote", "list", "upper", "--api-url", srv.URL, "--limit", "5")
	if err != nil {
		t.Fatalf("remote list: %v", err)
	}
	if !strings.Contains(stdout, run.ID) {
		t.Errorf("expected run id in list:\n%s", stdout)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := newAPIServer(t)

	_, err := NewClient(srv.URL).GetRun(uuid.NewString())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "NOT_FOUND" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClient_SubmitInvalidDefinition(t *testing.T) {
	srv := newAPIServer(t)

	_, err := NewClient(srv.URL).SubmitRun([]byte("name: x\n"), "yaml")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "INVALID_DEFINITION" {
		t.Errorf("expected INVALID_DEFINITION, got %v", err)
	}
}

// --- Events Tests ---

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	handler := eventPrinter(newOutput(false, &buf, &buf)).Handler()
	runID := uuid.New()

	msgs := []*mq.Message{
		mq.NewMessage(mq.MessageTypeJobFailed, mq.JobFailedPayload{RunID: runID, Workflow: "wf", JobID: "a", Error: "boom"}),
		mq.NewMessage(mq.MessageTypeRunCompleted, mq.RunCompletedPayload{
			RunID:       runID,
			Workflow:    "wf",
			Status:      domain.RunStatusFailed,
			FailedJobs:  []string{"a"},
			SkippedJobs: []string{"b"},
		}),
	}
	for _, msg := range msgs {
		if err := handler(context.Background(), msg); err != nil {
			t.Fatalf("handle %s: %v", msg.Type, err)
		}
	}

	s := buf.String()
	if !strings.Contains(s, "job.failed "+runID.String()+" wf a: boom") {
		t.Errorf("unexpected job.failed line:\n%s", s)
	}
	if !strings.Contains(s, "FAILED failed=a skipped=b") {
		t.Errorf("unexpected run.completed line:\n%s", s)
	}
}
