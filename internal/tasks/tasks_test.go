package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Textflow/internal/domain"
)

// --- Registry Tests ---

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	// Пустой реестр
	if r.Count() != 0 {
		t.Errorf("expected empty registry")
	}

	// Регистрация
	r.Register("wait", NewSleepTask(SleepSettings{}))
	if r.Count() != 1 {
		t.Errorf("expected 1 task, got %d", r.Count())
	}

	// Получение
	task, err := r.Get("wait")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if task.Type() != TypeSleep {
		t.Errorf("expected sleep, got %s", task.Type())
	}

	// Несуществующий объект
	_, err = r.Get("unknown")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := r.PortsOf("unknown", nil); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound from PortsOf, got %v", err)
	}

	// Clone не затрагивает исходный реестр
	clone := r.Clone()
	clone.Register("extra", NewYAMLTask())
	if r.Has("extra") {
		t.Error("clone must not change the original registry")
	}

	// Unregister
	r.Unregister("wait")
	if r.Has("wait") {
		t.Error("should not have wait after unregister")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	expected := []string{"join", "mime", "passthrough", "sleep", "split", "template", "yaml"}
	names := r.Names()
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("expected %s at %d, got %s", expected[i], i, names[i])
		}
	}
}

// --- Factory Tests ---

func TestFactory_Build(t *testing.T) {
	f := NewFactory()

	task, err := f.Build(TypeSplit, map[string]any{"separator": ",", "trim": "true"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := task.Execute(context.Background(), &Request{
		JobID:  "s",
		Inputs: map[string]domain.Value{"in": domain.Single(domain.NewText("doc", "a, b ,c"))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := resp.Outputs["out"]
	if out.Len() != 3 || out.Objects[1].Text() != "b" {
		t.Errorf("expected [a b c], got %v", out.Objects)
	}
}

func TestFactory_Errors(t *testing.T) {
	f := NewFactory()

	if _, err := f.Build("http", nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}

	if _, err := f.Build(TypeSleep, map[string]any{"duration": "soon"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	if _, err := f.Build(TypePassthrough, map[string]any{"kinds": []any{"text", ""}}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty kind, got %v", err)
	}
}

// --- Template Task Tests ---

func TestRender(t *testing.T) {
	ctx := NewContext("job", map[string]domain.Value{
		"name":  domain.Single(domain.NewText("n", "world")),
		"items": domain.Batch(domain.NewText("1", "a"), domain.NewText("2", "b")),
		"tree":  domain.Single(domain.NewTree("t", map[string]any{"count": 42})),
	}, map[string]any{"sep": "+"})

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain text", "no templates", "no templates"},
		{"single input", "Hello, {{ .Inputs.name }}!", "Hello, world!"},
		{"sprig upper", "{{ .Inputs.name | upper }}", "WORLD"},
		{"batch range", "{{ range .Inputs.items }}[{{ . }}]{{ end }}", "[a][b]"},
		{"sprig join", "{{ join .Vars.sep .Inputs.items }}", "a+b"},
		{"tree field", "{{ .Inputs.tree.count }}", "42"},
		{"job id", "{{ .Job }}", "job"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	ctx := NewContext("job", nil, nil)

	if _, err := Render("{{ .Inputs.name ", ctx); !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
	if _, err := Render("{{ .Inputs.missing }}", ctx); !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender for missing key, got %v", err)
	}
}

func TestTemplateTask(t *testing.T) {
	task := NewTemplateTask(TemplateSettings{
		Template: "{{ .Inputs.in | title }}",
		Fields:   map[string]any{"len": "{{ len .Inputs.in }}", "fixed": 1},
	})

	ports, err := task.Ports(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ports.Inputs) != 1 || ports.Inputs[0].Name != "in" {
		t.Errorf("expected default input in, got %v", ports.Inputs)
	}
	if len(ports.Outputs) != 2 {
		t.Errorf("expected outputs out and fields, got %v", ports.Outputs)
	}

	resp, err := task.Execute(context.Background(), &Request{
		JobID:  "greet",
		Inputs: map[string]domain.Value{"in": domain.Single(domain.NewText("x", "hello"))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := resp.Outputs["out"].First().Text(); got != "Hello" {
		t.Errorf("expected Hello, got %q", got)
	}

	fields, ok := resp.Outputs["fields"].First().Data.(map[string]any)
	if !ok {
		t.Fatalf("fields should be a tree, got %T", resp.Outputs["fields"].First().Data)
	}
	if fields["len"] != "5" || fields["fixed"] != 1 {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestTemplateTask_JobConfigOverrides(t *testing.T) {
	task := NewTemplateTask(TemplateSettings{})

	// Без шаблона задача невалидна
	if _, err := task.Ports(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	config := map[string]any{"template": "{{ .Inputs.a }}-{{ .Inputs.b }}", "inputs": []any{"b", "a"}}
	ports, err := task.Ports(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ports.Inputs[0].Name != "a" || ports.Inputs[1].Name != "b" {
		t.Errorf("inputs should be sorted, got %v", ports.Inputs)
	}

	// Настройки объекта не меняются
	if _, err := task.Ports(nil); err == nil {
		t.Error("job config must not leak into the task object")
	}
}

// --- Text Tasks Tests ---

func TestSplitJoin(t *testing.T) {
	split := NewSplitTask(SplitSettings{SkipEmpty: true})
	join := NewJoinTask(JoinSettings{Separator: " | "})

	resp, err := split.Execute(context.Background(), &Request{
		JobID:  "split",
		Inputs: map[string]domain.Value{"in": domain.Single(domain.NewText("doc", "one\n\ntwo\n"))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := resp.Outputs["out"]
	if parts.Len() != 2 {
		t.Fatalf("expected 2 parts, got %d", parts.Len())
	}
	if parts.Objects[0].Name != "split.out[0]" {
		t.Errorf("unexpected object name %s", parts.Objects[0].Name)
	}

	resp, err = join.Execute(context.Background(), &Request{
		JobID:  "join",
		Inputs: map[string]domain.Value{"in": parts},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.Outputs["out"].First().Text(); got != "one | two" {
		t.Errorf("expected 'one | two', got %q", got)
	}

	// Пустой пакет
	resp, err = join.Execute(context.Background(), &Request{
		JobID:  "join",
		Inputs: map[string]domain.Value{"in": domain.Batch()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.Outputs["out"].First().Text(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestSplit_MissingInput(t *testing.T) {
	_, err := NewSplitTask(SplitSettings{}).Execute(context.Background(), &Request{JobID: "s"})
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

// --- YAML / MIME Tests ---

func TestYAMLTask(t *testing.T) {
	task := NewYAMLTask()

	resp, err := task.Execute(context.Background(), &Request{
		JobID:  "parse",
		Inputs: map[string]domain.Value{"in": domain.Single(domain.NewText("doc", "name: demo\ntags: [a, b]\n"))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obj := resp.Outputs["out"].First()
	if obj.Kind != domain.KindTree {
		t.Errorf("expected tree, got %s", obj.Kind)
	}
	tree := obj.Data.(map[string]any)
	if tree["name"] != "demo" {
		t.Errorf("expected name demo, got %v", tree["name"])
	}

	_, err = task.Execute(context.Background(), &Request{
		JobID:  "parse",
		Inputs: map[string]domain.Value{"in": domain.Single(domain.NewText("bad", "a: [b"))},
	})
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestMIMETask(t *testing.T) {
	resp, err := NewMIMETask(MIMESettings{}).Execute(context.Background(), &Request{
		JobID:  "pack",
		Inputs: map[string]domain.Value{"in": domain.Single(domain.NewText("doc", "<html><body>hi</body></html>"))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bundle := resp.Outputs["out"].First().Data.(*domain.MIMEBundle)
	if !strings.HasPrefix(bundle.ContentType, "text/html") {
		t.Errorf("expected text/html, got %s", bundle.ContentType)
	}

	resp, err = NewMIMETask(MIMESettings{}).Execute(context.Background(), &Request{
		JobID:  "pack",
		Config: map[string]any{"content_type": "text/markdown"},
		Inputs: map[string]domain.Value{"in": domain.Single(domain.NewText("doc", "# hi"))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := resp.Outputs["out"].First().Data.(*domain.MIMEBundle).ContentType; ct != "text/markdown" {
		t.Errorf("expected configured content type, got %s", ct)
	}
}

// --- Sleep / Passthrough Tests ---

func TestSleepTask(t *testing.T) {
	task := NewSleepTask(SleepSettings{Duration: 10 * time.Millisecond})

	start := time.Now()
	resp, err := task.Execute(context.Background(), &Request{JobID: "wait"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("sleep finished too early")
	}
	if got := resp.Outputs["out"].First().Text(); got != "wait" {
		t.Errorf("expected job id as output, got %q", got)
	}
}

func TestSleepTask_Cancelled(t *testing.T) {
	task := NewSleepTask(SleepSettings{Duration: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := task.Execute(ctx, &Request{JobID: "wait"})
	if !errors.Is(err, ErrTaskCancelled) {
		t.Errorf("expected ErrTaskCancelled, got %v", err)
	}
}

func TestSleepTask_Fail(t *testing.T) {
	task := NewSleepTask(SleepSettings{})

	_, err := task.Execute(context.Background(), &Request{
		JobID:  "boom",
		Config: map[string]any{"fail": true, "message": "kaboom"},
	})
	if !errors.Is(err, ErrForcedFailure) {
		t.Fatalf("expected ErrForcedFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("expected message in error, got %v", err)
	}
}

func TestPassthroughTask(t *testing.T) {
	task := NewPassthroughTask(PassthroughSettings{Kinds: []string{"text"}})

	ports, err := task.Ports(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ports.Outputs[0].Batch || ports.Outputs[0].Kinds[0] != domain.KindText {
		t.Errorf("unexpected ports: %+v", ports)
	}

	in := domain.Batch(domain.NewText("a", "1"), domain.NewText("b", "2"))
	resp, err := task.Execute(context.Background(), &Request{JobID: "p", Inputs: map[string]domain.Value{"in": in}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Outputs["out"].Objects[1] != in.Objects[1] {
		t.Error("passthrough should forward the same objects")
	}
}

func TestPassthroughTask_HonoursPublishedKind(t *testing.T) {
	task := NewPassthroughTask(PassthroughSettings{Kinds: []string{"text", "tree"}})
	in := domain.Single(domain.NewText("a", "1"))

	_, err := task.Execute(context.Background(), &Request{
		JobID:       "p",
		Inputs:      map[string]domain.Value{"in": in},
		OutputKinds: map[string]domain.Kind{"out": domain.KindTree},
	})
	if !errors.Is(err, ErrKindNotProduced) {
		t.Fatalf("expected ErrKindNotProduced, got %v", err)
	}

	resp, err := task.Execute(context.Background(), &Request{
		JobID:       "p",
		Inputs:      map[string]domain.Value{"in": in},
		OutputKinds: map[string]domain.Kind{"out": domain.KindAny},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Outputs["out"].First() != in.First() {
		t.Error("passthrough should forward the same object")
	}
}
