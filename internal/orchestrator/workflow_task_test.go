package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/engine"
	"github.com/shaiso/Textflow/internal/tasks"
)

// innerWorkflow переводит внешний объект text в верхний регистр.
func innerWorkflow() *domain.Workflow {
	return &domain.Workflow{Name: "inner", Jobs: []domain.Job{
		job("up", "upper", map[string]domain.Source{"in": domain.External("text")}, mainClaim),
	}}
}

func TestWorkflowTask_Ports(t *testing.T) {
	reg := testRegistry()
	o := testOrchestrator(reg, 1)
	task := NewWorkflowTask(innerWorkflow(), o)

	ports, err := task.Ports(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in, ok := ports.Input("text")
	if !ok || !in.Kinds.Accepts(domain.KindText) || in.Optional {
		t.Errorf("unexpected input port: %+v", in)
	}
	out, ok := ports.Output(engine.MainOutputPort)
	if !ok || len(out.Kinds) != 1 || out.Kinds[0] != domain.KindText {
		t.Errorf("unexpected output port: %+v", out)
	}
	if task.Type() != TypeWorkflow {
		t.Errorf("expected type %s, got %s", TypeWorkflow, task.Type())
	}
}

func TestWorkflowTask_Nested(t *testing.T) {
	reg := testRegistry()
	o := testOrchestrator(reg, 1)
	reg.Register("inner", NewWorkflowTask(innerWorkflow(), o))

	outer := &domain.Workflow{Name: "outer", Jobs: []domain.Job{
		job("a", "hello", nil, nil),
		job("n", "inner",
			map[string]domain.Source{"text": domain.JobOutput("a", "out")},
			map[string]domain.OutputClaim{"main": {Main: true}}),
	}}

	report := mustRun(t, o, outer)
	if report.Status != domain.RunStatusSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s: %v", report.Status, report.Errors)
	}
	if report.MainOutput == nil || report.MainOutput.First().Text() != "HELLO" {
		t.Errorf("unexpected main output: %v", report.MainOutput)
	}
}

func TestWorkflowTask_NestedFailure(t *testing.T) {
	reg := testRegistry()
	o := testOrchestrator(reg, 1)
	reg.Register("broken", NewWorkflowTask(&domain.Workflow{Name: "broken", Jobs: []domain.Job{
		job("f", "fail", nil, mainClaim),
	}}, o))

	report := mustRun(t, o, &domain.Workflow{Name: "outer", Jobs: []domain.Job{
		job("n", "broken", nil, nil),
	}})

	n, _ := report.Job("n")
	if n.Status != domain.JobStatusFailed || !errors.Is(n.Err, engine.ErrTaskExecutionFailure) {
		t.Errorf("expected nested failure to fail the job, got %+v", n)
	}
}

func TestWorkflowTask_Recursive(t *testing.T) {
	reg := testRegistry()
	o := testOrchestrator(reg, 1)

	self := &domain.Workflow{Name: "self", Jobs: []domain.Job{
		job("loop", "self", nil, nil),
	}}
	reg.Register("self", NewWorkflowTask(self, o))

	report := mustRun(t, o, self)

	if !report.HasError(ErrRecursiveWorkflow) {
		t.Fatalf("expected ErrRecursiveWorkflow, got %v", report.Errors)
	}
	if report.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", report.Status)
	}
}

func TestWorkflowTask_RecursiveExecution(t *testing.T) {
	reg := testRegistry()
	o := testOrchestrator(reg, 1)
	task := NewWorkflowTask(innerWorkflow(), o)

	ctx := context.WithValue(context.Background(), stackKey{}, []string{"outer", "inner"})
	_, err := task.Execute(ctx, &tasks.Request{JobID: "n"})
	if !errors.Is(err, ErrRecursiveWorkflow) {
		t.Errorf("expected ErrRecursiveWorkflow, got %v", err)
	}
}
