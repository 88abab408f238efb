package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/engine"
	"github.com/shaiso/Textflow/internal/tasks"
)

// TypeWorkflow — тип объекта задачи "вложенный workflow".
const TypeWorkflow = "workflow"

// WorkflowTask — workflow, используемый как объект задачи.
//
// Входы — внешние объекты, на которые ссылаются задачи вложенного workflow.
// Выходы — его заявленные выходы; главный выход называется "main".
// Вложенный run выполняется тем же Orchestrator. Если он завершился не
// SUCCEEDED, задача падает с первой ошибкой вложенного run.
type WorkflowTask struct {
	wf   *domain.Workflow
	orch *Orchestrator

	mu        sync.Mutex
	computing bool
	done      bool
	ports     domain.Ports
	err       error
}

// NewWorkflowTask создаёт объект задачи для workflow.
// orch выполняет вложенный run и разрешает его привязки.
func NewWorkflowTask(wf *domain.Workflow, orch *Orchestrator) *WorkflowTask {
	return &WorkflowTask{wf: wf, orch: orch}
}

// Type возвращает тип объекта задачи.
func (t *WorkflowTask) Type() string {
	return TypeWorkflow
}

// Ports возвращает порты вложенного workflow.
//
// Порты вычисляются один раз. Повторный вход во время вычисления означает,
// что workflow через свои задачи ссылается сам на себя.
func (t *WorkflowTask) Ports(map[string]any) (domain.Ports, error) {
	t.mu.Lock()
	if t.done {
		defer t.mu.Unlock()
		return t.ports, t.err
	}
	if t.computing {
		t.mu.Unlock()
		return domain.Ports{}, fmt.Errorf("%w: %s includes itself", ErrRecursiveWorkflow, t.wf.Name)
	}
	t.computing = true
	t.mu.Unlock()

	ports, plan, err := t.orch.Resolver().Interface(t.wf)
	if err == nil {
		for _, id := range plan.FailedJobs() {
			if errors.Is(plan.Err(id), ErrRecursiveWorkflow) {
				err = fmt.Errorf("%w: %s includes itself through job %s", ErrRecursiveWorkflow, t.wf.Name, id)
				break
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.computing = false
	t.done = true
	t.ports, t.err = ports, err
	return ports, err
}

// stackKey — ключ контекста со стеком выполняемых вложенных workflow.
type stackKey struct{}

// Execute выполняет вложенный workflow.
func (t *WorkflowTask) Execute(ctx context.Context, req *tasks.Request) (*tasks.Response, error) {
	stack, _ := ctx.Value(stackKey{}).([]string)
	if slices.Contains(stack, t.wf.Name) {
		return nil, fmt.Errorf("%w: %s is already running in %v", ErrRecursiveWorkflow, t.wf.Name, stack)
	}
	ctx = context.WithValue(ctx, stackKey{}, append(slices.Clone(stack), t.wf.Name))

	externals := make(domain.ObjectSet, len(req.Inputs))
	for name, v := range req.Inputs {
		externals[name] = v
	}

	report, err := t.orch.Run(ctx, t.wf, externals)
	if err != nil {
		return nil, fmt.Errorf("nested workflow %s: %w", t.wf.Name, err)
	}
	if report.Status != domain.RunStatusSucceeded {
		msg := string(report.Status)
		if len(report.Errors) > 0 {
			msg = report.Errors[0]
		}
		return nil, fmt.Errorf("nested workflow %s finished with status %s: %s", t.wf.Name, report.Status, msg)
	}

	resp := tasks.NewResponse(nil)
	if report.MainOutput != nil {
		resp.Outputs[engine.MainOutputPort] = *report.MainOutput
	}
	for name, v := range report.NamedOutputs {
		resp.Outputs[name] = v
	}
	return resp, nil
}
