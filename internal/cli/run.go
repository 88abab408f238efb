package cli

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/orchestrator"
)

// Ошибки локальных команд.
var (
	// ErrRunNotSucceeded — run завершился не со статусом SUCCEEDED.
	ErrRunNotSucceeded = errors.New("run did not succeed")

	// ErrUnresolvedJobs — в workflow есть задачи, которые не удалось разрешить.
	ErrUnresolvedJobs = errors.New("workflow has unresolved jobs")
)

// RunOutput — результат команды run в режиме JSON.
type RunOutput struct {
	ID         uuid.UUID            `json:"id"`
	Workflow   string               `json:"workflow"`
	Status     domain.RunStatus     `json:"status"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Report     *orchestrator.Report `json:"report"`
}

// NewRunCmd создаёт команду локального выполнения workflow.
func NewRunCmd(env *Env) *cobra.Command {
	var file string
	var workers int
	var inputs []string
	var store, publish bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow definition locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := env.Output(cmd)

			if cmd.Flags().Changed("workers") {
				env.Settings.Engine.Workers = workers
			}

			def, err := env.Loader(nil).LoadFile(file)
			if err != nil {
				return err
			}

			extra, err := ParseInputs(inputs, ".")
			if err != nil {
				return err
			}

			d, err := openDeps(ctx, env.Settings, env.Logger, store, publish)
			if err != nil {
				return err
			}
			defer d.Close()

			runner := def.Runner(orchestrator.RunnerConfig{
				Store:  d.Store(),
				Events: d.Events(),
				Logger: env.Logger,
			})

			rec, report, err := runner.Execute(ctx, def.Workflow, def.MergeExternals(extra))
			if rec == nil {
				return err
			}

			printRun(out, rec, report)
			if err != nil {
				return err
			}
			if report.Status != domain.RunStatusSucceeded {
				return fmt.Errorf("%w: %s", ErrRunNotSucceeded, report.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow definition file (.yaml, .json, .hcl)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of jobs executed in parallel")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "External object override: name=text or name=@file (repeatable)")
	cmd.Flags().BoolVar(&store, "store", false, "Save the run record to PostgreSQL")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish run events to RabbitMQ")
	cmd.MarkFlagRequired("file")

	return cmd
}

// printRun выводит запись о run и отчёт.
func printRun(out *Output, rec *domain.RunRecord, report *orchestrator.Report) {
	if out.IsJSON() {
		out.JSON(RunOutput{
			ID:         rec.ID,
			Workflow:   rec.Workflow,
			Status:     rec.Status,
			StartedAt:  rec.StartedAt,
			FinishedAt: rec.FinishedAt,
			Report:     report,
		})
		return
	}

	headers := []string{"JOB", "TASK", "STATUS", "ERROR"}
	rows := make([][]string, len(report.Jobs))
	for i, job := range report.Jobs {
		rows[i] = []string{job.ID, job.Task, string(job.Status), job.Error}
	}
	out.Table(headers, rows)

	if report.MainOutput != nil {
		out.Value("main", *report.MainOutput)
	}
	for _, name := range slices.Sorted(maps.Keys(report.NamedOutputs)) {
		out.Value(name, report.NamedOutputs[name])
	}
	if report.Fatal != "" {
		out.Error(report.Fatal)
	}

	out.Success(fmt.Sprintf("Run %s %s in %s", rec.ID, rec.Status, rec.Duration().Round(time.Millisecond)))
}

// JobCheck — результат проверки одной задачи.
type JobCheck struct {
	ID    string `json:"id"`
	Task  string `json:"task"`
	Error string `json:"error,omitempty"`
}

// ValidateOutput — результат команды validate в режиме JSON.
type ValidateOutput struct {
	Workflow string       `json:"workflow"`
	Ports    domain.Ports `json:"ports"`
	Jobs     []JobCheck   `json:"jobs"`
}

// NewValidateCmd создаёт команду проверки определения без выполнения.
func NewValidateCmd(env *Env) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Resolve a workflow definition without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output(cmd)

			def, err := env.Loader(nil).LoadFile(file)
			if err != nil {
				return err
			}

			resolver := def.Orchestrator.Resolver()
			plan, err := resolver.Resolve(def.Workflow, def.Externals)
			if err != nil {
				return err
			}
			ports, _, err := resolver.Interface(def.Workflow)
			if err != nil {
				return err
			}

			result := ValidateOutput{Workflow: def.Workflow.Name, Ports: ports}
			failed := 0
			for _, job := range def.Workflow.Jobs {
				check := JobCheck{ID: job.ID, Task: job.Task}
				if jerr := plan.Err(job.ID); jerr != nil {
					check.Error = jerr.Error()
					failed++
				}
				result.Jobs = append(result.Jobs, check)
			}

			headers := []string{"JOB", "TASK", "RESULT"}
			rows := make([][]string, len(result.Jobs))
			for i, check := range result.Jobs {
				status := "ok"
				if check.Error != "" {
					status = check.Error
				}
				rows[i] = []string{check.ID, check.Task, status}
			}
			out.Print(headers, rows, result)

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrUnresolvedJobs, failed, len(result.Jobs))
			}
			if !out.IsJSON() {
				out.Success(fmt.Sprintf("%s is valid (%s)", def.Workflow.Name, filepath.Base(file)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow definition file (.yaml, .json, .hcl)")
	cmd.MarkFlagRequired("file")

	return cmd
}
