package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Textflow/internal/definition"
)

// NewRemoteCmd создаёт группу команд для работы с API сервером.
func NewRemoteCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run workflows and inspect runs through the API server",
	}

	cmd.AddCommand(
		newRemoteRunCmd(env),
		newRemoteShowCmd(env),
		newRemoteListCmd(env),
	)

	return cmd
}

func newRemoteRunCmd(env *Env) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a workflow definition to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output(cmd)

			format, err := definition.FormatFromPath(file)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read definition: %w", err)
			}

			run, err := env.Client().SubmitRun(data, string(format))
			if err != nil {
				return err
			}

			printRemoteRun(out, run)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow definition file (.yaml, .json, .hcl)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newRemoteShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := env.Client().GetRun(args[0])
			if err != nil {
				return err
			}

			printRemoteRun(env.Output(cmd), run)
			return nil
		},
	}
}

func newRemoteListCmd(env *Env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list WORKFLOW",
		Short: "List recent runs of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := env.Client().ListRuns(args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "STARTED", "DURATION_MS"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.Status, r.StartedAt, strconv.FormatInt(r.DurationMs, 10)}
			}

			env.Output(cmd).Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

// printRemoteRun выводит run из API.
func printRemoteRun(out *Output, run *RunResponse) {
	headers := []string{"ID", "WORKFLOW", "STATUS", "DURATION_MS"}
	rows := [][]string{{run.ID, run.Workflow, run.Status, strconv.FormatInt(run.DurationMs, 10)}}
	out.Print(headers, rows, run)
}
