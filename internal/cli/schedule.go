package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/scheduler"
)

// NewScheduleCmd создаёт команду периодического запуска workflow.
func NewScheduleCmd(env *Env) *cobra.Command {
	var file, cronExpr, timezone string
	var count int
	var inputs []string
	var store, publish bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-run a workflow definition on a cron schedule",
		Long: `Re-run a workflow definition on a cron schedule.

The definition file is re-read before every run. Runs are independent:
a failed run is logged and the schedule continues.

Examples:
  textflow schedule -f wf.yaml --cron "*/5 * * * *"
  textflow schedule -f wf.yaml --cron "0 9 * * 1-5" --tz Europe/Moscow --store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			extra, err := ParseInputs(inputs, ".")
			if err != nil {
				return err
			}

			d, err := openDeps(ctx, env.Settings, env.Logger, store, publish)
			if err != nil {
				return err
			}
			defer d.Close()

			sched, err := scheduler.New(scheduler.Config{
				Schedule: domain.Schedule{
					CronExpr:       cronExpr,
					Timezone:       timezone,
					DefinitionPath: file,
				},
				Loader:    env.Loader(nil),
				Store:     d.Store(),
				Events:    d.Events(),
				Externals: extra,
				MaxRuns:   count,
				Logger:    env.Logger,
			})
			if err != nil {
				return err
			}

			return sched.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow definition file (.yaml, .json, .hcl)")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (5 fields)")
	cmd.Flags().StringVar(&timezone, "tz", "UTC", "Timezone for the cron expression")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many runs (0 = unlimited)")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "External object override: name=text or name=@file (repeatable)")
	cmd.Flags().BoolVar(&store, "store", false, "Save run records to PostgreSQL")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish run events to RabbitMQ")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("cron")

	return cmd
}
