package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Textflow/internal/mq"
)

// NewEventsCmd создаёт команду чтения событий о runs из RabbitMQ.
func NewEventsCmd(env *Env) *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print run events from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := env.Output(cmd)

			conn, err := connectMQ(ctx, env.Settings, env.Logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			consumer := mq.NewConsumer(conn, env.Logger, mq.ConsumerConfig{
				Queue:   mq.Queue(queue),
				Handler: eventPrinter(out).Handler(),
			})

			err = consumer.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&queue, "queue", string(mq.QueueRunsCompleted), "Queue to consume")

	return cmd
}

// eventPrinter возвращает обработчики, печатающие события.
func eventPrinter(out *Output) mq.EventHandlers {
	return mq.EventHandlers{
		RunCompleted: func(_ context.Context, p mq.RunCompletedPayload) error {
			if out.IsJSON() {
				out.JSON(p)
				return nil
			}
			line := fmt.Sprintf("run.completed %s %s %s", p.RunID, p.Workflow, p.Status)
			if len(p.FailedJobs) > 0 {
				line += " failed=" + strings.Join(p.FailedJobs, ",")
			}
			if len(p.SkippedJobs) > 0 {
				line += " skipped=" + strings.Join(p.SkippedJobs, ",")
			}
			fmt.Fprintln(out.w, line)
			return nil
		},
		JobFailed: func(_ context.Context, p mq.JobFailedPayload) error {
			if out.IsJSON() {
				out.JSON(p)
				return nil
			}
			fmt.Fprintf(out.w, "job.failed %s %s %s: %s\n", p.RunID, p.Workflow, p.JobID, p.Error)
			return nil
		},
	}
}
