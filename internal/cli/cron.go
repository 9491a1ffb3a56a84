package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Reactor/internal/scheduler"
)

// NewCronCmd создаёт команду вычисления времени запусков по cron-выражению.
func NewCronCmd(outputFn func() *Output) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "cron EXPRESSION",
		Short: "Show upcoming run times for a cron expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			expr := args[0]
			if err := scheduler.ValidateCronExpr(expr); err != nil {
				return err
			}

			from := time.Now()
			times := make([]string, 0, count)
			for i := 0; i < count; i++ {
				next, err := scheduler.NextDue(expr, from)
				if err != nil {
					return err
				}
				times = append(times, next.Format(time.RFC3339))
				from = next
			}

			rows := make([][]string, len(times))
			for i, t := range times {
				rows[i] = []string{t}
			}
			out.Print([]string{"NEXT_RUN"}, rows, map[string]any{
				"expression": expr,
				"next_runs":  times,
			})
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 5, "Number of upcoming runs to show")

	return cmd
}
