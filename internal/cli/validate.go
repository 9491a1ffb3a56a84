package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Reactor/internal/domain"
	"github.com/shaiso/Reactor/internal/scheduler"
	"github.com/shaiso/Reactor/internal/validate"
)

// NewValidateCmd создаёт команду проверки файла определения workflow.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	var file string
	var strictCron bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a workflow definition file",
		Long: `Validate a workflow definition file.

Reports all problems at once, not just the first one.
With --strict-cron the schedule expression is additionally parsed
by the scheduler's cron parser.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read definition file: %w", err)
			}

			var wf domain.Workflow
			if err := json.Unmarshal(data, &wf); err != nil {
				return fmt.Errorf("parse definition file: %w", err)
			}

			errs := validate.Validate(&wf)

			if strictCron && wf.IsTimeBased() && wf.ScheduleCron != "" {
				if err := scheduler.ValidateCronExpr(wf.ScheduleCron); err != nil {
					errs = append(errs, validate.Error{
						Field:   "schedule_cron",
						Message: err.Error(),
					})
				}
			}

			if len(errs) == 0 {
				out.Success("Definition is valid")
				out.Print(
					[]string{"NAME", "TRIGGER", "STEPS"},
					[][]string{{wf.Name, wf.TriggerType, fmt.Sprintf("%d", len(wf.Steps))}},
					map[string]any{"valid": true},
				)
				return nil
			}

			headers := []string{"FIELD", "MESSAGE"}
			rows := make([][]string, len(errs))
			for i, e := range errs {
				rows[i] = []string{e.Field, e.Message}
			}
			out.Print(headers, rows, map[string]any{"valid": false, "errors": errs})

			return fmt.Errorf("definition has %d problem(s)", len(errs))
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to workflow definition JSON (required)")
	cmd.Flags().BoolVar(&strictCron, "strict-cron", false, "Parse schedule_cron with the scheduler's parser")
	cmd.MarkFlagRequired("file")

	return cmd
}
