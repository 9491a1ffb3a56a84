package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Reactor/internal/repo"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(outputFn),
		newWorkflowShowCmd(outputFn),
		newWorkflowActivateCmd(outputFn, true),
		newWorkflowActivateCmd(outputFn, false),
		newWorkflowDeleteCmd(outputFn),
	)

	return cmd
}

// withWorkflowRepo открывает соединение с БД на время работы команды.
func withWorkflowRepo(cmd *cobra.Command, fn func(*repo.WorkflowRepo) error) error {
	pool, err := repo.NewPool(cmd.Context())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(repo.NewWorkflowRepo(pool))
}

func newWorkflowListCmd(outputFn func() *Output) *cobra.Command {
	var moduleID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active workflows of a module",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withWorkflowRepo(cmd, func(workflows *repo.WorkflowRepo) error {
				list, err := workflows.ListActiveForModule(cmd.Context(), moduleID)
				if err != nil {
					return err
				}

				headers := []string{"ID", "NAME", "TRIGGER", "PRIORITY", "RUNS", "SUCCESS_%"}
				rows := make([][]string, len(list))
				for i, wf := range list {
					rows[i] = []string{
						wf.ID.String(),
						wf.Name,
						wf.TriggerType,
						strconv.Itoa(wf.Priority),
						strconv.Itoa(wf.ExecutionCount),
						formatPercent(wf.SuccessRate()),
					}
				}

				out.Print(headers, rows, list)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&moduleID, "module", 0, "CRM module ID (required)")
	cmd.MarkFlagRequired("module")

	return cmd
}

func newWorkflowShowCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid workflow id: %s", args[0])
			}

			return withWorkflowRepo(cmd, func(workflows *repo.WorkflowRepo) error {
				wf, err := workflows.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}

				out.Print(
					[]string{"ID", "NAME", "TRIGGER", "ACTIVE", "STEPS", "RUNS", "LAST_RUN"},
					[][]string{{
						wf.ID.String(),
						wf.Name,
						wf.TriggerType,
						strconv.FormatBool(wf.IsActive),
						strconv.Itoa(len(wf.Steps)),
						strconv.Itoa(wf.ExecutionCount),
						formatTime(wf.LastRunAt),
					}},
					wf,
				)
				return nil
			})
		},
	}
}

func newWorkflowActivateCmd(outputFn func() *Output, activate bool) *cobra.Command {
	use, short, done := "activate ID", "Activate a workflow", "Workflow activated"
	if !activate {
		use, short, done = "deactivate ID", "Deactivate a workflow", "Workflow deactivated"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid workflow id: %s", args[0])
			}

			return withWorkflowRepo(cmd, func(workflows *repo.WorkflowRepo) error {
				wf, err := workflows.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}

				if activate {
					wf.Activate(time.Now())
				} else {
					wf.Deactivate(time.Now())
				}
				if err := workflows.Save(cmd.Context(), wf); err != nil {
					return err
				}

				out.Success(fmt.Sprintf("%s: %s", done, wf.ID))
				return nil
			})
		},
	}
}

func newWorkflowDeleteCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow with its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid workflow id: %s", args[0])
			}

			return withWorkflowRepo(cmd, func(workflows *repo.WorkflowRepo) error {
				if err := workflows.Delete(cmd.Context(), id); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Workflow deleted: %s", id))
				return nil
			})
		},
	}
}

// formatTime форматирует опциональное время для таблицы.
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
