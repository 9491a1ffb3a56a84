package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Reactor/internal/conditions"
)

// NewEvaluateCmd создаёт команду проверки дерева условий на тестовых данных.
func NewEvaluateCmd(outputFn func() *Output) *cobra.Command {
	var conditionsFile string
	var contextFile string
	var changesFile string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a condition tree against sample data",
		Long: `Evaluate a condition tree against sample data.

The conditions file holds the condition tree as stored in a step
definition. The context file holds the record data. The optional
changes file holds field changes as {"field": {"old": ..., "new": ...}}
for the changed/changed_to/changed_from operators.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			rawConditions, err := readJSONFile(conditionsFile)
			if err != nil {
				return fmt.Errorf("conditions: %w", err)
			}

			tree, err := conditions.ParseTree(rawConditions)
			if err != nil {
				return fmt.Errorf("parse conditions: %w", err)
			}

			ctx := conditions.Context{}
			if contextFile != "" {
				rawCtx, err := readJSONFile(contextFile)
				if err != nil {
					return fmt.Errorf("context: %w", err)
				}
				data, ok := rawCtx.(map[string]any)
				if !ok {
					return fmt.Errorf("context file must hold a JSON object")
				}
				ctx.Data = data
			}
			if changesFile != "" {
				rawChanges, err := readJSONFile(changesFile)
				if err != nil {
					return fmt.Errorf("changes: %w", err)
				}
				ctx.Changes = conditions.ChangesFrom(rawChanges)
			}

			matched := conditions.Evaluate(tree, ctx)

			out.Print(
				[]string{"MATCHED"},
				[][]string{{fmt.Sprintf("%t", matched)}},
				map[string]any{"matched": matched},
			)

			if !matched {
				// Ненулевой код выхода для скриптов
				cmd.SilenceErrors = true
				return fmt.Errorf("conditions not met")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&conditionsFile, "conditions", "", "Path to condition tree JSON (required)")
	cmd.Flags().StringVar(&contextFile, "context", "", "Path to record data JSON")
	cmd.Flags().StringVar(&changesFile, "changes", "", "Path to field changes JSON")
	cmd.MarkFlagRequired("conditions")

	return cmd
}

// readJSONFile читает и парсит JSON-файл.
func readJSONFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
