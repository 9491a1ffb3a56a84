// Reactor CLI — инструмент командной строки для работы с workflows.
//
// Использование:
//
//	reactor [--json] <command> [flags]
//
// Команды:
//
//	workflow  Управление workflows (PostgreSQL, DB_URL)
//	validate  Проверка файла определения workflow
//	evaluate  Проверка дерева условий на тестовых данных
//	cron      Вычисление времени запусков по cron-выражению
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Reactor/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "reactor",
		Short:         "Reactor CLI — CRM workflow automation tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewWorkflowCmd(outputFn),
		cli.NewValidateCmd(outputFn),
		cli.NewEvaluateCmd(outputFn),
		cli.NewCronCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
