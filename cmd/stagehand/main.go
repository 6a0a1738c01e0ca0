// Stagehand CLI управляет библиотекой features, очередью запусков,
// окружениями и schedules через HTTP API.
//
// Использование:
//
//	stagehand [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	feature   Библиотека features и прямой запуск
//	env       Окружения
//	config    Настройки выполнения
//	queue     Очередь запусков
//	runs      Журнал запусков и артефакты
//	logs      Лог запусков (--follow для потока)
//	ask       Команда на естественном языке
//	backend   Внешний сервис выполнения
//	schedule  Периодические запуски
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Stagehand/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	defaultURL := os.Getenv("STAGEHAND_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	rootCmd := &cobra.Command{
		Use:           "stagehand",
		Short:         "Stagehand CLI — end-to-end test runner console",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL (env STAGEHAND_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewFeatureCmd(clientFn, outputFn),
		cli.NewEnvCmd(clientFn, outputFn),
		cli.NewConfigCmd(clientFn, outputFn),
		cli.NewQueueCmd(clientFn, outputFn),
		cli.NewRunsCmd(clientFn, outputFn),
		cli.NewLogsCmd(clientFn, outputFn),
		cli.NewAskCmd(clientFn, outputFn),
		cli.NewBackendCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
