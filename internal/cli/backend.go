package cli

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

// NewBackendCmd создаёт команды для внешнего сервиса выполнения.
func NewBackendCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Inspect the test runner backend",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Check the runner backend",
			RunE: func(cmd *cobra.Command, args []string) error {
				health, err := clientFn().BackendHealth()
				if err != nil {
					return err
				}

				outputFn().Fields([][2]string{
					{"URL", health.URL},
					{"Status", health.Status},
					{"Engine", health.Engine},
					{"Mode", health.Mode},
					{"Tests dir", health.TestsDir},
					{"In container", strconv.FormatBool(health.InsideContainer)},
				}, health)
				return nil
			},
		},
		&cobra.Command{
			Use:   "logs [CONTAINER]",
			Short: "Stream logs of the runner container",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := "default"
				if len(args) == 1 {
					name = args[0]
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return clientFn().ContainerLogs(ctx, name, outputFn().Writer())
			},
		},
	)

	return cmd
}
