package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// NewConfigCmd создаёт команды для настроек выполнения.
func NewConfigCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change execution settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(clientFn, outputFn),
		newConfigSetCmd(clientFn, outputFn),
	)

	return cmd
}

func printExecutionConfig(out *Output, cfg *ExecutionConfig) {
	out.Fields([][2]string{
		{"Mode", cfg.Mode},
		{"Method", cfg.Method},
		{"Backend URL", cfg.BackendURL},
		{"Container", cfg.ContainerName},
	}, cfg)
}

func newConfigShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show execution settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := clientFn().GetConfig()
			if err != nil {
				return err
			}
			printExecutionConfig(outputFn(), cfg)
			return nil
		},
	}
}

func newConfigSetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var mode, method, backendURL, container string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change execution settings",
		Long: `Change execution settings. Only the given flags are updated.

Examples:
  stagehand config set --mode real --method docker --container e2e-runner
  stagehand config set --mode simulated`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req UpdateConfigRequest
			flags := cmd.Flags()
			if flags.Changed("mode") {
				req.Mode = &mode
			}
			if flags.Changed("method") {
				req.Method = &method
			}
			if flags.Changed("backend-url") {
				req.BackendURL = &backendURL
			}
			if flags.Changed("container") {
				req.ContainerName = &container
			}
			if req == (UpdateConfigRequest{}) {
				return errors.New("nothing to change, pass at least one flag")
			}

			cfg, err := clientFn().UpdateConfig(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success("Execution settings updated")
			printExecutionConfig(out, cfg)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Execution mode: simulated or real")
	cmd.Flags().StringVar(&method, "method", "", "Execution method: host or docker")
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "Runner backend URL")
	cmd.Flags().StringVar(&container, "container", "", "Runner container name")

	return cmd
}
