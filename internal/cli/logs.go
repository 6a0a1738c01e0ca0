package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewLogsCmd создаёт команду чтения лога запусков.
func NewLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var since uint64
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the run log",
		Long: `Print the run log. With --follow the command keeps streaming new
lines over a websocket until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			emit := func(l LogLine) {
				if runID != "" && l.RunID != runID {
					return
				}
				if out.JSONMode() {
					out.JSON(l)
					return
				}
				out.Line(l.Text)
			}

			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return client.FollowLogs(ctx, since, emit)
			}

			logs, err := client.Logs(since)
			if err != nil {
				return err
			}
			for _, l := range logs.Lines {
				emit(l)
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&since, "since", 0, "Only lines after this sequence number")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new lines")
	cmd.Flags().StringVar(&runID, "run", "", "Only lines of this run")

	return cmd
}
