package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewAskCmd создаёт команду для запросов на естественном языке.
func NewAskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "ask TEXT...",
		Short: "Ask the assistant, e.g. \"run the login scenario\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := clientFn().Ask(strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := outputFn()
			if out.JSONMode() {
				out.JSON(reply)
				return nil
			}
			out.Line(reply.Reply)
			return nil
		},
	}
}
