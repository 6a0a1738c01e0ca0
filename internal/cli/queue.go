package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewQueueCmd создаёт команды для очереди запусков.
func NewQueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and fill the run queue",
	}

	cmd.AddCommand(
		newQueueShowCmd(clientFn, outputFn),
		newQueueAddCmd(clientFn, outputFn),
		newQueueCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newQueueShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active run and pending requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := clientFn().GetQueue()
			if err != nil {
				return err
			}

			var rows [][]string
			if queue.Active != nil {
				rows = append(rows, queueRow(*queue.Active))
			}
			for _, r := range queue.Pending {
				rows = append(rows, queueRow(r))
			}
			outputFn().Print([]string{"ID", "FEATURE", "STATE", "DRY_RUN", "ENQUEUED"}, rows, queue)
			return nil
		},
	}
}

func queueRow(r RunRequestResponse) []string {
	return []string{r.ID, r.Feature.Title, r.State, strconv.FormatBool(r.DryRun), r.EnqueuedAt}
}

func newQueueAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tag string
	var all, dryRun bool
	var tags []string

	cmd := &cobra.Command{
		Use:   "add [FEATURE_ID...]",
		Short: "Queue features for a run",
		Long: `Queue features by ID, by tag or the whole library.

Examples:
  stagehand queue add login checkout
  stagehand queue add --tag @smoke
  stagehand queue add --all --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && tag == "" && !all {
				return errors.New("pass feature IDs, --tag or --all")
			}

			resp, err := clientFn().Enqueue(EnqueueRequest{
				FeatureIDs: args,
				Tag:        tag,
				All:        all,
				Tags:       tags,
				DryRun:     dryRun,
			})
			if err != nil {
				return err
			}

			out := outputFn()
			if out.JSONMode() {
				out.JSON(resp)
				return nil
			}
			out.Success(fmt.Sprintf("Queued %d run(s)", resp.Enqueued))
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Queue every feature carrying this tag")
	cmd.Flags().BoolVar(&all, "all", false, "Queue every feature in the library")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tag filter passed to the runner")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would run without executing")

	return cmd
}

func newQueueCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard pending requests (the active run continues)",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := clientFn().CancelQueue()
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Discarded %d pending request(s)", n))
			return nil
		},
	}
}
