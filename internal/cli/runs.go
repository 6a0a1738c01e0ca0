package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewRunsCmd создаёт команды для журнала запусков.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"history"},
		Short:   "Browse the run history",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsArtifactsCmd(clientFn, outputFn),
	)

	return cmd
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed runs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, total, err := clientFn().ListRuns(limit, offset)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.FeatureTitle, r.Status, r.Origin, formatDuration(r.DurationMs), r.Timestamp}
			}

			out := outputFn()
			out.Print([]string{"ID", "FEATURE", "STATUS", "ORIGIN", "DURATION", "TIMESTAMP"}, rows, runs)
			if !out.JSONMode() {
				out.Success(fmt.Sprintf("%d of %d run(s)", len(runs), total))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many runs")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a run record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(args[0])
			if err != nil {
				return err
			}

			outputFn().Fields([][2]string{
				{"ID", run.ID},
				{"Feature", run.FeatureTitle + " (" + run.FeatureID + ")"},
				{"Status", run.Status},
				{"Origin", run.Origin},
				{"Duration", formatDuration(run.DurationMs)},
				{"Screenshots", strconv.Itoa(len(run.Screenshots))},
				{"Timestamp", run.Timestamp},
			}, run)
			return nil
		},
	}
}

func newRunsArtifactsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var download bool
	var target string

	cmd := &cobra.Command{
		Use:   "artifacts ID",
		Short: "Show or download the artifacts of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if !download {
				bundle, err := client.GetArtifacts(args[0])
				if err != nil {
					return err
				}
				out.Fields([][2]string{
					{"Run", bundle.RunID},
					{"Origin", bundle.Origin},
					{"Filename", bundle.Filename},
					{"URL", bundle.URL},
				}, bundle)
				return nil
			}

			name := target
			if name == "" {
				name = "run-" + args[0] + "-artifacts.download"
			}
			f, err := os.Create(name)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}

			filename, err := client.DownloadArtifacts(cmd.Context(), args[0], f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(name)
				return err
			}

			// Имя из Content-Disposition, если путь не задан явно
			if target == "" && filename != "" && !strings.ContainsAny(filename, `/\`) {
				if err := os.Rename(name, filename); err != nil {
					return fmt.Errorf("rename artifacts file: %w", err)
				}
				name = filename
			}
			out.Success(fmt.Sprintf("Artifacts saved to %s", name))
			return nil
		},
	}

	cmd.Flags().BoolVar(&download, "download", false, "Download the artifact bundle")
	cmd.Flags().StringVarP(&target, "output", "o", "", "Output file (default: name from server)")

	return cmd
}
