package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewFeatureCmd создаёт группу команд для библиотеки features.
func NewFeatureCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "feature",
		Aliases: []string{"features"},
		Short:   "Manage the feature library",
	}

	cmd.AddCommand(
		newFeatureListCmd(clientFn, outputFn),
		newFeatureAddCmd(clientFn, outputFn),
		newFeatureShowCmd(clientFn, outputFn),
		newFeatureDeleteCmd(clientFn, outputFn),
		newFeatureFilesCmd(clientFn, outputFn),
		newFeatureTagsCmd(clientFn, outputFn),
		newFeatureRunCmd(clientFn, outputFn),
	)

	return cmd
}

func newFeatureListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List features, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			features, err := clientFn().ListFeatures(tag)
			if err != nil {
				return err
			}

			rows := make([][]string, len(features))
			for i, f := range features {
				rows[i] = []string{f.ID, f.Title, strings.Join(f.Tags, " "), f.CreatedAt}
			}
			outputFn().Print([]string{"ID", "TITLE", "TAGS", "CREATED"}, rows, features)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Only features carrying this tag")

	return cmd
}

func newFeatureAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var id, stepsFile string

	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Add a feature from a Gherkin file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read feature file: %w", err)
			}

			req := AddFeatureRequest{ID: id, Content: string(content)}
			if stepsFile != "" {
				steps, err := os.ReadFile(stepsFile)
				if err != nil {
					return fmt.Errorf("read steps file: %w", err)
				}
				req.StepsCode = string(steps)
			}

			feature, err := clientFn().AddFeature(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Feature added: %s", feature.ID))
			out.Print(
				[]string{"ID", "TITLE", "TAGS"},
				[][]string{{feature.ID, feature.Title, strings.Join(feature.Tags, " ")}},
				feature,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Feature ID (generated if empty)")
	cmd.Flags().StringVar(&stepsFile, "steps", "", "File with step definition code")

	return cmd
}

func newFeatureShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show feature content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feature, err := clientFn().GetFeature(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			if out.JSONMode() {
				out.JSON(feature)
				return nil
			}
			out.Fields([][2]string{
				{"ID", feature.ID},
				{"Title", feature.Title},
				{"Tags", strings.Join(feature.Tags, " ")},
				{"Created", feature.CreatedAt},
			}, feature)
			out.Line("")
			out.Line(feature.Content)
			return nil
		},
	}
}

func newFeatureDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteFeature(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Feature deleted: %s", args[0]))
			return nil
		},
	}
}

func newFeatureFilesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "files ID",
		Short: "List step definition files of a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := clientFn().ListFiles(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(files))
			for i, f := range files {
				rows[i] = []string{f.Name, f.Path, fmt.Sprintf("%d", len(f.Content))}
			}
			outputFn().Print([]string{"NAME", "PATH", "BYTES"}, rows, files)
			return nil
		},
	}
}

func newFeatureTagsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags used across the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := clientFn().ListTags()
			if err != nil {
				return err
			}

			rows := make([][]string, len(tags))
			for i, t := range tags {
				rows[i] = []string{t}
			}
			outputFn().Print([]string{"TAG"}, rows, tags)
			return nil
		},
	}
}

func newFeatureRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tags []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run ID",
		Short: "Run a feature now if the runner is idle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			started, err := clientFn().RunFeature(args[0], RunFeatureRequest{Tags: tags, DryRun: dryRun})
			if err != nil {
				return err
			}

			out := outputFn()
			if out.JSONMode() {
				out.JSON(started)
				return nil
			}
			if !started.Started {
				out.Error("runner is busy, use 'stagehand queue add' to wait for a slot")
				return nil
			}
			out.Success(fmt.Sprintf("Run started: %s", started.RequestID))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tag filter passed to the runner")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would run without executing")

	return cmd
}
