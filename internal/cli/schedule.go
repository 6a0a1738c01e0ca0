package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для управления schedules.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage periodic runs",
	}

	cmd.AddCommand(
		newScheduleListCmd(clientFn, outputFn),
		newScheduleCreateCmd(clientFn, outputFn),
		newScheduleShowCmd(clientFn, outputFn),
		newScheduleDeleteCmd(clientFn, outputFn),
		newScheduleToggleCmd(clientFn, outputFn, true),
		newScheduleToggleCmd(clientFn, outputFn, false),
	)

	return cmd
}

var scheduleHeaders = []string{"ID", "NAME", "CRON", "TAG", "TZ", "ENABLED", "NEXT_DUE"}

func scheduleRow(s ScheduleResponse) []string {
	return []string{
		s.ID, s.Name, s.CronExpr, s.Tag, s.Timezone,
		strconv.FormatBool(s.Enabled), s.NextDueAt,
	}
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled *bool
			if enabledOnly {
				enabled = &enabledOnly
			}

			schedules, err := clientFn().ListSchedules(enabled)
			if err != nil {
				return err
			}

			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				rows[i] = scheduleRow(s)
			}
			outputFn().Print(scheduleHeaders, rows, schedules)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Only enabled schedules")

	return cmd
}

func newScheduleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, tag, timezone string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "create CRON_EXPR",
		Short: "Create a schedule that queues tagged features",
		Long: `Create a schedule. On every fire the features carrying --tag
(or the whole library) are queued, oldest first.

Examples:
  stagehand schedule create "0 * * * *" --tag @smoke --name hourly-smoke
  stagehand schedule create "30 6 * * 1-5" --timezone Europe/Berlin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := clientFn().CreateSchedule(CreateScheduleRequest{
				Name:     name,
				CronExpr: args[0],
				Tag:      tag,
				DryRun:   dryRun,
				Timezone: timezone,
			})
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Schedule created: %s", schedule.ID))
			out.Print(scheduleHeaders, [][]string{scheduleRow(*schedule)}, schedule)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Schedule name")
	cmd.Flags().StringVar(&tag, "tag", "", "Queue only features with this tag")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone (default UTC)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Queue dry runs")

	return cmd
}

func newScheduleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().GetSchedule(args[0])
			if err != nil {
				return err
			}

			outputFn().Fields([][2]string{
				{"ID", s.ID},
				{"Name", s.Name},
				{"Cron", s.CronExpr},
				{"Tag", s.Tag},
				{"Timezone", s.Timezone},
				{"Dry run", strconv.FormatBool(s.DryRun)},
				{"Enabled", strconv.FormatBool(s.Enabled)},
				{"Next due", s.NextDueAt},
				{"Last run", s.LastRunAt},
				{"Last enqueued", strconv.Itoa(s.LastEnqueued)},
			}, s)
			return nil
		},
	}
}

func newScheduleDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteSchedule(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Schedule deleted: %s", args[0]))
			return nil
		},
	}
}

func newScheduleToggleCmd(clientFn func() *Client, outputFn func() *Output, enable bool) *cobra.Command {
	use, short, done := "disable ID", "Disable a schedule", "disabled"
	if enable {
		use, short, done = "enable ID", "Enable a schedule (missed fires are skipped)", "enabled"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().SetScheduleEnabled(args[0], enable)
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Schedule %s: %s (next due %s)", done, s.ID, s.NextDueAt))
			return nil
		},
	}
}
