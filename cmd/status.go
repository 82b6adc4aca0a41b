package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpolski/tm/internal/output"
	"github.com/mpolski/tm/internal/timer"
	"github.com/mpolski/tm/internal/tmetric"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer and today's entries",
	Long: `Show whether a timer is running and list today's time entries
with their durations and a daily total.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	info, err := svc.CurrentTimer(ctx)
	if err != nil {
		return err
	}

	if info.IsRunning {
		ui.Success("Timer running: %s (%s)", info.TaskName, info.Elapsed)
		if info.ProjectName != "" {
			ui.VerboseLog("Project: %s (#%d), started %s", info.ProjectName, info.ProjectID, info.StartedAt)
		}
	} else {
		ui.Info("No timer running.")
	}

	entries, err := svc.EntriesToday(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		ui.Info("No entries today.")
		return nil
	}

	fmt.Fprintln(ui.Out)
	renderStatusTable(entries, time.Now())
	return nil
}

func renderStatusTable(entries []tmetric.TimeEntry, now time.Time) {
	total := 0

	table := ui.Table([]string{"Task", "Project", "Duration", "Status"})
	for i := range entries {
		e := &entries[i]
		mins := timer.EntryMinutes(e, now)
		total += mins

		project := "-"
		if e.Project != nil {
			project = output.Cyan(e.Project.Name)
		}
		status := "stopped"
		if e.Running() {
			status = "running"
		}

		table.Append([]string{
			e.TaskName(),
			project,
			timer.FormatDuration(mins),
			output.StatusColor(status),
		})
	}
	table.Render()

	fmt.Fprintln(ui.Out)
	ui.Info("Total tracked today: %s", timer.FormatDuration(total))
}
