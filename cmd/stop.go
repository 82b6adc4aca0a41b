package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func stopRun(ctx context.Context) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	if dryRun {
		info, err := svc.CurrentTimer(ctx)
		if err != nil {
			return err
		}
		if !info.IsRunning {
			ui.Info("No timer running.")
			return nil
		}
		ui.DryRunMsg("Would stop %q after %s", info.TaskName, info.Elapsed)
		return nil
	}

	res, err := svc.Stop(ctx)
	if err != nil {
		return err
	}

	ui.Success("Stopped %q after %s", res.TaskName, res.TimeSpent)
	ui.VerboseLog("%s to %s (%d minutes)", res.StartedAt, res.EndedAt, res.TimeSpentMinutes)
	return nil
}
