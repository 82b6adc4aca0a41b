package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mpolski/tm/internal/timer"
)

var deleteLast bool

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the running timer or today's last entry",
	Long: `Delete a time entry.

By default the running timer is deleted. With --last, today's most
recently started entry is deleted instead, but only within 5 minutes
of it stopping; older entries must be removed in the TMetric web app.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteRun(cmd.Context())
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteLast, "last", false, "Delete today's most recently started entry")
	rootCmd.AddCommand(deleteCmd)
}

func deleteRun(ctx context.Context) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	mode := timer.DeleteModeCurrent
	target := "the running timer"
	if deleteLast {
		mode = timer.DeleteModeLast
		target = "today's last entry"
	}

	if dryRun {
		ui.DryRunMsg("Would delete %s", target)
		return nil
	}

	res, err := svc.Delete(ctx, mode)
	if err != nil {
		return err
	}

	if res.StoppedAgo != "" {
		ui.Success("Deleted %s entry (stopped %s ago)", res.EntryType, res.StoppedAgo)
	} else {
		ui.Success("Deleted %s entry", res.EntryType)
	}
	return nil
}
