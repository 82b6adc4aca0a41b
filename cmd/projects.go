package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects in the active account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectsRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func projectsRun(ctx context.Context) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	projects, err := svc.Projects(ctx)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		ui.Info("No projects in the active account.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name"})
	for _, p := range projects {
		table.Append([]string{strconv.Itoa(p.ID), p.Name})
	}
	table.Render()
	return nil
}
