package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var startURL string

var startCmd = &cobra.Command{
	Use:   "start <project> <task name...>",
	Short: "Start a timer",
	Long: `Start a timer on a project.

The project may be given as a numeric id or by name (case-insensitive);
'tm projects' lists both. The remaining arguments form the task name.
With --url pointing at a GitHub or GitLab issue, the entry links back
to that issue.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(cmd.Context(), args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	startCmd.Flags().StringVar(&startURL, "url", "", "Issue URL to link the entry to (GitHub or GitLab)")
	rootCmd.AddCommand(startCmd)
}

func startRun(ctx context.Context, project, taskName string) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	projectID, err := resolveProject(ctx, project)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would start timer on project %d: %s", projectID, taskName)
		return nil
	}

	res, err := svc.Start(ctx, projectID, taskName, startURL)
	if err != nil {
		return err
	}

	ui.Success("Timer started: %s (entry %d)", res.TaskName, res.TimerID)
	ui.VerboseLog("Started at %s", res.StartedAt)
	return nil
}

// resolveProject turns a numeric id or a project name into a project id.
func resolveProject(ctx context.Context, arg string) (int, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		return id, nil
	}

	svc, err := getService()
	if err != nil {
		return 0, err
	}
	projects, err := svc.Projects(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range projects {
		if strings.EqualFold(p.Name, arg) {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("no project named %q (run 'tm projects' to list)", arg)
}
