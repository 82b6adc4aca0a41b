package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpolski/tm/internal/timer"
	"github.com/mpolski/tm/internal/tmetric"
)

var (
	reportFormat  string
	reportSummary bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report today's tracked time",
	Long: `Report today's time entries with per-entry durations and a total.

Formats: table (default), json, csv, markdown. With --summary and a
configured Anthropic API key, a short prose summary of the day is
appended (see 'tm config init').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd.Context())
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "Output format: table, json, csv, markdown")
	reportCmd.Flags().BoolVar(&reportSummary, "summary", false, "Append an LLM-written summary of the day")
	rootCmd.AddCommand(reportCmd)
}

// reportRow is one rendered entry, shared by all output formats.
type reportRow struct {
	Task     string `json:"task"`
	Project  string `json:"project,omitempty"`
	Started  string `json:"started"`
	Ended    string `json:"ended,omitempty"`
	Minutes  int    `json:"minutes"`
	Duration string `json:"duration"`
}

func reportRun(ctx context.Context) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	entries, err := svc.EntriesToday(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	switch reportFormat {
	case "table":
		renderReportTable(entries, now)
	case "json":
		if err := renderReportJSON(entries, now); err != nil {
			return err
		}
	case "csv":
		if err := renderReportCSV(entries, now); err != nil {
			return err
		}
	case "markdown":
		renderReportMarkdown(entries, now)
	default:
		return fmt.Errorf("unknown format: %s (use: table, json, csv, markdown)", reportFormat)
	}

	if reportSummary {
		return reportSummaryRun(ctx, entries)
	}
	return nil
}

// reportRows projects entries into rows and sums the tracked minutes.
func reportRows(entries []tmetric.TimeEntry, now time.Time) ([]reportRow, int) {
	rows := make([]reportRow, 0, len(entries))
	total := 0

	for i := range entries {
		e := &entries[i]
		mins := timer.EntryMinutes(e, now)
		total += mins

		row := reportRow{
			Task:     e.TaskName(),
			Started:  e.StartTime,
			Minutes:  mins,
			Duration: timer.FormatDuration(mins),
		}
		if e.Project != nil {
			row.Project = e.Project.Name
		}
		if !e.Running() {
			row.Ended = *e.EndTime
		}
		rows = append(rows, row)
	}

	return rows, total
}

func renderReportTable(entries []tmetric.TimeEntry, now time.Time) {
	rows, total := reportRows(entries, now)
	if len(rows) == 0 {
		ui.Info("No entries today.")
		return
	}

	table := ui.Table([]string{"Task", "Project", "Started", "Duration"})
	for _, r := range rows {
		project := r.Project
		if project == "" {
			project = "-"
		}
		duration := r.Duration
		if r.Ended == "" {
			duration += " (running)"
		}
		table.Append([]string{r.Task, project, r.Started, duration})
	}
	table.Render()

	fmt.Fprintln(ui.Out)
	ui.Info("Total: %s", timer.FormatDuration(total))
}

func renderReportJSON(entries []tmetric.TimeEntry, now time.Time) error {
	rows, total := reportRows(entries, now)

	out := struct {
		Date         string      `json:"date"`
		Entries      []reportRow `json:"entries"`
		TotalMinutes int         `json:"total_minutes"`
		Total        string      `json:"total"`
	}{
		Date:         now.Format(tmetric.DateLayout),
		Entries:      rows,
		TotalMinutes: total,
		Total:        timer.FormatDuration(total),
	}

	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderReportCSV(entries []tmetric.TimeEntry, now time.Time) error {
	rows, _ := reportRows(entries, now)

	w := csv.NewWriter(ui.Out)
	w.Write([]string{"Task", "Project", "Started", "Ended", "Minutes"})
	for _, r := range rows {
		w.Write([]string{r.Task, r.Project, r.Started, r.Ended, strconv.Itoa(r.Minutes)})
	}
	w.Flush()
	return w.Error()
}

func renderReportMarkdown(entries []tmetric.TimeEntry, now time.Time) {
	rows, total := reportRows(entries, now)

	fmt.Fprintf(ui.Out, "# Time report %s\n", now.Format(tmetric.DateLayout))
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "| Task | Project | Duration |")
	fmt.Fprintln(ui.Out, "|------|---------|----------|")
	for _, r := range rows {
		duration := r.Duration
		if r.Ended == "" {
			duration += " (running)"
		}
		fmt.Fprintf(ui.Out, "| %s | %s | %s |\n", r.Task, r.Project, duration)
	}
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "**Total:** %s\n", timer.FormatDuration(total))
}

func reportSummaryRun(ctx context.Context, entries []tmetric.TimeEntry) error {
	llmClient := newLLMClient()
	if llmClient == nil {
		return fmt.Errorf("no Anthropic API key configured: set TM_ANTHROPIC_API_KEY or anthropic.api_key (see 'tm config init')")
	}

	summary, err := llmClient.SummarizeDay(ctx, entries)
	if err != nil {
		return fmt.Errorf("summarize day: %w", err)
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, summary)
	return nil
}
