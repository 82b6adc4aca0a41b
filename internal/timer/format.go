package timer

import (
	"fmt"
	"time"

	"github.com/mpolski/tm/internal/tmetric"
)

// FormatDuration renders whole minutes GitLab style: "1h30m", "2h", "45m".
// Zero minutes renders as "0m".
func FormatDuration(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh%dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// FormatElapsed renders a live duration for status displays: minutes alone
// until a full hour accumulates, then "2h 30m". Negative values clamp to 0.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	hours := total / 60
	mins := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// EntryMinutes returns an entry's tracked whole minutes, measuring running
// entries against now. Unparseable timestamps count as zero.
func EntryMinutes(e *tmetric.TimeEntry, now time.Time) int {
	started, err := tmetric.ParseTime(e.StartTime)
	if err != nil {
		return 0
	}
	end := now
	if !e.Running() {
		ended, err := tmetric.ParseTime(*e.EndTime)
		if err != nil {
			return 0
		}
		end = ended
	}
	if d := end.Sub(started); d > 0 {
		return int(d / time.Minute)
	}
	return 0
}
