package tmetric

import (
	"encoding/json"
	"time"
)

// TimeLayout is the timestamp format the API speaks: account-local wall
// clock time with no zone suffix.
const TimeLayout = "2006-01-02T15:04:05"

// DateLayout is the format of the startDate/endDate query parameters.
const DateLayout = "2006-01-02"

// ParseTime parses an API timestamp in the local time zone.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.Local)
}

// FormatTime renders t the way the API expects timestamps.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// UserProfile is the response of GET /user.
type UserProfile struct {
	ActiveAccountID int64  `json:"activeAccountId"`
	Email           string `json:"email"`
	Name            string `json:"name"`
}

// Project is a project available for new time entries.
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProjectRef is the project reference embedded in a time entry. Only the
// id is written back on updates.
type ProjectRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// ExternalLink ties a task to an issue in an external tracker.
type ExternalLink struct {
	Link    string `json:"link"`
	IssueID string `json:"issueId"`
}

// Integration identifies the tracker an external link points into.
type Integration struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Task is the optional task attached to a time entry.
type Task struct {
	Name         string        `json:"name"`
	ExternalLink *ExternalLink `json:"externalLink,omitempty"`
	Integration  *Integration  `json:"integration,omitempty"`
}

// TimeEntry is one tracked span of work. EndTime is nil while the entry is
// still running. Tags stays raw so updates round-trip it untouched.
type TimeEntry struct {
	ID        int64           `json:"id"`
	StartTime string          `json:"startTime"`
	EndTime   *string         `json:"endTime,omitempty"`
	Project   *ProjectRef     `json:"project,omitempty"`
	Task      *Task           `json:"task,omitempty"`
	Note      string          `json:"note,omitempty"`
	Tags      json.RawMessage `json:"tags,omitempty"`
}

// Running reports whether the entry has no end time yet.
func (e *TimeEntry) Running() bool {
	return e.EndTime == nil || *e.EndTime == ""
}

// TaskName returns the entry's display name: the task name when present,
// else the note, else a placeholder.
func (e *TimeEntry) TaskName() string {
	if e.Task != nil && e.Task.Name != "" {
		return e.Task.Name
	}
	if e.Note != "" {
		return e.Note
	}
	return "Unnamed task"
}

// TaskURL returns the linked issue URL, if any.
func (e *TimeEntry) TaskURL() string {
	if e.Task != nil && e.Task.ExternalLink != nil {
		return e.Task.ExternalLink.Link
	}
	return ""
}

// TimeEntryBody is the payload for creating or replacing a time entry.
// StartTime and EndTime marshal as explicit nulls when nil; on create the
// service treats a null startTime as "now".
type TimeEntryBody struct {
	StartTime *string         `json:"startTime"`
	EndTime   *string         `json:"endTime"`
	Project   *ProjectRef     `json:"project,omitempty"`
	Task      *Task           `json:"task,omitempty"`
	Note      string          `json:"note,omitempty"`
	Tags      json.RawMessage `json:"tags,omitempty"`
}
