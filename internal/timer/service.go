// Package timer implements the timer lifecycle (start, stop, inspect,
// delete) on top of the TMetric API. The remote service is the sole source
// of truth: every decision is made against a fresh read, never a local flag.
package timer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mpolski/tm/internal/issuelink"
	"github.com/mpolski/tm/internal/tmetric"
)

// Delete modes accepted by Delete.
const (
	DeleteModeCurrent = "current"
	DeleteModeLast    = "last"
)

// deleteWindowMinutes bounds how long after stopping an entry may still be
// deleted through delete mode "last".
const deleteWindowMinutes = 5

// Info is the current-timer projection returned to callers, computed fresh
// on every query.
type Info struct {
	IsRunning   bool   `json:"is_running"`
	TimerID     int64  `json:"timer_id,omitempty"`
	TaskName    string `json:"task_name,omitempty"`
	TaskURL     string `json:"task_url,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	ProjectID   int    `json:"project_id,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	Elapsed     string `json:"elapsed,omitempty"`
}

// StartResult is returned by a successful Start.
type StartResult struct {
	Success   bool   `json:"success"`
	TimerID   int64  `json:"timer_id"`
	StartedAt string `json:"started_at"`
	TaskName  string `json:"task_name"`
}

// StopResult is returned by a successful Stop.
type StopResult struct {
	Success          bool   `json:"success"`
	TimeSpent        string `json:"time_spent"`
	TimeSpentMinutes int    `json:"time_spent_minutes"`
	StartedAt        string `json:"started_at"`
	EndedAt          string `json:"ended_at"`
	TaskName         string `json:"task_name"`
}

// DeleteResult is returned by a successful Delete.
type DeleteResult struct {
	Success    bool   `json:"success"`
	Deleted    bool   `json:"deleted"`
	EntryType  string `json:"entry_type"`
	StoppedAgo string `json:"stopped_ago,omitempty"`
}

// Service implements the timer lifecycle on top of a TMetric API client.
type Service struct {
	api tmetric.API
	now func() time.Time
}

// NewService returns a Service backed by api.
func NewService(api tmetric.API) *Service {
	return &Service{api: api, now: time.Now}
}

// ---------- queries ----------

// todayEntries fetches all entries on the local calendar date of "now".
func (s *Service) todayEntries(ctx context.Context) ([]tmetric.TimeEntry, error) {
	today := s.now()
	return s.api.TimeEntries(ctx, today, today)
}

// findActiveEntry returns today's running entry, or nil. Should the remote
// state ever hold more than one running entry, the first in list order wins.
func (s *Service) findActiveEntry(ctx context.Context) (*tmetric.TimeEntry, error) {
	entries, err := s.todayEntries(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Running() {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// findLastEntry returns today's most recently started entry, running or not,
// or nil when the day is empty. Among equal start times the earliest listed
// wins; entries with unparseable start times are skipped.
func (s *Service) findLastEntry(ctx context.Context) (*tmetric.TimeEntry, error) {
	entries, err := s.todayEntries(ctx)
	if err != nil {
		return nil, err
	}
	var last *tmetric.TimeEntry
	var lastStart time.Time
	for i := range entries {
		started, err := tmetric.ParseTime(entries[i].StartTime)
		if err != nil {
			continue
		}
		if last == nil || started.After(lastStart) {
			last = &entries[i]
			lastStart = started
		}
	}
	return last, nil
}

// CurrentTimer reports the state of today's running entry, if any.
func (s *Service) CurrentTimer(ctx context.Context) (*Info, error) {
	entry, err := s.findActiveEntry(ctx)
	if err != nil {
		return nil, wrapRemote(err)
	}
	if entry == nil {
		return &Info{IsRunning: false}, nil
	}
	info := &Info{
		IsRunning: true,
		TimerID:   entry.ID,
		TaskName:  entry.TaskName(),
		TaskURL:   entry.TaskURL(),
		StartedAt: entry.StartTime,
	}
	if entry.Project != nil {
		info.ProjectName = entry.Project.Name
		info.ProjectID = entry.Project.ID
	}
	if started, perr := tmetric.ParseTime(entry.StartTime); perr == nil {
		info.Elapsed = FormatElapsed(s.now().Sub(started))
	}
	return info, nil
}

// EntriesToday returns today's raw entries for reporting.
func (s *Service) EntriesToday(ctx context.Context) ([]tmetric.TimeEntry, error) {
	entries, err := s.todayEntries(ctx)
	if err != nil {
		return nil, wrapRemote(err)
	}
	return entries, nil
}

// Projects lists the projects available for new entries.
func (s *Service) Projects(ctx context.Context) ([]tmetric.Project, error) {
	projects, err := s.api.Projects(ctx)
	if err != nil {
		return nil, wrapRemote(err)
	}
	return projects, nil
}

// ---------- commands ----------

// Start begins a new timer on the given project. The running check is a
// fresh read against the service; a conflict carries the running timer's
// projection so the caller can decide to stop it first. A null start time
// on the create tells the service "now".
func (s *Service) Start(ctx context.Context, projectID int, taskName, taskURL string) (*StartResult, error) {
	current, err := s.CurrentTimer(ctx)
	if err != nil {
		return nil, err
	}
	if current.IsRunning {
		return nil, &Error{
			Code: CodeTimerAlreadyRunning,
			Message: fmt.Sprintf("a timer is already running for %q (started %s); stop it before starting a new one",
				current.TaskName, current.StartedAt),
			Timer: current,
		}
	}

	body := &tmetric.TimeEntryBody{
		Project: &tmetric.ProjectRef{ID: projectID},
		Task:    issuelink.BuildTask(taskName, taskURL),
		Tags:    json.RawMessage("[]"),
	}
	entry, err := s.api.CreateTimeEntry(ctx, body)
	if err != nil {
		return nil, wrapRemote(err)
	}

	startedAt := entry.StartTime
	if startedAt == "" {
		startedAt = tmetric.FormatTime(s.now())
	}
	return &StartResult{
		Success:   true,
		TimerID:   entry.ID,
		StartedAt: startedAt,
		TaskName:  taskName,
	}, nil
}

// Stop ends the running timer. The update is built from the full entry so
// project, task, note, and tags survive the write.
func (s *Service) Stop(ctx context.Context) (*StopResult, error) {
	entry, err := s.findActiveEntry(ctx)
	if err != nil {
		return nil, wrapRemote(err)
	}
	if entry == nil {
		return nil, newError(CodeNoTimerRunning, "no timer is currently running")
	}

	now := s.now()
	endedAt := tmetric.FormatTime(now)
	body := &tmetric.TimeEntryBody{
		StartTime: &entry.StartTime,
		EndTime:   &endedAt,
		Tags:      entry.Tags,
	}
	if entry.Project != nil {
		body.Project = &tmetric.ProjectRef{ID: entry.Project.ID}
	}
	if entry.Task != nil {
		body.Task = &tmetric.Task{
			Name:         entry.Task.Name,
			ExternalLink: entry.Task.ExternalLink,
			Integration:  entry.Task.Integration,
		}
	} else if entry.Note != "" {
		body.Note = entry.Note
	}
	if _, err := s.api.UpdateTimeEntry(ctx, entry.ID, body); err != nil {
		return nil, wrapRemote(err)
	}

	minutes := 0
	if started, perr := tmetric.ParseTime(entry.StartTime); perr == nil {
		if elapsed := now.Sub(started); elapsed > 0 {
			minutes = int(elapsed / time.Minute)
		}
	}
	return &StopResult{
		Success:          true,
		TimeSpent:        FormatDuration(minutes),
		TimeSpentMinutes: minutes,
		StartedAt:        entry.StartTime,
		EndedAt:          endedAt,
		TaskName:         entry.TaskName(),
	}, nil
}

// Delete removes a time entry. Mode "current" targets the running entry.
// Mode "last" targets today's most recently started entry and, once that
// entry has stopped, only within the delete window.
func (s *Service) Delete(ctx context.Context, mode string) (*DeleteResult, error) {
	switch mode {
	case "", DeleteModeCurrent:
		return s.deleteCurrent(ctx)
	case DeleteModeLast:
		return s.deleteLast(ctx)
	default:
		return nil, newError(CodeInternalError, "unknown delete mode %q", mode)
	}
}

func (s *Service) deleteCurrent(ctx context.Context) (*DeleteResult, error) {
	entry, err := s.findActiveEntry(ctx)
	if err != nil {
		return nil, wrapRemote(err)
	}
	if entry == nil {
		return nil, newError(CodeNoTimerRunning, "no timer is currently running")
	}
	if err := s.api.DeleteTimeEntry(ctx, entry.ID); err != nil {
		return nil, wrapRemote(err)
	}
	return &DeleteResult{Success: true, Deleted: true, EntryType: "active"}, nil
}

func (s *Service) deleteLast(ctx context.Context) (*DeleteResult, error) {
	entry, err := s.findLastEntry(ctx)
	if err != nil {
		return nil, wrapRemote(err)
	}
	if entry == nil {
		return nil, newError(CodeNoEntriesFound, "no time entries found for today")
	}

	result := &DeleteResult{Success: true, Deleted: true, EntryType: "active"}
	if !entry.Running() {
		ended, perr := tmetric.ParseTime(*entry.EndTime)
		if perr != nil {
			return nil, newError(CodeInternalError, "cannot parse end time %q: %v", *entry.EndTime, perr)
		}
		minutesAgo := int(s.now().Sub(ended) / time.Minute)
		if minutesAgo < 0 {
			minutesAgo = 0
		}
		if minutesAgo > deleteWindowMinutes {
			return nil, newError(CodeEntryTooOld,
				"time entry was stopped %d minutes ago, outside the %d-minute delete window; remove it in the TMetric web app instead",
				minutesAgo, deleteWindowMinutes)
		}
		result.EntryType = "stopped"
		result.StoppedAgo = fmt.Sprintf("%dm", minutesAgo)
	}

	if err := s.api.DeleteTimeEntry(ctx, entry.ID); err != nil {
		return nil, wrapRemote(err)
	}
	return result, nil
}
