package timer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpolski/tm/internal/tmetric"
)

// mockAPI is an in-memory tmetric.API with call recording and error
// injection, mirroring how the real service behaves for the happy paths.
type mockAPI struct {
	projects []tmetric.Project
	entries  []tmetric.TimeEntry

	created []*tmetric.TimeEntryBody
	updated map[int64]*tmetric.TimeEntryBody
	deleted []int64

	projectsErr error
	entriesErr  error
	createErr   error
	updateErr   error
	deleteErr   error

	nextID int64
}

// Compile-time interface check.
var _ tmetric.API = (*mockAPI)(nil)

func newMockAPI() *mockAPI {
	return &mockAPI{updated: make(map[int64]*tmetric.TimeEntryBody), nextID: 1000}
}

func (m *mockAPI) Projects(ctx context.Context) ([]tmetric.Project, error) {
	if m.projectsErr != nil {
		return nil, m.projectsErr
	}
	return m.projects, nil
}

func (m *mockAPI) TimeEntries(ctx context.Context, start, end time.Time) ([]tmetric.TimeEntry, error) {
	if m.entriesErr != nil {
		return nil, m.entriesErr
	}
	return m.entries, nil
}

func (m *mockAPI) CreateTimeEntry(ctx context.Context, body *tmetric.TimeEntryBody) (*tmetric.TimeEntry, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, body)
	m.nextID++
	return &tmetric.TimeEntry{
		ID:        m.nextID,
		StartTime: "2026-03-02T09:00:00",
		Project:   body.Project,
		Task:      body.Task,
		Note:      body.Note,
		Tags:      body.Tags,
	}, nil
}

func (m *mockAPI) UpdateTimeEntry(ctx context.Context, id int64, body *tmetric.TimeEntryBody) (*tmetric.TimeEntry, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.updated[id] = body
	return &tmetric.TimeEntry{ID: id}, nil
}

func (m *mockAPI) DeleteTimeEntry(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// testNow is the frozen "now" all service tests run against.
var testNow = time.Date(2026, 3, 2, 14, 30, 0, 0, time.Local)

func newTestService(api *mockAPI) *Service {
	svc := NewService(api)
	svc.now = func() time.Time { return testNow }
	return svc
}

func ts(t time.Time) string { return tmetric.FormatTime(t) }

func runningEntry(id int64, start time.Time) tmetric.TimeEntry {
	return tmetric.TimeEntry{ID: id, StartTime: ts(start)}
}

func stoppedEntry(id int64, start, end time.Time) tmetric.TimeEntry {
	e := ts(end)
	return tmetric.TimeEntry{ID: id, StartTime: ts(start), EndTime: &e}
}

func domainErr(t *testing.T, err error) *Error {
	t.Helper()
	require.Error(t, err)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	return terr
}

// ---------- CurrentTimer ----------

func TestCurrentTimer_Idle(t *testing.T) {
	svc := newTestService(newMockAPI())

	info, err := svc.CurrentTimer(context.Background())
	require.NoError(t, err)
	assert.False(t, info.IsRunning)
	assert.Empty(t, info.TaskName)
	assert.Empty(t, info.Elapsed)
}

func TestCurrentTimer_Running(t *testing.T) {
	api := newMockAPI()
	entry := runningEntry(501, testNow.Add(-150*time.Minute))
	entry.Project = &tmetric.ProjectRef{ID: 12, Name: "Website"}
	entry.Task = &tmetric.Task{
		Name:         "Fix login",
		ExternalLink: &tmetric.ExternalLink{Link: "https://github.com/u/r/issues/7", IssueID: "GitHub Issue: #7"},
	}
	api.entries = []tmetric.TimeEntry{entry}
	svc := newTestService(api)

	info, err := svc.CurrentTimer(context.Background())
	require.NoError(t, err)
	assert.True(t, info.IsRunning)
	assert.Equal(t, int64(501), info.TimerID)
	assert.Equal(t, "Fix login", info.TaskName)
	assert.Equal(t, "https://github.com/u/r/issues/7", info.TaskURL)
	assert.Equal(t, "Website", info.ProjectName)
	assert.Equal(t, 12, info.ProjectID)
	assert.Equal(t, ts(testNow.Add(-150*time.Minute)), info.StartedAt)
	assert.Equal(t, "2h 30m", info.Elapsed)
}

func TestCurrentTimer_SkipsStoppedEntries(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{
		stoppedEntry(1, testNow.Add(-5*time.Hour), testNow.Add(-4*time.Hour)),
		runningEntry(2, testNow.Add(-30*time.Minute)),
	}
	svc := newTestService(api)

	info, err := svc.CurrentTimer(context.Background())
	require.NoError(t, err)
	assert.True(t, info.IsRunning)
	assert.Equal(t, int64(2), info.TimerID)
}

func TestCurrentTimer_FirstRunningEntryWins(t *testing.T) {
	// The remote can report several entries with no end time at once;
	// the first listed counts as the active one, regardless of start order.
	api := newMockAPI()
	first := runningEntry(501, testNow.Add(-2*time.Hour))
	first.Project = &tmetric.ProjectRef{ID: 1, Name: "First"}
	second := runningEntry(502, testNow.Add(-1*time.Hour))
	second.Project = &tmetric.ProjectRef{ID: 2, Name: "Second"}
	api.entries = []tmetric.TimeEntry{first, second}
	svc := newTestService(api)

	info, err := svc.CurrentTimer(context.Background())
	require.NoError(t, err)
	assert.True(t, info.IsRunning)
	assert.Equal(t, int64(501), info.TimerID)
	assert.Equal(t, "First", info.ProjectName)

	_, err = svc.Stop(context.Background())
	require.NoError(t, err)
	assert.Contains(t, api.updated, int64(501), "stop must target the entry current_timer reported")
	assert.NotContains(t, api.updated, int64(502))
}

func TestCurrentTimer_RemoteFailure(t *testing.T) {
	api := newMockAPI()
	api.entriesErr = fmt.Errorf("GET /accounts/1/timeentries: status 502: bad gateway")
	svc := newTestService(api)

	_, err := svc.CurrentTimer(context.Background())
	terr := domainErr(t, err)
	assert.Equal(t, CodeAPIError, terr.Code)
	assert.Contains(t, terr.Message, "status 502")
}

func TestCurrentTimer_AccountResolutionFailure(t *testing.T) {
	api := newMockAPI()
	api.entriesErr = fmt.Errorf("%w: status 401", tmetric.ErrAccountResolution)
	svc := newTestService(api)

	_, err := svc.CurrentTimer(context.Background())
	terr := domainErr(t, err)
	assert.Equal(t, CodeInitializationError, terr.Code)
}

// ---------- Start ----------

func TestStart_Success(t *testing.T) {
	api := newMockAPI()
	svc := newTestService(api)

	res, err := svc.Start(context.Background(), 12, "Fix login", "https://github.com/u/r/issues/7")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(1001), res.TimerID)
	assert.Equal(t, "2026-03-02T09:00:00", res.StartedAt)
	assert.Equal(t, "Fix login", res.TaskName)

	require.Len(t, api.created, 1)
	body := api.created[0]
	assert.Nil(t, body.StartTime, "null start time means start now")
	assert.Nil(t, body.EndTime)
	require.NotNil(t, body.Project)
	assert.Equal(t, 12, body.Project.ID)
	assert.Equal(t, json.RawMessage("[]"), body.Tags)

	require.NotNil(t, body.Task)
	assert.Equal(t, "Fix login", body.Task.Name)
	require.NotNil(t, body.Task.ExternalLink)
	assert.Equal(t, "GitHub Issue: #7", body.Task.ExternalLink.IssueID)
	require.NotNil(t, body.Task.Integration)
	assert.Equal(t, "GitHub", body.Task.Integration.Type)
	assert.Equal(t, "https://github.com", body.Task.Integration.URL)
}

func TestStart_UnusableURLIsIgnored(t *testing.T) {
	api := newMockAPI()
	svc := newTestService(api)

	_, err := svc.Start(context.Background(), 12, "Fix login", "not-a-url")
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	task := api.created[0].Task
	require.NotNil(t, task)
	assert.Equal(t, "Fix login", task.Name)
	assert.Nil(t, task.ExternalLink)
	assert.Nil(t, task.Integration)
}

func TestStart_AlreadyRunning(t *testing.T) {
	api := newMockAPI()
	entry := runningEntry(501, testNow.Add(-10*time.Minute))
	entry.Task = &tmetric.Task{Name: "Other work"}
	api.entries = []tmetric.TimeEntry{entry}
	svc := newTestService(api)

	_, err := svc.Start(context.Background(), 12, "Fix login", "")
	terr := domainErr(t, err)
	assert.Equal(t, CodeTimerAlreadyRunning, terr.Code)
	assert.Contains(t, terr.Message, "Other work")
	require.NotNil(t, terr.Timer, "conflict should carry the running timer's projection")
	assert.Equal(t, int64(501), terr.Timer.TimerID)
	assert.Empty(t, api.created, "a conflicting start must not create an entry")
}

func TestStart_CreateFailure(t *testing.T) {
	api := newMockAPI()
	api.createErr = fmt.Errorf("POST /accounts/1/timeentries: status 400: bad project")
	svc := newTestService(api)

	_, err := svc.Start(context.Background(), 999, "Fix login", "")
	terr := domainErr(t, err)
	assert.Equal(t, CodeAPIError, terr.Code)
	assert.Contains(t, terr.Message, "bad project")
}

// ---------- Stop ----------

func TestStop_Success(t *testing.T) {
	api := newMockAPI()
	start := testNow.Add(-330 * time.Minute)
	entry := runningEntry(501, start)
	entry.Project = &tmetric.ProjectRef{ID: 12, Name: "Website"}
	entry.Task = &tmetric.Task{
		Name:         "Fix login",
		ExternalLink: &tmetric.ExternalLink{Link: "https://github.com/u/r/issues/7", IssueID: "GitHub Issue: #7"},
		Integration:  &tmetric.Integration{URL: "https://github.com", Type: "GitHub"},
	}
	entry.Tags = json.RawMessage(`[{"id":4,"name":"deep work"}]`)
	api.entries = []tmetric.TimeEntry{entry}
	svc := newTestService(api)

	res, err := svc.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "5h30m", res.TimeSpent)
	assert.Equal(t, 330, res.TimeSpentMinutes)
	assert.Equal(t, ts(start), res.StartedAt)
	assert.Equal(t, ts(testNow), res.EndedAt)
	assert.Equal(t, "Fix login", res.TaskName)

	body, ok := api.updated[501]
	require.True(t, ok, "stop must update the running entry")
	require.NotNil(t, body.StartTime)
	assert.Equal(t, ts(start), *body.StartTime)
	require.NotNil(t, body.EndTime)
	assert.Equal(t, ts(testNow), *body.EndTime)
	require.NotNil(t, body.Project)
	assert.Equal(t, 12, body.Project.ID)
	assert.Empty(t, body.Project.Name, "update carries the project id only")
	require.NotNil(t, body.Task)
	assert.Equal(t, "Fix login", body.Task.Name)
	assert.NotNil(t, body.Task.ExternalLink, "issue link must survive the stop")
	assert.NotNil(t, body.Task.Integration)
	assert.Equal(t, json.RawMessage(`[{"id":4,"name":"deep work"}]`), body.Tags)
	assert.Empty(t, body.Note)
}

func TestStop_PreservesNoteWithoutTask(t *testing.T) {
	api := newMockAPI()
	entry := runningEntry(502, testNow.Add(-10*time.Minute))
	entry.Note = "ad hoc debugging"
	api.entries = []tmetric.TimeEntry{entry}
	svc := newTestService(api)

	res, err := svc.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ad hoc debugging", res.TaskName)

	body := api.updated[502]
	require.NotNil(t, body)
	assert.Nil(t, body.Task)
	assert.Equal(t, "ad hoc debugging", body.Note)
}

func TestStop_NoTimerRunning(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{
		stoppedEntry(1, testNow.Add(-2*time.Hour), testNow.Add(-1*time.Hour)),
	}
	svc := newTestService(api)

	_, err := svc.Stop(context.Background())
	terr := domainErr(t, err)
	assert.Equal(t, CodeNoTimerRunning, terr.Code)
	assert.Empty(t, api.updated, "a failed stop must not issue an update")
}

func TestStop_UpdateFailure(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{runningEntry(505, testNow.Add(-1*time.Hour))}
	api.updateErr = fmt.Errorf("PUT /accounts/1/timeentries/505: status 500: boom")
	svc := newTestService(api)

	_, err := svc.Stop(context.Background())
	terr := domainErr(t, err)
	assert.Equal(t, CodeAPIError, terr.Code)
	assert.Contains(t, terr.Message, "status 500")
}

func TestStop_FloorsPartialMinutes(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{
		runningEntry(503, testNow.Add(-(61*time.Minute + 59*time.Second))),
	}
	svc := newTestService(api)

	res, err := svc.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 61, res.TimeSpentMinutes)
	assert.Equal(t, "1h1m", res.TimeSpent)
}

func TestStop_ZeroMinutes(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{runningEntry(504, testNow.Add(-30*time.Second))}
	svc := newTestService(api)

	res, err := svc.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.TimeSpentMinutes)
	assert.Equal(t, "0m", res.TimeSpent)
}

// ---------- Delete ----------

func TestDelete_CurrentSuccess(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{runningEntry(501, testNow.Add(-10*time.Minute))}
	svc := newTestService(api)

	res, err := svc.Delete(context.Background(), DeleteModeCurrent)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Deleted)
	assert.Equal(t, "active", res.EntryType)
	assert.Empty(t, res.StoppedAgo)
	assert.Equal(t, []int64{501}, api.deleted)
}

func TestDelete_EmptyModeMeansCurrent(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{runningEntry(501, testNow.Add(-10*time.Minute))}
	svc := newTestService(api)

	res, err := svc.Delete(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "active", res.EntryType)
	assert.Equal(t, []int64{501}, api.deleted)
}

func TestDelete_CurrentNoTimer(t *testing.T) {
	svc := newTestService(newMockAPI())

	_, err := svc.Delete(context.Background(), DeleteModeCurrent)
	terr := domainErr(t, err)
	assert.Equal(t, CodeNoTimerRunning, terr.Code)
}

func TestDelete_LastNoEntries(t *testing.T) {
	svc := newTestService(newMockAPI())

	_, err := svc.Delete(context.Background(), DeleteModeLast)
	terr := domainErr(t, err)
	assert.Equal(t, CodeNoEntriesFound, terr.Code)
}

func TestDelete_LastPicksLatestStart(t *testing.T) {
	api := newMockAPI()
	// Deliberately out of order; only the 11:00 entry may be deleted.
	api.entries = []tmetric.TimeEntry{
		stoppedEntry(2, testNow.Add(-4*time.Hour), testNow.Add(-3*time.Minute)),
		stoppedEntry(3, testNow.Add(-210*time.Minute), testNow.Add(-2*time.Minute)),
		stoppedEntry(1, testNow.Add(-5*time.Hour), testNow.Add(-4*time.Minute)),
	}
	svc := newTestService(api)

	res, err := svc.Delete(context.Background(), DeleteModeLast)
	require.NoError(t, err)
	assert.Equal(t, "stopped", res.EntryType)
	assert.Equal(t, []int64{3}, api.deleted, "only the most recently started entry is eligible")
}

func TestDelete_LastTieKeepsFirstListed(t *testing.T) {
	api := newMockAPI()
	start := testNow.Add(-2 * time.Hour)
	api.entries = []tmetric.TimeEntry{
		stoppedEntry(7, start, testNow.Add(-1*time.Minute)),
		stoppedEntry(8, start, testNow.Add(-1*time.Minute)),
	}
	svc := newTestService(api)

	_, err := svc.Delete(context.Background(), DeleteModeLast)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, api.deleted, "equal start times resolve to the first listed entry")
}

func TestDelete_LastFiveMinuteBoundary(t *testing.T) {
	t.Run("exactly five minutes is allowed", func(t *testing.T) {
		api := newMockAPI()
		api.entries = []tmetric.TimeEntry{
			stoppedEntry(9, testNow.Add(-1*time.Hour), testNow.Add(-5*time.Minute)),
		}
		svc := newTestService(api)

		res, err := svc.Delete(context.Background(), DeleteModeLast)
		require.NoError(t, err)
		assert.Equal(t, "stopped", res.EntryType)
		assert.Equal(t, "5m", res.StoppedAgo)
		assert.Equal(t, []int64{9}, api.deleted)
	})

	t.Run("six minutes is too old", func(t *testing.T) {
		api := newMockAPI()
		api.entries = []tmetric.TimeEntry{
			stoppedEntry(9, testNow.Add(-1*time.Hour), testNow.Add(-6*time.Minute)),
		}
		svc := newTestService(api)

		_, err := svc.Delete(context.Background(), DeleteModeLast)
		terr := domainErr(t, err)
		assert.Equal(t, CodeEntryTooOld, terr.Code)
		assert.Contains(t, terr.Message, "6 minutes ago")
		assert.Empty(t, api.deleted, "an old entry must not be deleted")
	})
}

func TestDelete_LastStillRunning(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{
		stoppedEntry(1, testNow.Add(-5*time.Hour), testNow.Add(-4*time.Hour)),
		runningEntry(2, testNow.Add(-20*time.Minute)),
	}
	svc := newTestService(api)

	res, err := svc.Delete(context.Background(), DeleteModeLast)
	require.NoError(t, err)
	assert.Equal(t, "active", res.EntryType)
	assert.Empty(t, res.StoppedAgo, "a running target has no stopped_ago")
	assert.Equal(t, []int64{2}, api.deleted)
}

func TestDelete_UnknownMode(t *testing.T) {
	svc := newTestService(newMockAPI())

	_, err := svc.Delete(context.Background(), "yesterday")
	terr := domainErr(t, err)
	assert.Equal(t, CodeInternalError, terr.Code)
}

func TestDelete_RemoteFailure(t *testing.T) {
	api := newMockAPI()
	api.entries = []tmetric.TimeEntry{runningEntry(501, testNow.Add(-10*time.Minute))}
	api.deleteErr = fmt.Errorf("DELETE /accounts/1/timeentries/501: status 500: boom")
	svc := newTestService(api)

	_, err := svc.Delete(context.Background(), DeleteModeCurrent)
	terr := domainErr(t, err)
	assert.Equal(t, CodeAPIError, terr.Code)
}

// ---------- Projects ----------

func TestProjects_Passthrough(t *testing.T) {
	api := newMockAPI()
	api.projects = []tmetric.Project{{ID: 1, Name: "Website"}, {ID: 2, Name: "Backend"}}
	svc := newTestService(api)

	projects, err := svc.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Website", projects[0].Name)
}

func TestProjects_ResolutionFailure(t *testing.T) {
	api := newMockAPI()
	api.projectsErr = fmt.Errorf("%w: status 401", tmetric.ErrAccountResolution)
	svc := newTestService(api)

	_, err := svc.Projects(context.Background())
	terr := domainErr(t, err)
	assert.Equal(t, CodeInitializationError, terr.Code)
}
