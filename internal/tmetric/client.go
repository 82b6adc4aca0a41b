// Package tmetric is a minimal client for the TMetric REST API v3,
// covering the user profile, projects, and time entry endpoints.
package tmetric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultBaseURL is the public TMetric API endpoint.
const DefaultBaseURL = "https://app.tmetric.com/api/v3"

// ErrAccountResolution marks a failure to resolve the active account id.
// Every account-scoped call is blocked until resolution succeeds.
var ErrAccountResolution = errors.New("account resolution failed")

// API is the slice of the TMetric service the rest of tm consumes.
type API interface {
	Projects(ctx context.Context) ([]Project, error)
	TimeEntries(ctx context.Context, start, end time.Time) ([]TimeEntry, error)
	CreateTimeEntry(ctx context.Context, body *TimeEntryBody) (*TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, id int64, body *TimeEntryBody) (*TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id int64) error
}

// RESTClient implements API over HTTPS. The active account id is resolved
// from the user profile on first use and reused for the client's lifetime.
type RESTClient struct {
	baseURL string
	token   string
	hc      *http.Client

	mu        sync.Mutex
	accountID int64
}

// NewClient returns a RESTClient authenticated with the given bearer token.
// An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL, token string) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RESTClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

// resolveAccount returns the active account id, fetching the user profile
// on first call. The mutex keeps concurrent callers from resolving twice;
// a failure leaves the id unset so the next call retries.
func (c *RESTClient) resolveAccount(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountID != 0 {
		return c.accountID, nil
	}
	var profile UserProfile
	if err := c.do(ctx, http.MethodGet, "/user", nil, &profile); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAccountResolution, err)
	}
	if profile.ActiveAccountID == 0 {
		return 0, fmt.Errorf("%w: user profile has no active account", ErrAccountResolution)
	}
	c.accountID = profile.ActiveAccountID
	return c.accountID, nil
}

// Projects lists the projects available for new time entries.
func (c *RESTClient) Projects(ctx context.Context) ([]Project, error) {
	account, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}
	var projects []Project
	path := fmt.Sprintf("/accounts/%d/timeentries/projects", account)
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// TimeEntries lists entries whose date falls between start and end,
// inclusive on both ends.
func (c *RESTClient) TimeEntries(ctx context.Context, start, end time.Time) ([]TimeEntry, error) {
	account, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}
	var entries []TimeEntry
	path := fmt.Sprintf("/accounts/%d/timeentries?startDate=%s&endDate=%s",
		account, start.Format(DateLayout), end.Format(DateLayout))
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateTimeEntry creates a new entry and returns the service's view of it.
func (c *RESTClient) CreateTimeEntry(ctx context.Context, body *TimeEntryBody) (*TimeEntry, error) {
	account, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}
	var entry TimeEntry
	path := fmt.Sprintf("/accounts/%d/timeentries", account)
	if err := c.do(ctx, http.MethodPost, path, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateTimeEntry replaces the entry with the given id.
func (c *RESTClient) UpdateTimeEntry(ctx context.Context, id int64, body *TimeEntryBody) (*TimeEntry, error) {
	account, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}
	var entry TimeEntry
	path := fmt.Sprintf("/accounts/%d/timeentries/%d", account, id)
	if err := c.do(ctx, http.MethodPut, path, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteTimeEntry removes the entry with the given id.
func (c *RESTClient) DeleteTimeEntry(ctx context.Context, id int64) error {
	account, err := c.resolveAccount(ctx)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/accounts/%d/timeentries/%d", account, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// newRequestID generates a ULID for the X-Request-Id header.
func newRequestID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// do issues one API request. in is marshaled as the JSON body when non-nil;
// the response body is unmarshaled into out when out is non-nil and the
// response is non-empty.
func (c *RESTClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encoding body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", newRequestID())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
	}
	return nil
}
