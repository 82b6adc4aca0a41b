// Package issuelink derives issue tracker metadata from task URLs so new
// time entries can link back to the GitHub or GitLab issue they track.
package issuelink

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mpolski/tm/internal/tmetric"
)

// fallbackBaseURL is used when a task URL cannot be parsed.
const fallbackBaseURL = "https://gitlab.com"

var issueNumberRe = regexp.MustCompile(`issues/(\d+)`)

// DetectIntegrationType classifies a task URL as "GitHub" or "GitLab".
// Everything that is not github.com counts as GitLab, which covers
// self-hosted instances and unparseable URLs alike.
func DetectIntegrationType(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil && strings.Contains(u.Host, "github.com") {
		return "GitHub"
	}
	return "GitLab"
}

// ExtractBaseURL returns the "{scheme}://{host}" prefix of a task URL,
// falling back to the public GitLab host when the URL cannot be parsed.
func ExtractBaseURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fallbackBaseURL
	}
	return u.Scheme + "://" + u.Host
}

// ExtractIssueNumber pulls the digits out of an issues/{n} path segment
// anywhere in the URL. The empty string means no issue number was found.
func ExtractIssueNumber(rawURL string) string {
	m := issueNumberRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// FormatIssueID renders the display id stored on the external link,
// e.g. "GitHub Issue: #456".
func FormatIssueID(number, integrationType string) string {
	return fmt.Sprintf("%s Issue: #%s", integrationType, number)
}

// BuildTask assembles the task object for a new time entry. Only when
// taskURL yields an issue number does the task carry an external link and
// integration block; an unusable URL is silently ignored.
func BuildTask(name, taskURL string) *tmetric.Task {
	task := &tmetric.Task{Name: name}
	if taskURL == "" {
		return task
	}
	number := ExtractIssueNumber(taskURL)
	if number == "" {
		return task
	}
	integrationType := DetectIntegrationType(taskURL)
	task.ExternalLink = &tmetric.ExternalLink{
		Link:    taskURL,
		IssueID: FormatIssueID(number, integrationType),
	}
	task.Integration = &tmetric.Integration{
		URL:  ExtractBaseURL(taskURL),
		Type: integrationType,
	}
	return task
}
