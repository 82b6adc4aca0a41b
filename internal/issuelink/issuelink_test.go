package issuelink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitLabIssueRoundTrip(t *testing.T) {
	url := "https://gitlab.example.com/group/project/-/issues/42"

	assert.Equal(t, "42", ExtractIssueNumber(url))
	assert.Equal(t, "https://gitlab.example.com", ExtractBaseURL(url))
	assert.Equal(t, "GitLab", DetectIntegrationType(url))
	assert.Equal(t, "GitLab Issue: #42", FormatIssueID("42", "GitLab"))
}

func TestGitHubIssueRoundTrip(t *testing.T) {
	url := "https://github.com/user/repo/issues/7"

	assert.Equal(t, "7", ExtractIssueNumber(url))
	assert.Equal(t, "https://github.com", ExtractBaseURL(url))
	assert.Equal(t, "GitHub", DetectIntegrationType(url))
	assert.Equal(t, "GitHub Issue: #7", FormatIssueID("7", "GitHub"))
}

func TestExtractIssueNumber_IgnoresTrailingParts(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://github.com/u/r/issues/7?tab=comments", "7"},
		{"https://gitlab.com/g/p/-/issues/123#note_4", "123"},
		{"https://gitlab.com/g/p/-/merge_requests/9", ""},
		{"https://example.com/nothing/here", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractIssueNumber(tc.url), tc.url)
	}
}

func TestMalformedURLFallbacks(t *testing.T) {
	assert.Equal(t, "https://gitlab.com", ExtractBaseURL("not-a-url"))
	assert.Equal(t, "GitLab", DetectIntegrationType("not-a-url"))
	assert.Equal(t, "", ExtractIssueNumber("not-a-url"))
}

func TestExtractBaseURL_KeepsPort(t *testing.T) {
	assert.Equal(t, "http://gitlab.local:8080", ExtractBaseURL("http://gitlab.local:8080/g/p/-/issues/3"))
}

func TestBuildTask_WithIssueURL(t *testing.T) {
	task := BuildTask("Fix login flow", "https://github.com/user/repo/issues/456")

	assert.Equal(t, "Fix login flow", task.Name)
	require.NotNil(t, task.ExternalLink)
	assert.Equal(t, "https://github.com/user/repo/issues/456", task.ExternalLink.Link)
	assert.Equal(t, "GitHub Issue: #456", task.ExternalLink.IssueID)
	require.NotNil(t, task.Integration)
	assert.Equal(t, "https://github.com", task.Integration.URL)
	assert.Equal(t, "GitHub", task.Integration.Type)
}

func TestBuildTask_UnusableURLIsIgnored(t *testing.T) {
	cases := []string{"", "not-a-url", "https://gitlab.com/g/p/-/merge_requests/9"}
	for _, url := range cases {
		task := BuildTask("Fix login flow", url)
		assert.Equal(t, "Fix login flow", task.Name)
		assert.Nil(t, task.ExternalLink, "no issue number means no external link (url %q)", url)
		assert.Nil(t, task.Integration, "no issue number means no integration (url %q)", url)
	}
}
