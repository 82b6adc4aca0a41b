package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mpolski/tm/internal/timer"
	"github.com/mpolski/tm/internal/tmetric"
)

// Client wraps the Anthropic API for work-day summaries.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildDayPrompt constructs the system and user prompts for a day summary.
func buildDayPrompt(entries []tmetric.TimeEntry, now time.Time) (system string, user string) {
	system = `You summarize a developer's tracked work day for a standup update. You receive today's time entries with task names, projects, and durations.

Rules:
- Write 2-4 plain sentences, first person, past tense
- Group related entries rather than listing each one
- State the total tracked time exactly once
- Describe a still-running entry as work in progress
- Return plain text only, no markdown fencing, no bullet points`

	var sb strings.Builder
	sb.WriteString("Today's time entries:\n\n")
	total := 0
	for i := range entries {
		e := &entries[i]
		minutes := timer.EntryMinutes(e, now)
		total += minutes

		sb.WriteString("- ")
		sb.WriteString(e.TaskName())
		if e.Project != nil && e.Project.Name != "" {
			sb.WriteString(" (")
			sb.WriteString(e.Project.Name)
			sb.WriteString(")")
		}
		sb.WriteString(": ")
		sb.WriteString(timer.FormatDuration(minutes))
		if e.Running() {
			sb.WriteString(" (still running)")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nTotal tracked: ")
	sb.WriteString(timer.FormatDuration(total))
	sb.WriteString("\n")
	user = sb.String()
	return
}

// SummarizeDay sends today's entries to the LLM and returns a short
// plain-text standup summary.
func (c *Client) SummarizeDay(ctx context.Context, entries []tmetric.TimeEntry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("nothing to summarize: no time entries today")
	}
	systemPrompt, userPrompt := buildDayPrompt(entries, time.Now())

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	// Strip markdown fencing if present
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	return text, nil
}
