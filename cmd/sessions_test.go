package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/term-agent/internal/llm"
	"github.com/samsaffron/term-agent/internal/session"
)

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	old := now.Add(-30 * 24 * time.Hour)

	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
		{old, old.Format("Jan 2")},
	}
	for _, tc := range tests {
		if got := formatRelativeTime(tc.t); got != tc.want {
			t.Errorf("formatRelativeTime(%v) = %q, want %q", tc.t, got, tc.want)
		}
	}
}

func TestFormatSessionCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1k"},
		{1200, "1.2k"},
		{1000000, "1M"},
		{2500000, "2.5M"},
	}
	for _, tc := range tests {
		if got := formatSessionCount(tc.n); got != tc.want {
			t.Errorf("formatSessionCount(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestFormatSessionTokens(t *testing.T) {
	if got := formatSessionTokens(0, 0); got != "-" {
		t.Errorf("formatSessionTokens(0, 0) = %q, want %q", got, "-")
	}
	if got := formatSessionTokens(500, 1200); got != "500/1.2k" {
		t.Errorf("formatSessionTokens(500, 1200) = %q, want %q", got, "500/1.2k")
	}
}

func TestPrintSessionTable(t *testing.T) {
	summaries := []session.Summary{
		{
			ID:           "3f2a9c41-0d6b-4e21-9a57-2f8b1c7d4e90",
			Summary:      "fix the failing parser test in internal/parser please",
			MessageCount: 6,
			LLMTurns:     2,
			ToolCalls:    3,
			InputTokens:  1500,
			OutputTokens: 400,
			Status:       session.StatusComplete,
			UpdatedAt:    time.Now(),
		},
		{
			ID:        "ab12cd34-0000-0000-0000-000000000000",
			Summary:   "short one",
			UpdatedAt: time.Now(),
		},
	}

	var buf bytes.Buffer
	printSessionTable(&buf, summaries)
	out := buf.String()

	if !strings.Contains(out, "ID") || !strings.Contains(out, "SUMMARY") {
		t.Fatalf("missing table header:\n%s", out)
	}
	if !strings.Contains(out, "3f2a9c41") {
		t.Errorf("missing short id:\n%s", out)
	}
	if strings.Contains(out, "3f2a9c41-0d6b") {
		t.Errorf("full id leaked into table:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("long summary not truncated:\n%s", out)
	}
	if !strings.Contains(out, "1.5k/400") {
		t.Errorf("missing compact token column:\n%s", out)
	}
	// Sessions without an explicit status display as active.
	if !strings.Contains(out, "active") {
		t.Errorf("zero status not shown as active:\n%s", out)
	}
}

func TestReplayTranscript(t *testing.T) {
	history := []llm.Message{
		llm.SystemText("you are a terminal agent"),
		llm.UserText("what is in main.go?"),
		{Role: llm.RoleAssistant, Parts: []llm.Part{
			{Type: llm.PartToolCall, ToolCall: &llm.ToolCall{ID: "t1", Name: "read_file"}},
		}},
		llm.ToolResultMessage("t1", "read_file", "package main\n\nfunc main() {}", nil),
		llm.AssistantText("It declares an empty main package."),
	}

	var buf bytes.Buffer
	replayTranscript(&buf, history)
	out := buf.String()

	if !strings.Contains(out, "❯ what is in main.go?") {
		t.Errorf("missing user line:\n%s", out)
	}
	if !strings.Contains(out, "It declares an empty main package.") {
		t.Errorf("missing assistant line:\n%s", out)
	}
	if strings.Contains(out, "terminal agent") {
		t.Errorf("system prompt leaked into replay:\n%s", out)
	}
	if strings.Contains(out, "func main") {
		t.Errorf("tool result leaked into replay:\n%s", out)
	}
}
