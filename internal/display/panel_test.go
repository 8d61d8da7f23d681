package display

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/samsaffron/term-agent/internal/turn"
)

func TestRenderPanelErrorShowsExitCode(t *testing.T) {
	panel := renderPanel(turn.ToolCall{
		ID:     "c1",
		Name:   "run_shell_command",
		Status: turn.StatusError,
		Result: "make: *** [all] Error 2\n(exit code: 2)",
	}, 80)

	out := stripANSI(panel)
	if !strings.Contains(out, "(exit 2)") {
		t.Fatalf("header missing exit code:\n%s", out)
	}
	if !strings.Contains(out, "make: *** [all] Error 2") {
		t.Fatalf("body missing command output:\n%s", out)
	}
	if strings.Contains(out, "exit code:") {
		t.Fatalf("raw marker should not render:\n%s", out)
	}
}

func TestRenderPanelDiffSeparator(t *testing.T) {
	panel := renderPanel(turn.ToolCall{
		ID:     "c1",
		Name:   turn.DiffToolName,
		Status: turn.StatusDone,
		Result: "Successfully replaced 1 occurrence(s)\nDiff:\n--- a/main.go\n+++ b/main.go\n+added line",
	}, 100)

	out := stripANSI(panel)
	if !strings.Contains(out, "Successfully replaced 1 occurrence(s)") {
		t.Fatalf("summary line missing:\n%s", out)
	}
	if !strings.Contains(out, "+added line") {
		t.Fatalf("diff tail missing:\n%s", out)
	}
}

func TestRenderPanelFileContent(t *testing.T) {
	panel := renderPanel(turn.ToolCall{
		ID:     "c1",
		Name:   "read_file",
		Status: turn.StatusDone,
		Result: "[FILE]: main.go\npackage main",
	}, 80)

	out := stripANSI(panel)
	if !strings.Contains(out, "[FILE]: main.go") {
		t.Fatalf("file marker missing:\n%s", out)
	}
	if !strings.Contains(out, "package main") {
		t.Fatalf("file body missing:\n%s", out)
	}
}

func TestRenderPanelURLContent(t *testing.T) {
	panel := renderPanel(turn.ToolCall{
		ID:     "c1",
		Name:   "fetch",
		Status: turn.StatusDone,
		Result: "[URL]: https://example.com\nExample Domain",
	}, 80)

	out := stripANSI(panel)
	if !strings.Contains(out, "[URL]: https://example.com") {
		t.Fatalf("url marker missing:\n%s", out)
	}
	if !strings.Contains(out, "Example Domain") {
		t.Fatalf("page text missing:\n%s", out)
	}
}

func TestRenderPanelEmptyResult(t *testing.T) {
	panel := renderPanel(turn.ToolCall{
		ID:     "c1",
		Name:   "write_file",
		Status: turn.StatusDone,
	}, 80)

	out := stripANSI(panel)
	if !strings.Contains(out, "write_file") {
		t.Fatalf("header missing tool name:\n%s", out)
	}
	if !strings.Contains(out, "╭") {
		t.Fatalf("expected a border:\n%s", out)
	}
}

func TestHighlightNilLexerPassesThrough(t *testing.T) {
	if got := highlight("plain text", nil); got != "plain text" {
		t.Fatalf("got %q, want passthrough", got)
	}
}

func TestStatusLineTruncatesArgs(t *testing.T) {
	line := statusLine(turn.ToolCall{
		ID:     "c1",
		Name:   "run_shell_command",
		Args:   json.RawMessage(`{"command":"echo hello world"}`),
		Status: turn.StatusPending,
	}, 30)

	got := stripANSI(line)
	want := "○ run_shell_command command..."
	if got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}

func TestStatusLineDimsArgs(t *testing.T) {
	// Tests run without a TTY, where lipgloss would pick the Ascii profile
	// and strip all color; pin a real profile so the style is observable.
	prevProfile := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI256)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(prevProfile)
	})

	line := statusLine(turn.ToolCall{
		ID:     "c1",
		Name:   "read_file",
		Args:   json.RawMessage(`{"path":"main.go"}`),
		Status: turn.StatusRunning,
	}, 0)

	if !strings.Contains(line, "\x1b[38;5;250m") {
		t.Fatalf("args not rendered in the muted arg color:\n%q", line)
	}
	if !strings.Contains(stripANSI(line), "path=main.go") {
		t.Fatalf("args text missing:\n%q", line)
	}
}

func TestArgSummaryKeepsKeyOrder(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"ordered keys", `{"path":"a.go","line":12}`, "path=a.go line=12"},
		{"reversed keys", `{"line":12,"path":"a.go"}`, "line=12 path=a.go"},
		{"newlines flattened", `{"content":"a\nb"}`, "content=a b"},
		{"nested value", `{"opts":{"x":1}}`, `opts={"x":1}`},
		{"scalar payload", `"just text"`, "just text"},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argSummary(json.RawMessage(tt.raw))
			if got != tt.want {
				t.Fatalf("argSummary(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
