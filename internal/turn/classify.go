package turn

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samsaffron/term-agent/internal/llm"
)

// Status is the lifecycle state of a tool call within a turn.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether the status ends the call's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// ToolCall is the tracked lifecycle record for one tool invocation. Identity
// is the ID, unique within a turn; Args keeps the raw JSON object so argument
// order survives to the display.
type ToolCall struct {
	ID     string
	Name   string
	Args   json.RawMessage
	Status Status
	Result string
}

// DiffToolName is the structured-diff tool. Its results bypass preview
// truncation entirely so the diff reaches the renderer verbatim.
const DiffToolName = "search_replace"

// CommunicateToolName is the aside-message tool; the display renders it as
// muted inline text instead of a bordered panel.
const CommunicateToolName = "communicate"

// Preview bounds.
const (
	DefaultMaxLines      = 30
	DefaultMaxLineLength = 120
)

// exitCodeMarker precedes the decimal code the shell tool appends to its
// output.
const exitCodeMarker = "(exit code: "

// SplitExitCode splits content at a trailing exit-code marker. ok is false
// when no marker is present or the code is not an integer; the content is
// then returned unchanged.
func SplitExitCode(content string) (body string, code int, ok bool) {
	idx := strings.LastIndex(content, exitCodeMarker)
	if idx < 0 {
		return content, 0, false
	}
	rest := content[idx+len(exitCodeMarker):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return content, 0, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return content, 0, false
	}
	return content[:idx], code, true
}

// Classifier tracks which tool-call ids have been seen within a turn and
// extracts newly requested calls from agent messages.
type Classifier struct {
	seen map[string]struct{}
}

func NewClassifier() *Classifier {
	return &Classifier{seen: make(map[string]struct{})}
}

// NewCalls collects tool-call requests whose id has not been seen this turn,
// in arrival order. Each returned call is registered as pending; the runner
// promotes it to running immediately, since the agent has already committed
// to executing it by the time the request is observable.
func (c *Classifier) NewCalls(messages []llm.Message) []ToolCall {
	var calls []ToolCall
	for _, msg := range messages {
		for _, call := range llm.ToolCalls(msg) {
			if _, ok := c.seen[call.ID]; ok {
				continue
			}
			c.seen[call.ID] = struct{}{}
			calls = append(calls, ToolCall{
				ID:     call.ID,
				Name:   call.Name,
				Args:   call.Arguments,
				Status: StatusPending,
			})
		}
	}
	return calls
}

// ClassifyResult derives the terminal status and display text for one tool
// result. A parseable non-zero exit code means error, with the raw content
// (marker included) retained so the renderer can surface the code. The
// structured-diff tool keeps its content verbatim; everything else is
// reduced to a bounded preview. An unparseable code degrades to done.
func ClassifyResult(result llm.ToolResult) (Status, string) {
	if _, code, ok := SplitExitCode(result.Content); ok && code != 0 {
		return StatusError, result.Content
	}
	if result.Name == DiffToolName {
		return StatusDone, result.Content
	}
	return StatusDone, Preview(result.Content, DefaultMaxLines, DefaultMaxLineLength)
}

// Preview bounds result content for display. The exit-code marker and
// everything after it are dropped, fully-blank lines at both edges trimmed,
// and at most maxLines content lines kept, each capped at maxLineLength
// characters. Blank lines between kept lines are preserved verbatim so
// structured output keeps its shape; a trailing ellipsis line marks content
// cut by the line budget.
func Preview(content string, maxLines, maxLineLength int) string {
	if body, _, ok := SplitExitCode(content); ok {
		content = body
	}

	lines := strings.Split(content, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	lines = lines[start:end]

	var kept []string
	var pendingBlanks []string
	nonBlank := 0
	truncated := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			pendingBlanks = append(pendingBlanks, line)
			continue
		}
		if nonBlank >= maxLines {
			truncated = true
			break
		}
		kept = append(kept, pendingBlanks...)
		pendingBlanks = pendingBlanks[:0]
		kept = append(kept, truncateLine(line, maxLineLength))
		nonBlank++
	}
	if truncated {
		kept = append(kept, "...")
	}
	return strings.Join(kept, "\n")
}

func truncateLine(line string, maxLen int) string {
	runes := []rune(line)
	if len(runes) <= maxLen {
		return line
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
