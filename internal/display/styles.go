package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/samsaffron/term-agent/internal/turn"
)

const (
	pendingCircleANSI = "\033[38;5;245m○\033[0m"        // gray hollow circle
	runningCircleANSI = "\033[38;2;255;165;0m●\033[0m"  // orange filled circle
	doneCircleANSI    = "\033[38;2;79;185;101m●\033[0m" // #4FB965 green filled circle
	errorCircleANSI   = "\033[38;2;239;68;68m●\033[0m"  // #ef4444 red filled circle
)

// statusCircle returns the indicator for a lifecycle state.
func statusCircle(s turn.Status) string {
	switch s {
	case turn.StatusRunning:
		return runningCircleANSI
	case turn.StatusDone:
		return doneCircleANSI
	case turn.StatusError:
		return errorCircleANSI
	}
	return pendingCircleANSI
}

// Muted style for tool args (lighter than general muted text).
var argStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

// mutedStyle dims whole lines: communicate messages, panel subtitles.
var mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1)

// statusLine renders one live-region row: circle, tool name, muted args.
// width caps the whole rendered line (0 = no truncation).
func statusLine(call turn.ToolCall, width int) string {
	info := truncateArgs(call.Name, argSummary(call.Args), width)
	if info != "" {
		return statusCircle(call.Status) + " " + call.Name + " " + argStyle.Render(info)
	}
	return statusCircle(call.Status) + " " + call.Name
}

// truncateArgs truncates raw args text so the full rendered line
// (circle + space + name + space + info) fits within width. Widths are
// display cells, not runes; truncation happens on the raw text before
// styling to avoid breaking ANSI codes.
func truncateArgs(name, info string, width int) string {
	if width <= 0 || info == "" {
		return info
	}
	// 2 = circle (1 visible cell) + space; 1 = space between name and info
	overhead := 2 + runewidth.StringWidth(name) + 1
	maxInfoWidth := width - overhead
	if maxInfoWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(info) <= maxInfoWidth {
		return info
	}
	if maxInfoWidth <= 3 {
		return runewidth.Truncate(info, maxInfoWidth, "")
	}
	return runewidth.Truncate(info, maxInfoWidth, "...")
}

// argSummary flattens a JSON argument object into a single line, keeping the
// keys in the order the model emitted them.
func argSummary(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		if _, isDelim := tok.(json.Delim); isDelim {
			return flattenArg(string(raw))
		}
		return flattenArg(tok)
	}
	var parts []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			break
		}
		key, ok := keyTok.(string)
		if !ok {
			break
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			break
		}
		parts = append(parts, key+"="+flattenArg(val))
	}
	return strings.Join(parts, " ")
}

func flattenArg(val any) string {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		s = string(b)
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
