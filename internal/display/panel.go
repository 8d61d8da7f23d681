package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/reflow/wordwrap"

	"github.com/samsaffron/term-agent/internal/turn"
)

// Result markers written by the tool layer. The renderer keys highlighting
// off them; everything else stays plain text.
const (
	diffSeparator = "\nDiff:\n"
	fileMarker    = "[FILE]: "
	urlMarker     = "[URL]: "
)

// renderPanel renders a settled tool call as a bordered panel for the
// permanent output stream. Rendering must never abort a turn, so any panic
// from the styling stack degrades to an unstyled panel.
func renderPanel(call turn.ToolCall, width int) (out string) {
	defer func() {
		if recover() != nil {
			out = plainPanel(call)
		}
	}()

	header := statusCircle(call.Status) + " " + call.Name
	if call.Status == turn.StatusError {
		if _, code, ok := turn.SplitExitCode(call.Result); ok {
			header += " " + mutedStyle.Render(fmt.Sprintf("(exit %d)", code))
		}
	}

	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	content := header
	if body := renderBody(call, inner); body != "" {
		content += "\n" + body
	}

	style := panelStyle
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(content)
}

// renderBody picks the body treatment from the result's leading marker.
func renderBody(call turn.ToolCall, width int) string {
	body := call.Result
	if body == "" {
		return ""
	}

	if call.Status == turn.StatusError {
		// The exit code already sits in the header; show the output alone.
		if head, _, ok := turn.SplitExitCode(body); ok {
			body = strings.TrimRight(head, "\n")
		}
		return wordwrap.String(body, width)
	}

	if call.Name == turn.DiffToolName {
		if head, diff, ok := strings.Cut(body, diffSeparator); ok {
			rendered := highlight(diff, lexers.Get("diff"))
			if head = strings.TrimSpace(head); head != "" {
				return mutedStyle.Render(head) + "\n" + rendered
			}
			return rendered
		}
	}

	if rest, ok := strings.CutPrefix(body, fileMarker); ok {
		if path, content, found := strings.Cut(rest, "\n"); found {
			return mutedStyle.Render(fileMarker+path) + "\n" + highlight(content, lexers.Match(path))
		}
		return mutedStyle.Render(body)
	}

	if strings.HasPrefix(body, urlMarker) {
		if first, rest, found := strings.Cut(body, "\n"); found {
			return mutedStyle.Render(first) + "\n" + wordwrap.String(rest, width)
		}
		return mutedStyle.Render(body)
	}

	return wordwrap.String(body, width)
}

func plainPanel(call turn.ToolCall) string {
	if call.Result == "" {
		return call.Name
	}
	return call.Name + "\n" + call.Result
}

// highlight renders source through a chroma lexer using foreground-only true
// color, monokai theme. Any failure returns the body unstyled.
func highlight(body string, lexer chroma.Lexer) string {
	if lexer == nil {
		return body
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, body)
	if err != nil {
		return body
	}

	var buf strings.Builder
	if err := (&fgFormatter{style: style}).Format(&buf, iterator); err != nil {
		return body
	}
	return buf.String()
}

// fgFormatter is a chroma formatter that applies only foreground colors.
// Tokens spanning newlines are styled per line so no escape sequence crosses
// a line boundary.
type fgFormatter struct {
	style *chroma.Style
}

func (f *fgFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := f.style.Get(token.Type)

		var codes []string
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}
		if entry.Underline == chroma.Yes {
			codes = append(codes, "4")
		}

		for i, seg := range strings.Split(token.Value, "\n") {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if seg == "" {
				continue
			}
			var err error
			if len(codes) > 0 {
				_, err = fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), seg)
			} else {
				_, err = io.WriteString(w, seg)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
