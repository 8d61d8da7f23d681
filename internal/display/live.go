package display

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// terminalRenderer maintains a repaintable region at the bottom of the
// scrollback: each Draw erases the previous frame with cursor movement and
// writes the new one in its place.
type terminalRenderer struct {
	out        io.Writer
	width      int
	linesDrawn int
}

func newTerminalRenderer(out io.Writer, width int) *terminalRenderer {
	return &terminalRenderer{out: out, width: width}
}

func (t *terminalRenderer) Draw(frame string) {
	t.eraseLines(t.linesDrawn)
	if frame != "" && !strings.HasSuffix(frame, "\n") {
		frame += "\n"
	}
	io.WriteString(t.out, frame)
	t.linesDrawn = t.countLines(frame)
}

func (t *terminalRenderer) Clear() {
	t.eraseLines(t.linesDrawn)
	t.linesDrawn = 0
}

// Finalize erases the frame like Clear. The settled panels have already gone
// to the permanent stream, so nothing of the live region should survive the
// turn.
func (t *terminalRenderer) Finalize() {
	t.eraseLines(t.linesDrawn)
	t.linesDrawn = 0
}

// eraseLines moves the cursor up n lines and clears from there to the end of
// the screen.
func (t *terminalRenderer) eraseLines(n int) {
	if n <= 0 {
		return
	}
	seq := ansi.CursorUp(n)
	seq += ansi.CursorHorizontalAbsolute(1)
	seq += ansi.EraseDisplay(0)
	io.WriteString(t.out, seq)
}

// countLines calculates how many terminal lines the rendered string occupies,
// accounting for wrapping at the terminal width and ignoring ANSI sequences.
func (t *terminalRenderer) countLines(rendered string) int {
	if len(rendered) == 0 {
		return 0
	}

	lines := strings.Split(rendered, "\n")
	total := 0
	for i, line := range lines {
		// Don't count the trailing empty string after the final newline.
		if i == len(lines)-1 && line == "" {
			continue
		}
		lineWidth := ansi.StringWidth(line)
		switch {
		case lineWidth == 0:
			// Empty line still takes one line.
			total++
		case t.width > 0:
			wrapped := (lineWidth + t.width - 1) / t.width
			if wrapped == 0 {
				wrapped = 1
			}
			total += wrapped
		default:
			total++
		}
	}
	return total
}
