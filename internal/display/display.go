// Package display tracks live tool calls during a turn and renders them to
// the terminal: a repaintable status region while calls run, a permanent
// bordered panel once each call settles.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/samsaffron/term-agent/internal/turn"
)

// StatusDisplay is the single source of truth for in-flight tool calls. All
// mutations go through its mutex; the renderer only ever sees whole frames.
type StatusDisplay struct {
	mu       sync.Mutex
	out      io.Writer
	renderer LiveRenderer
	width    int
	live     bool

	active  map[string]*turn.ToolCall
	retired map[string]struct{}
	order   []string
}

var _ turn.Display = (*StatusDisplay)(nil)

// New returns the display for out: live ANSI rendering on a terminal, the
// immediate-print fallback when stdout is not a terminal or
// TERM_AGENT_NO_LIVE=1 is set.
func New(out io.Writer) *StatusDisplay {
	if os.Getenv("TERM_AGENT_NO_LIVE") == "1" || !term.IsTerminal(int(os.Stdout.Fd())) {
		return NewPrintingDisplay(out)
	}
	return NewStatusDisplay(out)
}

// NewStatusDisplay returns a display with the live status region enabled.
func NewStatusDisplay(out io.Writer) *StatusDisplay {
	width := terminalWidth()
	return &StatusDisplay{
		out:      out,
		renderer: newTerminalRenderer(out, width),
		width:    width,
		live:     true,
		active:   make(map[string]*turn.ToolCall),
		retired:  make(map[string]struct{}),
	}
}

// NewPrintingDisplay returns a display without a live region: every update
// prints immediately. Used when stdout is not a terminal.
func NewPrintingDisplay(out io.Writer) *StatusDisplay {
	return &StatusDisplay{
		out:      out,
		renderer: nopRenderer{},
		width:    terminalWidth(),
		active:   make(map[string]*turn.ToolCall),
		retired:  make(map[string]struct{}),
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// Register adds new pending calls to the active set. Ids already active or
// already settled this turn are ignored.
func (d *StatusDisplay) Register(calls []turn.ToolCall) {
	d.mu.Lock()
	defer d.mu.Unlock()

	added := false
	for _, call := range calls {
		if _, ok := d.active[call.ID]; ok {
			continue
		}
		if _, ok := d.retired[call.ID]; ok {
			continue
		}
		if call.Status == "" {
			call.Status = turn.StatusPending
		}
		c := call
		d.active[call.ID] = &c
		d.order = append(d.order, call.ID)
		added = true
	}
	if added && d.live {
		d.redrawLocked()
	}
}

// Update applies a status transition. Unknown and retired ids are silent
// no-ops, as are transitions that would move a call backwards. A terminal
// status settles the call: it is painted into the live region one last time,
// removed from the active set, and emitted to the permanent stream exactly
// once.
func (d *StatusDisplay) Update(id string, status turn.Status, result string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	call, ok := d.active[id]
	if !ok {
		return
	}
	if statusRank(status) < statusRank(call.Status) {
		return
	}

	call.Status = status
	call.Result = result

	if !status.Terminal() {
		if d.live {
			d.redrawLocked()
		} else {
			fmt.Fprintln(d.out, statusLine(*call, d.width))
		}
		return
	}

	if d.live {
		d.redrawLocked()
		d.flushLocked()
	}

	delete(d.active, id)
	d.retired[id] = struct{}{}
	d.dropOrderLocked(id)

	if d.live {
		d.renderer.Clear()
	}

	d.emitLocked(*call)

	if d.live && len(d.active) > 0 {
		d.redrawLocked()
	}
}

// Clear stops live rendering and discards all call state.
func (d *StatusDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.renderer.Clear()
	d.active = make(map[string]*turn.ToolCall)
	d.retired = make(map[string]struct{})
	d.order = nil
}

// Finalize stops live rendering at the normal end of a turn without leaving
// an empty frame behind.
func (d *StatusDisplay) Finalize() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.renderer.Finalize()
}

// Release erases the live frame so an interactive prompt can use the
// terminal. Call state is kept; Redraw restores the frame afterwards.
func (d *StatusDisplay) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.renderer.Clear()
}

// Redraw repaints the live frame after a Release.
func (d *StatusDisplay) Redraw() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.live && len(d.active) > 0 {
		d.redrawLocked()
	}
}

// Lookup returns a snapshot of an active call. Settled calls are not found.
func (d *StatusDisplay) Lookup(id string) (turn.ToolCall, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	call, ok := d.active[id]
	if !ok {
		return turn.ToolCall{}, false
	}
	return *call, true
}

func (d *StatusDisplay) redrawLocked() {
	var b strings.Builder
	for _, id := range d.order {
		call, ok := d.active[id]
		if !ok {
			continue
		}
		b.WriteString(statusLine(*call, d.width))
		b.WriteByte('\n')
	}
	d.renderer.Draw(b.String())
}

// emitLocked writes the settled call to the permanent stream: muted inline
// text for the communicate tool, a bordered panel for everything else.
func (d *StatusDisplay) emitLocked(call turn.ToolCall) {
	if call.Name == turn.CommunicateToolName {
		if text := strings.TrimSpace(call.Result); text != "" {
			fmt.Fprintln(d.out, mutedStyle.Render(text))
		}
		return
	}
	fmt.Fprintln(d.out, renderPanel(call, d.width))
}

func (d *StatusDisplay) dropOrderLocked(id string) {
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return
		}
	}
}

type flusher interface{ Flush() error }

func (d *StatusDisplay) flushLocked() {
	if f, ok := d.out.(flusher); ok {
		f.Flush()
	}
}

func statusRank(s turn.Status) int {
	switch s {
	case turn.StatusRunning:
		return 1
	case turn.StatusDone, turn.StatusError:
		return 2
	}
	return 0
}
