package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/samsaffron/term-agent/internal/llm"
)

var errAskCancelled = errors.New("cancelled by user")

var (
	askUserMu sync.Mutex

	// askUserUIFunc overrides the interactive prompt. The chat TUI installs
	// one to render questions inline; tests install stubs.
	askUserUIFunc func(question string, choices []string) (string, error)

	// OnAskUserStart and OnAskUserEnd run around the prompt so the live
	// display can release the terminal while the user types.
	OnAskUserStart func()
	OnAskUserEnd   func()
)

// SetAskUserUI installs a custom prompt implementation. Pass nil to restore
// the default TTY prompt.
func SetAskUserUI(fn func(question string, choices []string) (string, error)) {
	askUserMu.Lock()
	defer askUserMu.Unlock()
	askUserUIFunc = fn
}

// SetAskUserHooks installs callbacks run before and after the prompt.
func SetAskUserHooks(start, end func()) {
	askUserMu.Lock()
	defer askUserMu.Unlock()
	OnAskUserStart = start
	OnAskUserEnd = end
}

// AskUserTool asks the user a question mid-turn and returns their answer.
type AskUserTool struct{}

// NewAskUserTool creates a new AskUserTool.
func NewAskUserTool() *AskUserTool {
	return &AskUserTool{}
}

// AskUserArgs are the arguments for ask_user.
type AskUserArgs struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices,omitempty"`
}

func (t *AskUserTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        AskUserToolName,
		Description: "Ask the user a question and wait for their answer. Provide choices for a pick list, omit them for free-form text. Use when you need a decision or clarification you cannot infer.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to ask the user",
				},
				"choices": map[string]interface{}{
					"type":        "array",
					"description": "Optional list of 2-8 predefined answers",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			"required":             []string{"question"},
			"additionalProperties": false,
		},
	}
}

func (t *AskUserTool) Preview(args json.RawMessage) string {
	var a AskUserArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Question == "" {
		return ""
	}
	return previewEllipsis(a.Question, 60)
}

func (t *AskUserTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a AskUserArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Question == "" {
		return "", NewToolError(ErrInvalidParams, "question is required")
	}
	if len(a.Choices) == 1 {
		return "", NewToolError(ErrInvalidParams, "choices needs at least two entries")
	}
	if len(a.Choices) > 8 {
		return "", NewToolError(ErrInvalidParams, "maximum 8 choices allowed")
	}
	warning := WarnUnknownParams(args, "question", "choices")

	askUserMu.Lock()
	uiFunc := askUserUIFunc
	startHook := OnAskUserStart
	endHook := OnAskUserEnd
	askUserMu.Unlock()

	var answer string
	var err error
	if uiFunc != nil {
		answer, err = uiFunc(a.Question, a.Choices)
	} else {
		if startHook != nil {
			startHook()
		}
		answer, err = promptOnTTY(a.Question, a.Choices)
		if endHook != nil {
			endHook()
		}
	}

	if err != nil {
		if errors.Is(err, errAskCancelled) {
			return "", NewToolError(ErrExecutionFailed, "user cancelled the question")
		}
		return "", NewToolError(ErrExecutionFailed, err.Error())
	}
	return warning + answer, nil
}

func promptOnTTY(question string, choices []string) (string, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("no TTY available: %w", err)
	}
	defer tty.Close()

	if len(choices) > 0 {
		return selectChoice(tty, question, choices)
	}
	return readFreeText(tty, question)
}

func selectChoice(tty *os.File, question string, choices []string) (string, error) {
	options := make([]huh.Option[string], 0, len(choices))
	for _, c := range choices {
		options = append(options, huh.NewOption(c, c))
	}

	var answer string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(question).
				Options(options...).
				Value(&answer),
		),
	).WithShowHelp(false).WithInput(tty).WithOutput(tty)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errAskCancelled
		}
		return "", err
	}
	return answer, nil
}

type askInputModel struct {
	question  string
	input     textinput.Model
	done      bool
	cancelled bool
}

func newAskInputModel(question string) askInputModel {
	ti := textinput.New()
	ti.Placeholder = "Type your answer"
	ti.CharLimit = 500
	ti.Width = 50
	ti.Prompt = "> "
	ti.Focus()
	return askInputModel{question: question, input: ti}
}

func (m askInputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m askInputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m askInputModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return m.question + "\n" + m.input.View() + "\n"
}

func readFreeText(tty *os.File, question string) (string, error) {
	p := tea.NewProgram(newAskInputModel(question), tea.WithInput(tty), tea.WithOutput(tty))
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	m, ok := finalModel.(askInputModel)
	if !ok || m.cancelled {
		return "", errAskCancelled
	}

	answer := strings.TrimSpace(m.input.Value())
	// The TUI view is cleared on exit; echo the exchange so it persists.
	fmt.Fprintf(tty, "%s\n> %s\n", question, answer)
	return answer, nil
}
