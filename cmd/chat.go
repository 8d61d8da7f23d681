package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/llm"
	"github.com/samsaffron/term-agent/internal/render"
	"github.com/samsaffron/term-agent/internal/session"
	"github.com/samsaffron/term-agent/internal/turn"
)

var (
	chatModel     string
	chatProvider  string
	chatDebug     bool
	chatYolo      bool
	chatMaxTurns  int
	chatNoSession bool
	chatResume    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session. Each line you type runs one agent
turn; the conversation carries forward between turns.

Slash commands:
  /help         - Show available commands
  /clear        - Start a fresh conversation
  /model [id]   - Show or switch the active model
  /models       - List models for the active provider
  /sessions     - List recent sessions
  /resume [id]  - Resume a session into this chat
  /usage        - Show token usage for this chat
  /quit         - Exit chat

Ctrl-C cancels a running turn; at the prompt it exits.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	AddModelFlag(chatCmd, &chatModel)
	AddProviderFlag(chatCmd, &chatProvider)
	AddDebugFlag(chatCmd, &chatDebug)
	AddYoloFlag(chatCmd, &chatYolo)
	AddMaxTurnsFlag(chatCmd, &chatMaxTurns)
	AddNoSessionFlag(chatCmd, &chatNoSession)
	AddResumeFlag(chatCmd, &chatResume)
	rootCmd.AddCommand(chatCmd)

	// Assigned here rather than in the var block so /help can walk the table
	// without an initialization cycle.
	chatCommands = []chatCommand{
		{"help", "/help", "Show available commands", chatHelpCmd},
		{"clear", "/clear", "Start a fresh conversation", chatClearCmd},
		{"model", "/model [id]", "Show or switch the active model", chatModelCmd},
		{"models", "/models", "List models for the active provider", chatModelsCmd},
		{"sessions", "/sessions", "List recent sessions", chatSessionsCmd},
		{"resume", "/resume [id]", "Resume a session into this chat", chatResumeSlash},
		{"usage", "/usage", "Show token usage for this chat", chatUsageCmd},
		{"quit", "/quit", "Exit chat", chatQuitCmd},
	}
}

var chatPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)

var chatNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

// errQuitChat signals a clean REPL exit from a slash command.
var errQuitChat = errors.New("quit chat")

// chatCommand is one slash command. name is matched without the slash.
type chatCommand struct {
	name  string
	usage string
	help  string
	run   func(s *chatState, args string) error
}

var chatCommands []chatCommand

// chatState is the mutable conversation state behind the REPL.
type chatState struct {
	ctx   context.Context
	cfg   *config.Config
	env   *agentEnv
	store session.Store

	sess    *session.Session
	saver   *session.Autosaver
	history []llm.Message

	// seenUsage is the engine's cumulative usage already folded into
	// totalUsage; the difference after a turn is that turn's cost.
	seenUsage  llm.Usage
	totalUsage llm.Usage

	out  io.Writer
	errw io.Writer
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyModelFlags(cfg, chatProvider, chatModel)

	ctx := context.Background()

	env, err := setupAgent(ctx, cfg, agentFlags{
		Debug:    chatDebug,
		Yolo:     chatYolo,
		MaxTurns: chatMaxTurns,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := openStore(cfg, chatNoSession, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	s := &chatState{
		ctx:   ctx,
		cfg:   cfg,
		env:   env,
		store: store,
		out:   os.Stdout,
		errw:  cmd.ErrOrStderr(),
	}

	if cmd.Flags().Changed("resume") {
		if cfg.Session.Disabled || chatNoSession {
			return fmt.Errorf("session storage is disabled; cannot resume")
		}
		sess, history, err := resumeSession(ctx, store, strings.TrimSpace(chatResume))
		if err != nil {
			return err
		}
		s.bindSession(sess)
		s.history = history
		replayTranscript(s.out, history)
	} else {
		sess := newSession(cfg, env.ProviderName, env.Model)
		_ = store.Create(ctx, sess)
		s.bindSession(sess)
	}
	defer s.shutdown()

	fmt.Fprintln(s.out, chatNoticeStyle.Render(
		fmt.Sprintf("term-agent chat (%s:%s). Type /help for commands.", env.ProviderName, env.Model)))

	lines := readLines(os.Stdin)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	for {
		// A Ctrl-C that cancelled the previous turn is still buffered here;
		// it must not also end the chat.
		drainSignals(sigCh)

		fmt.Fprint(s.out, chatPromptStyle.Render(">")+" ")

		var line string
		var ok bool
		select {
		case line, ok = <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return nil
			}
		case <-sigCh:
			fmt.Fprintln(s.out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if err := s.dispatch(line); err != nil {
				if errors.Is(err, errQuitChat) {
					return nil
				}
				fmt.Fprintf(s.errw, "Error: %v\n", err)
			}
			continue
		}
		s.runTurn(line)
	}
}

// readLines feeds stdin lines to a channel and closes it on EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

func drainSignals(ch chan os.Signal) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// bindSession points the autosaver at a session, flushing the previous one.
func (s *chatState) bindSession(sess *session.Session) {
	if s.saver != nil {
		s.saver.Close(time.Second)
	}
	s.sess = sess
	s.saver = session.NewAutosaver(snapshotPersister(s.store, sess.ID))
	_ = s.store.SetCurrent(s.ctx, sess.ID)
}

func (s *chatState) shutdown() {
	if s.sess != nil {
		_ = s.store.UpdateStatus(s.ctx, s.sess.ID, session.StatusComplete)
	}
	if s.saver != nil {
		s.saver.Close(2 * time.Second)
	}
}

func (s *chatState) runTurn(input string) {
	if !historyHasSystem(s.history) {
		s.history = append([]llm.Message{llm.SystemText(s.env.SystemPrompt)}, s.history...)
	}
	s.history = append(s.history, llm.UserText(input))
	s.saver.RequestSave(s.history)
	_ = s.store.IncrementUserTurns(s.ctx, s.sess.ID)
	if s.sess.Summary == "" {
		s.sess.Summary = session.TruncateSummary(input)
		_ = s.store.Update(s.ctx, s.sess)
	}

	observed, err := executeTurn(s.ctx, s.env, s.history)
	if err != nil {
		if turn.IsCancelled(err) {
			_ = s.store.UpdateStatus(s.ctx, s.sess.ID, session.StatusInterrupted)
			fmt.Fprintln(s.errw, "Cancelled.")
			return
		}
		_ = s.store.UpdateStatus(s.ctx, s.sess.ID, session.StatusError)
		fmt.Fprintf(s.errw, "Error: %v\n", err)
		return
	}

	s.history = append(s.history, observed...)
	s.saver.RequestSave(s.history)

	usage := s.turnUsage()
	s.totalUsage.Add(usage)
	_ = s.store.UpdateMetrics(s.ctx, s.sess.ID,
		countAssistantMessages(observed), countToolCalls(observed),
		usage.InputTokens, usage.OutputTokens)
	_ = s.store.UpdateStatus(s.ctx, s.sess.ID, session.StatusActive)

	if answer := lastAssistantText(observed); answer != "" {
		fmt.Fprintln(s.out, render.FinalAnswer(os.Stdout, answer))
	}
	renderGeneratedImages(s.out, observed)
}

// turnUsage returns the engine usage accrued since the last call.
func (s *chatState) turnUsage() llm.Usage {
	total := s.env.Engine.Usage()
	delta := llm.Usage{
		InputTokens:       total.InputTokens - s.seenUsage.InputTokens,
		OutputTokens:      total.OutputTokens - s.seenUsage.OutputTokens,
		CachedInputTokens: total.CachedInputTokens - s.seenUsage.CachedInputTokens,
	}
	s.seenUsage = total
	return delta
}

func (s *chatState) dispatch(line string) error {
	name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	cmd, suggestion := matchChatCommand(strings.ToLower(name))
	if cmd == nil {
		if suggestion != "" {
			fmt.Fprintf(s.errw, "Unknown command /%s. Did you mean /%s?\n", name, suggestion)
		} else {
			fmt.Fprintf(s.errw, "Unknown command /%s. Type /help for commands.\n", name)
		}
		return nil
	}
	return cmd.run(s, strings.TrimSpace(args))
}

// matchChatCommand resolves a command name, accepting a unique prefix. When
// nothing matches, suggestion carries the closest command by fuzzy match.
func matchChatCommand(name string) (*chatCommand, string) {
	if name == "" {
		return nil, ""
	}
	var prefixed []*chatCommand
	for i := range chatCommands {
		if chatCommands[i].name == name {
			return &chatCommands[i], ""
		}
		if strings.HasPrefix(chatCommands[i].name, name) {
			prefixed = append(prefixed, &chatCommands[i])
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], ""
	}

	names := make([]string, len(chatCommands))
	for i := range chatCommands {
		names[i] = chatCommands[i].name
	}
	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		return nil, matches[0].Str
	}
	return nil, ""
}

func chatHelpCmd(s *chatState, _ string) error {
	for _, c := range chatCommands {
		fmt.Fprintf(s.out, "  %-14s %s\n", c.usage, c.help)
	}
	return nil
}

func chatClearCmd(s *chatState, _ string) error {
	s.history = nil
	sess := newSession(s.cfg, s.env.ProviderName, s.env.Model)
	_ = s.store.Create(s.ctx, sess)
	s.bindSession(sess)
	fmt.Fprintln(s.out, chatNoticeStyle.Render("Conversation cleared."))
	return nil
}

func chatModelCmd(s *chatState, args string) error {
	if args == "" {
		fmt.Fprintf(s.out, "%s:%s\n", s.env.ProviderName, s.env.Model)
		return nil
	}

	s.cfg.ApplyOverrides("", args)
	provider, err := llm.NewProvider(s.cfg)
	if err != nil {
		return err
	}
	name, model := activeModel(s.cfg)

	s.env.Engine = agent.NewEngine(provider, s.env.Engine.Registry(), agent.Options{
		Model:    model,
		MaxTurns: s.env.MaxTurns,
		Debug:    s.env.Debug,
	})
	s.env.ProviderName = name
	s.env.Model = model
	s.seenUsage = llm.Usage{}

	if s.sess != nil {
		s.sess.Provider = name
		s.sess.Model = model
		_ = s.store.Update(s.ctx, s.sess)
	}
	fmt.Fprintln(s.out, chatNoticeStyle.Render(fmt.Sprintf("Model set to %s:%s.", name, model)))
	return nil
}

func chatModelsCmd(s *chatState, _ string) error {
	return printCuratedModels(s.out, s.env.ProviderName, s.cfg)
}

func chatSessionsCmd(s *chatState, _ string) error {
	summaries, err := s.store.List(s.ctx, session.ListOptions{Limit: 10})
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(s.out, "No sessions.")
		return nil
	}
	printSessionTable(s.out, summaries)
	return nil
}

func chatResumeSlash(s *chatState, args string) error {
	sess, history, err := resumeSession(s.ctx, s.store, args)
	if err != nil {
		return err
	}
	s.bindSession(sess)
	s.history = history
	replayTranscript(s.out, history)
	fmt.Fprintln(s.out, chatNoticeStyle.Render(
		fmt.Sprintf("Resumed session %s.", session.ShortID(sess.ID))))
	return nil
}

func chatUsageCmd(s *chatState, _ string) error {
	printUsageFooter(s.out, s.env.Model, s.totalUsage)
	return nil
}

func chatQuitCmd(_ *chatState, _ string) error {
	return errQuitChat
}
