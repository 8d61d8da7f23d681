package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/display"
	"github.com/samsaffron/term-agent/internal/image"
	"github.com/samsaffron/term-agent/internal/llm"
	"github.com/samsaffron/term-agent/internal/mcp"
	"github.com/samsaffron/term-agent/internal/pricing"
	"github.com/samsaffron/term-agent/internal/prompt"
	"github.com/samsaffron/term-agent/internal/render"
	"github.com/samsaffron/term-agent/internal/session"
	"github.com/samsaffron/term-agent/internal/signal"
	"github.com/samsaffron/term-agent/internal/tools"
	"github.com/samsaffron/term-agent/internal/turn"
)

var (
	runModel     string
	runProvider  string
	runDebug     bool
	runYolo      bool
	runMaxTurns  int
	runUsage     bool
	runNoSession bool
	runResume    string
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one agent turn and print the answer",
	Long: `Run one agent turn: the model works the prompt with its tools, tool
calls render live, and the final answer prints as markdown.

Examples:
  term-agent run "what changed in the last three commits?"
  term-agent run "add a --count flag to cmd/list.go" --yolo
  term-agent run -r "now update the README too"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func init() {
	addPromptFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addPromptFlags installs the one-shot flag set. The root command and the
// run command share it so `term-agent "x"` and `term-agent run "x"` accept
// the same flags.
func addPromptFlags(cmd *cobra.Command) {
	AddModelFlag(cmd, &runModel)
	AddProviderFlag(cmd, &runProvider)
	AddDebugFlag(cmd, &runDebug)
	AddYoloFlag(cmd, &runYolo)
	AddMaxTurnsFlag(cmd, &runMaxTurns)
	AddUsageFlag(cmd, &runUsage)
	AddNoSessionFlag(cmd, &runNoSession)
	AddResumeFlag(cmd, &runResume)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("prompt is empty")
	}

	ctx, stop := signal.NotifyContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyModelFlags(cfg, runProvider, runModel)

	env, err := setupAgent(ctx, cfg, agentFlags{
		Debug:    runDebug,
		Yolo:     runYolo,
		MaxTurns: runMaxTurns,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := openStore(cfg, runNoSession, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	var history []llm.Message
	var sess *session.Session

	resuming := cmd.Flags().Changed("resume")
	if resuming {
		if cfg.Session.Disabled || runNoSession {
			return fmt.Errorf("session storage is disabled; cannot resume")
		}
		sess, history, err = resumeSession(ctx, store, strings.TrimSpace(runResume))
		if err != nil {
			return err
		}
		replayTranscript(os.Stdout, history)
	} else {
		sess = newSession(cfg, env.ProviderName, env.Model)
		_ = store.Create(ctx, sess)
	}

	if !historyHasSystem(history) {
		history = append([]llm.Message{llm.SystemText(env.SystemPrompt)}, history...)
	}
	history = append(history, llm.UserText(question))

	saver := session.NewAutosaver(snapshotPersister(store, sess.ID))
	defer saver.Close(2 * time.Second)

	saver.RequestSave(history)
	_ = store.IncrementUserTurns(ctx, sess.ID)
	if sess.Summary == "" {
		sess.Summary = session.TruncateSummary(question)
		_ = store.Update(ctx, sess)
	}

	observed, err := executeTurn(ctx, env, history)
	if err != nil {
		if turn.IsCancelled(err) {
			_ = store.UpdateStatus(ctx, sess.ID, session.StatusInterrupted)
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}
		_ = store.UpdateStatus(ctx, sess.ID, session.StatusError)
		return err
	}

	history = append(history, observed...)
	saver.RequestSave(history)

	usage := env.Engine.Usage()
	_ = store.UpdateMetrics(ctx, sess.ID, countAssistantMessages(observed), countToolCalls(observed), usage.InputTokens, usage.OutputTokens)
	_ = store.UpdateStatus(ctx, sess.ID, session.StatusComplete)
	_ = store.SetCurrent(ctx, sess.ID)

	if answer := lastAssistantText(observed); answer != "" {
		fmt.Println(render.FinalAnswer(os.Stdout, answer))
	}
	renderGeneratedImages(os.Stdout, observed)

	if runUsage {
		printUsageFooter(cmd.ErrOrStderr(), env.Model, usage)
	}
	return nil
}

// agentFlags carries the per-invocation switches into setupAgent.
type agentFlags struct {
	Debug    bool
	Yolo     bool
	MaxTurns int
}

// agentEnv bundles everything one turn needs. Close stops MCP servers and
// uninstalls the prompt hooks.
type agentEnv struct {
	Engine       *agent.Engine
	Display      *display.StatusDisplay
	ProviderName string
	Model        string
	SystemPrompt string
	MaxTurns     int
	Debug        bool

	mcpManager *mcp.Manager
}

// setupAgent builds the provider, tool registry, MCP bridge, display and
// engine for a conversation. MCP failures downgrade to warnings on errw.
func setupAgent(ctx context.Context, cfg *config.Config, flags agentFlags, errw io.Writer) (*agentEnv, error) {
	provider, err := llm.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	providerName, model := activeModel(cfg)

	approval := tools.NewApprovalManager(cfg.Tools.AutoApprove)
	approval.YoloMode = flags.Yolo

	disp := display.New(os.Stdout)
	approval.Prompt = func(req *tools.ApprovalRequest) (tools.ConfirmOutcome, string) {
		disp.Release()
		defer disp.Redraw()
		return tools.RunApprovalPrompt(req)
	}
	tools.SetAskUserHooks(disp.Release, disp.Redraw)

	registry := tools.NewBuiltinRegistry(cfg, approval)

	var manager *mcp.Manager
	mcpCfg, err := mcp.LoadConfig()
	if err != nil {
		fmt.Fprintf(errw, "warning: %v\n", err)
	} else if len(mcpCfg.Servers) > 0 {
		manager = mcp.NewManager(mcpCfg)
		for _, res := range manager.StartAll(ctx) {
			fmt.Fprintf(errw, "warning: MCP server %s unavailable: %v\n", res.Name, res.Err)
		}
		mcp.RegisterTools(manager, registry)
	}

	maxTurns := flags.MaxTurns
	if maxTurns <= 0 {
		maxTurns = cfg.Agent.MaxTurns
	}
	engine := agent.NewEngine(provider, registry, agent.Options{
		Model:    model,
		MaxTurns: maxTurns,
		Debug:    flags.Debug,
	})

	configDir, _ := config.GetConfigDir()
	workDir, _ := os.Getwd()
	memory := prompt.LoadMemory(configDir, workDir)

	return &agentEnv{
		Engine:       engine,
		Display:      disp,
		ProviderName: providerName,
		Model:        model,
		SystemPrompt: prompt.SystemPrompt(cfg.Agent.Instructions, memory),
		MaxTurns:     maxTurns,
		Debug:        flags.Debug,
		mcpManager:   manager,
	}, nil
}

func (e *agentEnv) Close() {
	tools.SetAskUserHooks(nil, nil)
	if e.mcpManager != nil {
		e.mcpManager.Stop()
	}
}

// executeTurn runs one turn with Ctrl-C bridged to the cancel token. A
// cancelled turn returns a *turn.CancelledError and contributes nothing.
func executeTurn(ctx context.Context, env *agentEnv, messages []llm.Message) ([]llm.Message, error) {
	token := turn.NewCancelToken()
	turnCtx, restore := signal.WatchTurn(ctx, token)
	defer restore()

	runner := turn.NewRunner(env.Engine, env.Display)
	runner.Debug = env.Debug
	return runner.Run(turnCtx, messages, token)
}

// activeModel resolves the configured model selection to a provider name
// and model id.
func activeModel(cfg *config.Config) (string, string) {
	name, model := llm.ParseModelID(cfg.Model, cfg)
	if model == "" {
		model = cfg.Providers[name].Model
	}
	return name, model
}

// openStore opens session storage; --no-session forces the no-op store.
func openStore(cfg *config.Config, noSession bool, errw io.Writer) (session.Store, error) {
	store, err := session.NewStore(session.Config{
		Disabled:   cfg.Session.Disabled || noSession,
		Dir:        cfg.Session.Dir,
		MaxAgeDays: cfg.Session.MaxAgeDays,
		MaxCount:   cfg.Session.MaxCount,
	})
	if err != nil {
		// A broken database should not block the conversation.
		fmt.Fprintf(errw, "warning: session store unavailable: %v\n", err)
		return &session.NoopStore{}, nil
	}
	warn := func(format string, args ...any) {
		fmt.Fprintf(errw, "warning: "+format+"\n", args...)
	}
	return session.NewLoggingStore(store, warn), nil
}

func newSession(cfg *config.Config, providerName, model string) *session.Session {
	now := time.Now()
	sess := &session.Session{
		ID:        session.NewID(),
		Provider:  providerName,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    session.StatusActive,
	}
	if cwd, err := os.Getwd(); err == nil {
		sess.CWD = cwd
	}
	return sess
}

// resumeSession loads the named session, or the current/most recent one when
// id is empty, and returns its transcript.
func resumeSession(ctx context.Context, store session.Store, id string) (*session.Session, []llm.Message, error) {
	var sess *session.Session
	if id == "" {
		sess, _ = store.GetCurrent(ctx)
		if sess == nil {
			if summaries, _ := store.List(ctx, session.ListOptions{Limit: 1}); len(summaries) > 0 {
				sess, _ = store.Get(ctx, summaries[0].ID)
			}
		}
	} else {
		var err error
		sess, err = store.Get(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load session: %w", err)
		}
		if sess == nil {
			// Listings show short ids; fall back to a prefix scan.
			summaries, _ := store.List(ctx, session.ListOptions{})
			for _, sum := range summaries {
				if strings.HasPrefix(sum.ID, id) {
					sess, _ = store.Get(ctx, sum.ID)
					break
				}
			}
		}
		if sess == nil {
			return nil, nil, fmt.Errorf("session '%s' not found", id)
		}
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("no session to resume")
	}

	_ = store.SetCurrent(ctx, sess.ID)
	_ = store.UpdateStatus(ctx, sess.ID, session.StatusActive)

	msgs, err := store.GetMessages(ctx, sess.ID, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("load session messages: %w", err)
	}
	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, m.ToLLMMessage())
	}
	return sess, history, nil
}

// snapshotPersister adapts ReplaceMessages to the autosaver's PersistFunc.
func snapshotPersister(store session.Store, sessionID string) session.PersistFunc {
	return func(messages []llm.Message) error {
		msgs := make([]*session.Message, 0, len(messages))
		for i, m := range messages {
			msgs = append(msgs, session.NewMessage(sessionID, m, i))
		}
		return store.ReplaceMessages(context.Background(), sessionID, msgs)
	}
}

func historyHasSystem(history []llm.Message) bool {
	return len(history) > 0 && history[0].Role == llm.RoleSystem
}

// lastAssistantText returns the text of the final assistant message, which
// is the turn's answer.
func lastAssistantText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llm.RoleAssistant {
			continue
		}
		if text := strings.TrimSpace(llm.TextContent(messages[i])); text != "" {
			return text
		}
	}
	return ""
}

func countAssistantMessages(messages []llm.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == llm.RoleAssistant {
			n++
		}
	}
	return n
}

func countToolCalls(messages []llm.Message) int {
	n := 0
	for _, m := range messages {
		n += len(llm.ToolCalls(m))
	}
	return n
}

// generatedImagePaths collects the saved-image paths reported by
// image_generate results, in order.
func generatedImagePaths(messages []llm.Message) []string {
	var paths []string
	for _, m := range messages {
		for _, part := range m.Parts {
			if part.Type != llm.PartToolResult || part.ToolResult == nil {
				continue
			}
			content := part.ToolResult.Content
			if !strings.HasPrefix(content, tools.GeneratedImagePrefix) {
				continue
			}
			line := content[len(tools.GeneratedImagePrefix):]
			if idx := strings.IndexByte(line, '\n'); idx != -1 {
				line = line[:idx]
			}
			if path := strings.TrimSpace(line); path != "" {
				paths = append(paths, path)
			}
		}
	}
	return paths
}

// renderGeneratedImages previews generated images inline. Terminals without
// a supported image protocol skip silently.
func renderGeneratedImages(w io.Writer, messages []llm.Message) {
	for _, path := range generatedImagePaths(messages) {
		_ = image.RenderImageToWriter(w, path)
	}
}

// printUsageFooter prints token counts and, when pricing is known, the cost.
func printUsageFooter(w io.Writer, model string, usage llm.Usage) {
	fmt.Fprintf(w, "\nTokens: %d in / %d out", usage.InputTokens, usage.OutputTokens)
	if usage.CachedInputTokens > 0 {
		fmt.Fprintf(w, " (%d cached)", usage.CachedInputTokens)
	}
	if cost, err := pricing.NewFetcher().Cost(model, usage); err == nil && cost > 0 {
		fmt.Fprintf(w, "  Cost: $%.4f", cost)
	}
	fmt.Fprintln(w)
}
