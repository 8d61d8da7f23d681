package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/llm"
	"github.com/samsaffron/term-agent/internal/session"
	"github.com/samsaffron/term-agent/internal/tools"
)

// resumeStore serves canned sessions for resume resolution tests.
type resumeStore struct {
	session.NoopStore
	current   *session.Session
	byID      map[string]*session.Session
	summaries []session.Summary
	messages  map[string][]session.Message
}

func (s *resumeStore) GetCurrent(_ context.Context) (*session.Session, error) {
	return s.current, nil
}

func (s *resumeStore) Get(_ context.Context, id string) (*session.Session, error) {
	return s.byID[id], nil
}

func (s *resumeStore) List(_ context.Context, _ session.ListOptions) ([]session.Summary, error) {
	return s.summaries, nil
}

func (s *resumeStore) GetMessages(_ context.Context, sessionID string, _, _ int) ([]session.Message, error) {
	return s.messages[sessionID], nil
}

func TestResumeSession_ExplicitID(t *testing.T) {
	sess := &session.Session{ID: "3f2a9c41-0d6b-4e21-9a57-2f8b1c7d4e90"}
	store := &resumeStore{
		byID: map[string]*session.Session{sess.ID: sess},
		messages: map[string][]session.Message{
			sess.ID: {
				*session.NewMessage(sess.ID, llm.UserText("hi"), 0),
				*session.NewMessage(sess.ID, llm.AssistantText("hello"), 1),
			},
		},
	}

	got, history, err := resumeSession(context.Background(), store, sess.ID)
	if err != nil {
		t.Fatalf("resumeSession() error = %v", err)
	}
	if got != sess {
		t.Fatalf("resumeSession() returned wrong session: got %v want %v", got, sess)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != llm.RoleUser || llm.TextContent(history[0]) != "hi" {
		t.Errorf("history[0] = %+v, want user %q", history[0], "hi")
	}
	if history[1].Role != llm.RoleAssistant {
		t.Errorf("history[1].Role = %q, want assistant", history[1].Role)
	}
}

func TestResumeSession_ShortIDPrefix(t *testing.T) {
	sess := &session.Session{ID: "3f2a9c41-0d6b-4e21-9a57-2f8b1c7d4e90"}
	store := &resumeStore{
		byID:      map[string]*session.Session{sess.ID: sess},
		summaries: []session.Summary{{ID: sess.ID}},
	}

	got, _, err := resumeSession(context.Background(), store, "3f2a9c41")
	if err != nil {
		t.Fatalf("resumeSession() error = %v", err)
	}
	if got != sess {
		t.Fatalf("resumeSession() did not resolve short id: got %v want %v", got, sess)
	}
}

func TestResumeSession_UsesCurrentWhenNoID(t *testing.T) {
	sess := &session.Session{ID: "sess-current"}
	store := &resumeStore{current: sess}

	got, _, err := resumeSession(context.Background(), store, "")
	if err != nil {
		t.Fatalf("resumeSession() error = %v", err)
	}
	if got != sess {
		t.Fatalf("resumeSession() returned wrong session: got %v want %v", got, sess)
	}
}

func TestResumeSession_FallsBackToMostRecent(t *testing.T) {
	sess := &session.Session{ID: "sess-recent"}
	store := &resumeStore{
		byID:      map[string]*session.Session{sess.ID: sess},
		summaries: []session.Summary{{ID: sess.ID}},
	}

	got, _, err := resumeSession(context.Background(), store, "")
	if err != nil {
		t.Fatalf("resumeSession() error = %v", err)
	}
	if got != sess {
		t.Fatalf("resumeSession() returned wrong session: got %v want %v", got, sess)
	}
}

func TestResumeSession_NoSession(t *testing.T) {
	if _, _, err := resumeSession(context.Background(), &resumeStore{}, ""); err == nil {
		t.Fatal("expected error when no session exists")
	}
}

func TestResumeSession_UnknownIDFails(t *testing.T) {
	_, _, err := resumeSession(context.Background(), &resumeStore{}, "deadbeef")
	if err == nil {
		t.Fatal("expected error for unknown session id")
	}
	if !strings.Contains(err.Error(), "deadbeef") {
		t.Errorf("error %q does not name the id", err)
	}
}

// replaceStore records ReplaceMessages calls for the autosaver path.
type replaceStore struct {
	session.NoopStore
	sessionID string
	msgs      []*session.Message
}

func (s *replaceStore) ReplaceMessages(_ context.Context, sessionID string, msgs []*session.Message) error {
	s.sessionID = sessionID
	s.msgs = msgs
	return nil
}

func TestSnapshotPersister(t *testing.T) {
	store := &replaceStore{}
	persist := snapshotPersister(store, "sess-1")

	history := []llm.Message{
		llm.SystemText("you are helpful"),
		llm.UserText("hi"),
		llm.AssistantText("hello"),
	}
	if err := persist(history); err != nil {
		t.Fatalf("persist() error = %v", err)
	}

	if store.sessionID != "sess-1" {
		t.Errorf("sessionID = %q, want %q", store.sessionID, "sess-1")
	}
	if len(store.msgs) != 3 {
		t.Fatalf("persisted %d messages, want 3", len(store.msgs))
	}
	for i, msg := range store.msgs {
		if msg.Sequence != i {
			t.Errorf("msgs[%d].Sequence = %d, want %d", i, msg.Sequence, i)
		}
	}
	if store.msgs[2].Role != llm.RoleAssistant || store.msgs[2].TextContent != "hello" {
		t.Errorf("msgs[2] = %+v, want assistant %q", store.msgs[2], "hello")
	}
}

func TestHistoryHasSystem(t *testing.T) {
	if historyHasSystem(nil) {
		t.Error("nil history should not have a system message")
	}
	if historyHasSystem([]llm.Message{llm.UserText("hi")}) {
		t.Error("user-first history should not count as system")
	}
	if !historyHasSystem([]llm.Message{llm.SystemText("x"), llm.UserText("hi")}) {
		t.Error("system-first history not detected")
	}
}

func TestLastAssistantText(t *testing.T) {
	messages := []llm.Message{
		llm.AssistantText("thinking out loud"),
		llm.ToolResultMessage("t1", "run_shell_command", "ok", nil),
		llm.AssistantText("final answer"),
		llm.ToolResultMessage("t2", "read_file", "data", nil),
	}
	if got := lastAssistantText(messages); got != "final answer" {
		t.Errorf("lastAssistantText() = %q, want %q", got, "final answer")
	}
}

func TestLastAssistantText_SkipsEmptyAssistant(t *testing.T) {
	messages := []llm.Message{
		llm.AssistantText("the real answer"),
		{Role: llm.RoleAssistant, Parts: []llm.Part{{Type: llm.PartToolCall, ToolCall: &llm.ToolCall{ID: "t1", Name: "read_file"}}}},
	}
	if got := lastAssistantText(messages); got != "the real answer" {
		t.Errorf("lastAssistantText() = %q, want %q", got, "the real answer")
	}
}

func TestLastAssistantText_Empty(t *testing.T) {
	if got := lastAssistantText(nil); got != "" {
		t.Errorf("lastAssistantText(nil) = %q, want empty", got)
	}
	if got := lastAssistantText([]llm.Message{llm.UserText("hi")}); got != "" {
		t.Errorf("lastAssistantText(user only) = %q, want empty", got)
	}
}

func TestTurnMessageCounts(t *testing.T) {
	observed := []llm.Message{
		{Role: llm.RoleAssistant, Parts: []llm.Part{
			{Type: llm.PartText, Text: "let me check"},
			{Type: llm.PartToolCall, ToolCall: &llm.ToolCall{ID: "t1", Name: "run_shell_command"}},
			{Type: llm.PartToolCall, ToolCall: &llm.ToolCall{ID: "t2", Name: "read_file"}},
		}},
		llm.ToolResultMessage("t1", "run_shell_command", "ok", nil),
		llm.ToolResultMessage("t2", "read_file", "data", nil),
		llm.AssistantText("done"),
	}

	if got := countAssistantMessages(observed); got != 2 {
		t.Errorf("countAssistantMessages() = %d, want 2", got)
	}
	if got := countToolCalls(observed); got != 2 {
		t.Errorf("countToolCalls() = %d, want 2", got)
	}
}

func TestGeneratedImagePaths(t *testing.T) {
	observed := []llm.Message{
		llm.ToolResultMessage("t1", "run_shell_command", "exit 0", nil),
		llm.ToolResultMessage("t2", "image_generate",
			tools.GeneratedImagePrefix+"/tmp/sunset.png\n1024x1024 png", nil),
		llm.AssistantText("here you go"),
		llm.ToolResultMessage("t3", "image_generate",
			tools.GeneratedImagePrefix+"/tmp/second.png", nil),
	}

	paths := generatedImagePaths(observed)
	if len(paths) != 2 {
		t.Fatalf("generatedImagePaths() returned %d paths, want 2", len(paths))
	}
	if paths[0] != "/tmp/sunset.png" {
		t.Errorf("paths[0] = %q, want %q", paths[0], "/tmp/sunset.png")
	}
	if paths[1] != "/tmp/second.png" {
		t.Errorf("paths[1] = %q, want %q", paths[1], "/tmp/second.png")
	}
}

func TestActiveModel(t *testing.T) {
	cfg := &config.Config{
		Model:           "anthropic:claude-sonnet-4-6",
		DefaultProvider: "openai",
		Providers: map[string]config.ProviderConfig{
			"anthropic": {Model: "claude-haiku-4-5"},
			"openai":    {Model: "gpt-5.2"},
		},
	}

	name, model := activeModel(cfg)
	if name != "anthropic" || model != "claude-sonnet-4-6" {
		t.Errorf("activeModel() = (%q, %q), want (anthropic, claude-sonnet-4-6)", name, model)
	}

	cfg.Model = "openai"
	name, model = activeModel(cfg)
	if name != "openai" || model != "gpt-5.2" {
		t.Errorf("activeModel() = (%q, %q), want provider default (openai, gpt-5.2)", name, model)
	}
}
