package turn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/samsaffron/term-agent/internal/llm"
)

// fakeAgent replays a fixed chunk sequence.
type fakeAgent struct {
	chunks []string
	err    error
}

func (a *fakeAgent) Stream(ctx context.Context, messages []llm.Message) (ChunkStream, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &fakeStream{chunks: a.chunks}, nil
}

type fakeStream struct {
	chunks []string
	pos    int
	closed bool
}

func (s *fakeStream) Next() (json.RawMessage, error) {
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return json.RawMessage(chunk), nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// recordingDisplay captures every display call in order.
type recordingDisplay struct {
	registered [][]ToolCall
	updates    []displayUpdate
	clears     int
	finalizes  int
}

type displayUpdate struct {
	id     string
	status Status
	result string
}

func (d *recordingDisplay) Register(calls []ToolCall) {
	d.registered = append(d.registered, calls)
}

func (d *recordingDisplay) Update(id string, status Status, result string) {
	d.updates = append(d.updates, displayUpdate{id: id, status: status, result: result})
}

func (d *recordingDisplay) Clear()    { d.clears++ }
func (d *recordingDisplay) Finalize() { d.finalizes++ }

const modelChunk = `{"model":{"messages":[
	{"role":"assistant","parts":[
		{"type":"tool_call","tool_call":{"id":"c1","name":"read_file","args":{"path":"main.go"}}}
	]}
]}}`

const toolsChunk = `{"tools":{"messages":[
	{"tool_call_id":"c1","name":"read_file","content":"File contents"}
]}}`

// A model chunk followed by its tool results yields both messages in
// arrival order, with exactly one registration for the new call.
func TestRunnerObservesMessagesInOrder(t *testing.T) {
	agent := &fakeAgent{chunks: []string{modelChunk, toolsChunk}}
	disp := &recordingDisplay{}

	messages, err := NewRunner(agent, disp).Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Role != llm.RoleAssistant {
		t.Errorf("messages[0].Role = %q, want assistant", messages[0].Role)
	}
	if messages[1].Role != llm.RoleTool {
		t.Errorf("messages[1].Role = %q, want tool", messages[1].Role)
	}
	result := messages[1].Parts[0].ToolResult
	if result == nil || result.ID != "c1" || result.Content != "File contents" {
		t.Errorf("tool result = %+v", result)
	}

	if len(disp.registered) != 1 {
		t.Fatalf("Register called %d times, want 1", len(disp.registered))
	}
	if len(disp.registered[0]) != 1 || disp.registered[0][0].ID != "c1" {
		t.Errorf("registered = %+v, want one call c1", disp.registered[0])
	}

	wantUpdates := []displayUpdate{
		{id: "c1", status: StatusRunning, result: ""},
		{id: "c1", status: StatusDone, result: "File contents"},
	}
	if len(disp.updates) != len(wantUpdates) {
		t.Fatalf("updates = %+v", disp.updates)
	}
	for i, want := range wantUpdates {
		if disp.updates[i] != want {
			t.Errorf("updates[%d] = %+v, want %+v", i, disp.updates[i], want)
		}
	}

	if disp.clears != 1 || disp.finalizes != 1 {
		t.Errorf("clears = %d, finalizes = %d, want 1 each", disp.clears, disp.finalizes)
	}
}

// Cancellation before the stream is exhausted returns an empty message list:
// the turn contributes nothing to history.
func TestRunnerCancelledTurnReturnsNothing(t *testing.T) {
	agent := &fakeAgent{chunks: []string{modelChunk, toolsChunk}}
	disp := &recordingDisplay{}

	token := NewCancelToken()
	token.Cancel("SIGINT")

	messages, err := NewRunner(agent, disp).Run(context.Background(), nil, token)
	if !IsCancelled(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if len(messages) != 0 {
		t.Fatalf("messages = %d, want none", len(messages))
	}
	if disp.finalizes != 1 {
		t.Errorf("finalizes = %d, want 1", disp.finalizes)
	}
}

func TestRunnerCancelMidStream(t *testing.T) {
	agent := &fakeAgent{chunks: []string{modelChunk, toolsChunk}}
	disp := &recordingDisplay{}

	// Cancel fires after the first chunk is processed.
	token := NewCancelToken()
	runner := NewRunner(&cancellingAgent{inner: agent, token: token, after: 1}, disp)

	messages, err := runner.Run(context.Background(), nil, token)
	if !IsCancelled(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if len(messages) != 0 {
		t.Fatalf("messages = %d, want none", len(messages))
	}
}

// cancellingAgent cancels the token after n chunks have been pulled.
type cancellingAgent struct {
	inner *fakeAgent
	token *CancelToken
	after int
}

func (a *cancellingAgent) Stream(ctx context.Context, messages []llm.Message) (ChunkStream, error) {
	stream, err := a.inner.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}
	return &cancellingStream{inner: stream, token: a.token, after: a.after}, nil
}

type cancellingStream struct {
	inner  ChunkStream
	token  *CancelToken
	after  int
	pulled int
}

func (s *cancellingStream) Next() (json.RawMessage, error) {
	raw, err := s.inner.Next()
	s.pulled++
	if s.pulled == s.after {
		s.token.Cancel("SIGINT")
	}
	return raw, err
}

func (s *cancellingStream) Close() error { return s.inner.Close() }

func TestRunnerSkipsUndecodableChunks(t *testing.T) {
	agent := &fakeAgent{chunks: []string{
		`{"planner":{"messages":[]}}`,
		modelChunk,
		`{}`,
		toolsChunk,
	}}
	disp := &recordingDisplay{}

	messages, err := NewRunner(agent, disp).Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2 (bad chunks skipped)", len(messages))
	}
}

func TestRunnerStreamError(t *testing.T) {
	wantErr := errors.New("agent exploded")
	agent := &fakeAgent{err: wantErr}
	disp := &recordingDisplay{}

	_, err := NewRunner(agent, disp).Run(context.Background(), nil, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want agent error", err)
	}
}

func TestRunnerErrorResultStatus(t *testing.T) {
	failing := `{"tools":{"messages":[
		{"tool_call_id":"c1","name":"run_shell_command","content":"bad\n(exit code: 7)"}
	]}}`
	agent := &fakeAgent{chunks: []string{failing}}
	disp := &recordingDisplay{}

	if _, err := NewRunner(agent, disp).Run(context.Background(), nil, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(disp.updates) != 1 {
		t.Fatalf("updates = %+v", disp.updates)
	}
	update := disp.updates[0]
	if update.status != StatusError {
		t.Errorf("status = %q, want error", update.status)
	}
	if update.result != "bad\n(exit code: 7)" {
		t.Errorf("result = %q, want raw content retained", update.result)
	}
}
