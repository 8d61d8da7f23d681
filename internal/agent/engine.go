package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/samsaffron/term-agent/internal/llm"
	"github.com/samsaffron/term-agent/internal/tools"
	"github.com/samsaffron/term-agent/internal/turn"
)

// DefaultMaxTurns bounds provider rounds within a single prompt.
const DefaultMaxTurns = 20

// finalRoundHint is injected before the last allowed round so the model
// answers with what it has instead of requesting more tools.
const finalRoundHint = "IMPORTANT: Do not call any tools. Use the information already gathered and answer directly."

// Engine drives the provider/tool loop for one conversation turn and yields
// the wire chunks the runner consumes: one model chunk per provider
// response, one tools chunk per executed batch. The loop ends when a
// response carries no tool calls or the round limit is hit.
type Engine struct {
	provider llm.Provider
	registry *tools.Registry

	model    string
	maxTurns int
	debug    bool

	mu    sync.Mutex
	usage llm.Usage
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Model    string
	MaxTurns int
	Debug    bool
}

func NewEngine(provider llm.Provider, registry *tools.Registry, opts Options) *Engine {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Engine{
		provider: provider,
		registry: registry,
		model:    opts.Model,
		maxTurns: maxTurns,
		debug:    opts.Debug,
	}
}

// Registry returns the engine's tool registry.
func (e *Engine) Registry() *tools.Registry {
	return e.registry
}

// Usage returns token usage accumulated across every provider round so far.
// Turns on the same engine add up, so a chat session reports cumulative
// totals.
func (e *Engine) Usage() llm.Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

func (e *Engine) addUsage(u llm.Usage) {
	e.mu.Lock()
	e.usage.Add(u)
	e.mu.Unlock()
}

// Stream starts the loop for one turn. Rounds run lazily as the caller
// pulls chunks; Close cancels the loop between operations.
func (e *Engine) Stream(ctx context.Context, messages []llm.Message) (turn.ChunkStream, error) {
	history := append([]llm.Message(nil), messages...)
	return newChunkStream(ctx, func(ctx context.Context, chunks chan<- json.RawMessage) error {
		return e.run(ctx, history, chunks)
	}), nil
}

// Wire envelopes for the two chunk kinds. Their shape must stay in step
// with turn.DecodeChunk.
type modelEnvelope struct {
	Model chunkMessages `json:"model"`
}

type toolsEnvelope struct {
	Tools chunkResults `json:"tools"`
}

type chunkMessages struct {
	Messages []llm.Message `json:"messages"`
}

type chunkResults struct {
	Messages []llm.ToolResult `json:"messages"`
}

func (e *Engine) run(ctx context.Context, messages []llm.Message, chunks chan<- json.RawMessage) error {
	specs := e.registry.Specs()
	callSeq := 0

	for round := 0; round < e.maxTurns; round++ {
		if round == e.maxTurns-1 {
			messages = append(messages, llm.SystemText(finalRoundHint))
		}

		req := llm.Request{
			Model:    e.model,
			Messages: messages,
			Tools:    specs,
			Debug:    e.debug,
		}
		llm.DebugRawRequest(e.debug, e.provider.Name(), req, fmt.Sprintf("Request (round %d)", round+1))

		text, calls, err := e.modelRound(ctx, req)
		if err != nil {
			return err
		}
		calls = ensureCallIDs(calls, &callSeq)

		assistant := assistantMessage(text, calls)
		if len(assistant.Parts) > 0 {
			if err := sendChunk(ctx, chunks, modelEnvelope{Model: chunkMessages{Messages: []llm.Message{assistant}}}); err != nil {
				return err
			}
		}

		if len(calls) == 0 {
			return nil
		}
		if round == e.maxTurns-1 {
			return fmt.Errorf("agent loop exceeded max turns (%d)", e.maxTurns)
		}

		results := e.executeCalls(ctx, calls)
		if err := sendChunk(ctx, chunks, toolsEnvelope{Tools: chunkResults{Messages: results}}); err != nil {
			return err
		}

		messages = append(messages, assistant)
		for _, result := range results {
			r := result
			messages = append(messages, llm.Message{
				Role:  llm.RoleTool,
				Parts: []llm.Part{{Type: llm.PartToolResult, ToolResult: &r}},
			})
		}
	}

	return fmt.Errorf("agent loop ended unexpectedly")
}

// modelRound runs one provider request and collects the full response:
// accumulated text, requested tool calls, and usage.
func (e *Engine) modelRound(ctx context.Context, req llm.Request) (string, []llm.ToolCall, error) {
	stream, err := e.provider.Stream(ctx, req)
	if err != nil {
		return "", nil, err
	}
	stream = llm.WrapDebugStream(e.debug, stream)
	defer stream.Close()

	var text strings.Builder
	var calls []llm.ToolCall
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch event.Type {
		case llm.EventTextDelta:
			text.WriteString(event.Text)
		case llm.EventToolCall:
			if event.Tool != nil {
				calls = append(calls, *event.Tool)
			}
		case llm.EventUsage:
			if event.Use != nil {
				e.addUsage(*event.Use)
			}
		case llm.EventError:
			if event.Err != nil {
				return "", nil, event.Err
			}
		}
	}
	return text.String(), calls, nil
}

// executeCalls runs a batch of tool calls and returns results in call
// order. Multiple calls run concurrently; each writes its own slot, and
// approval prompts serialize inside the approval manager.
func (e *Engine) executeCalls(ctx context.Context, calls []llm.ToolCall) []llm.ToolResult {
	if len(calls) == 1 {
		return []llm.ToolResult{e.executeCall(ctx, calls[0])}
	}

	results := make([]llm.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c llm.ToolCall) {
			defer wg.Done()
			results[idx] = e.executeCall(ctx, c)
		}(i, call)
	}
	wg.Wait()
	return results
}

// executeCall runs one tool call. Failures become error-text results so the
// model can correct itself instead of the turn aborting.
func (e *Engine) executeCall(ctx context.Context, call llm.ToolCall) llm.ToolResult {
	llm.DebugToolCall(e.debug, call)

	output, err := e.registry.Execute(ctx, call.Name, call.Arguments)
	result := llm.ToolResult{
		ID:         call.ID,
		Name:       call.Name,
		Content:    output,
		ThoughtSig: call.ThoughtSig,
	}
	if err != nil {
		result.Content = tools.FormatToolError(err)
		result.IsError = true
	}

	llm.DebugToolResult(e.debug, call.ID, call.Name, result.Content)
	return result
}

func sendChunk(ctx context.Context, chunks chan<- json.RawMessage, envelope interface{}) error {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding chunk: %w", err)
	}
	select {
	case chunks <- raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// assistantMessage builds the assistant message for one round from its text
// and tool calls.
func assistantMessage(text string, calls []llm.ToolCall) llm.Message {
	var parts []llm.Part
	if text != "" {
		parts = append(parts, llm.Part{Type: llm.PartText, Text: text})
	}
	for _, call := range calls {
		c := call
		parts = append(parts, llm.Part{Type: llm.PartToolCall, ToolCall: &c})
	}
	return llm.Message{Role: llm.RoleAssistant, Parts: parts}
}

// ensureCallIDs fills ids the provider left blank and drops duplicate ids.
// The counter spans rounds so generated ids stay unique within the turn.
func ensureCallIDs(calls []llm.ToolCall, seq *int) []llm.ToolCall {
	if len(calls) == 0 {
		return calls
	}

	seen := make(map[string]struct{}, len(calls))
	out := calls[:0]
	for _, call := range calls {
		if strings.TrimSpace(call.ID) == "" {
			*seq++
			call.ID = fmt.Sprintf("toolcall-%d", *seq)
		} else if _, dup := seen[call.ID]; dup {
			continue
		}
		seen[call.ID] = struct{}{}
		out = append(out, call)
	}
	return out
}
