package turn

import (
	"context"
	"encoding/json"
	"io"

	"github.com/samsaffron/term-agent/internal/llm"
)

// Agent produces the chunk stream for one conversation turn. The agent
// decides when the stream ends; step limits are its concern, not the
// runner's.
type Agent interface {
	Stream(ctx context.Context, messages []llm.Message) (ChunkStream, error)
}

// ChunkStream is a lazy, finite, single-pass sequence of wire chunks.
// Next returns io.EOF when the stream is exhausted.
type ChunkStream interface {
	Next() (json.RawMessage, error)
	Close() error
}

// Display is the surface the runner drives while a turn is in flight. The
// status display implements it; tests use a recording fake.
type Display interface {
	Register(calls []ToolCall)
	Update(id string, status Status, result string)
	Clear()
	Finalize()
}

// Runner pulls chunks from the agent, classifies them, reflects tool-call
// transitions on the display, and accumulates the turn's messages.
type Runner struct {
	agent   Agent
	display Display

	// Debug reports skipped undecodable chunks to stderr.
	Debug bool
}

func NewRunner(agent Agent, display Display) *Runner {
	return &Runner{agent: agent, display: display}
}

// Run executes one turn. The returned messages are every agent message and
// tool result observed, in arrival order. A cancelled turn returns a nil
// message list and a *CancelledError: the turn contributes nothing to
// history.
//
// The token is polled between chunks only; a tool already executing inside
// the agent is not interrupted.
func (r *Runner) Run(ctx context.Context, messages []llm.Message, token *CancelToken) ([]llm.Message, error) {
	r.display.Clear()

	stream, err := r.agent.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	classifier := NewClassifier()
	var observed []llm.Message

	for {
		if token != nil {
			if err := token.Check(); err != nil {
				r.display.Finalize()
				return nil, err
			}
		}

		raw, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.display.Finalize()
			return nil, err
		}

		chunk, err := DecodeChunk(raw)
		if err != nil {
			llm.DebugRawSection(r.Debug, "Skipped Chunk", err.Error())
			continue
		}

		switch c := chunk.(type) {
		case AgentChunk:
			calls := classifier.NewCalls(c.Messages)
			if len(calls) > 0 {
				r.display.Register(calls)
				for _, call := range calls {
					r.display.Update(call.ID, StatusRunning, "")
				}
			}
			observed = append(observed, c.Messages...)

		case ToolsChunk:
			for _, result := range c.Results {
				status, text := ClassifyResult(result)
				r.display.Update(result.ID, status, text)
			}
			observed = append(observed, toolResultMessages(c.Results)...)
		}
	}

	r.display.Finalize()
	return observed, nil
}

func toolResultMessages(results []llm.ToolResult) []llm.Message {
	msgs := make([]llm.Message, 0, len(results))
	for _, result := range results {
		r := result
		msgs = append(msgs, llm.Message{
			Role:  llm.RoleTool,
			Parts: []llm.Part{{Type: llm.PartToolResult, ToolResult: &r}},
		})
	}
	return msgs
}
