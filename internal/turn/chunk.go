package turn

import (
	"encoding/json"
	"fmt"

	"github.com/samsaffron/term-agent/internal/llm"
)

// Chunk is one decoded unit of the agent's stream. The wire shape is a JSON
// object with exactly one of the keys "model" or "tools", each holding
// {"messages": [...]}. Chunks are decoded eagerly at this boundary; nothing
// downstream inspects raw keys.
type Chunk interface {
	chunk()
}

// AgentChunk carries the assistant messages produced by one model round.
type AgentChunk struct {
	Messages []llm.Message
}

// ToolsChunk carries the results of one executed tool batch.
type ToolsChunk struct {
	Results []llm.ToolResult
}

func (AgentChunk) chunk() {}
func (ToolsChunk) chunk() {}

// DecodeChunk decodes one wire chunk into the tagged union. A chunk with
// zero keys, more than one key, or an unknown key is a decode error; the
// runner skips such chunks rather than failing the turn.
func DecodeChunk(raw json.RawMessage) (Chunk, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed chunk: %w", err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("chunk must carry exactly one of %q or %q, got %d keys", "model", "tools", len(envelope))
	}

	if inner, ok := envelope["model"]; ok {
		var payload struct {
			Messages []llm.Message `json:"messages"`
		}
		if err := json.Unmarshal(inner, &payload); err != nil {
			return nil, fmt.Errorf("malformed model chunk: %w", err)
		}
		return AgentChunk{Messages: payload.Messages}, nil
	}

	if inner, ok := envelope["tools"]; ok {
		var payload struct {
			Messages []llm.ToolResult `json:"messages"`
		}
		if err := json.Unmarshal(inner, &payload); err != nil {
			return nil, fmt.Errorf("malformed tools chunk: %w", err)
		}
		return ToolsChunk{Results: payload.Messages}, nil
	}

	var key string
	for k := range envelope {
		key = k
	}
	return nil, fmt.Errorf("unknown chunk key %q", key)
}
