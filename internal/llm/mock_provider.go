package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MockTurn is one scripted response from a MockProvider.
type MockTurn struct {
	Text      string
	ToolCalls []ToolCall
	Usage     *Usage
	Err       error
	Delay     time.Duration
}

// MockProvider is a scripted Provider for tests. Each call to Stream consumes
// the next configured turn; requests are recorded for assertions.
type MockProvider struct {
	name string

	mu       sync.Mutex
	turns    []MockTurn
	turn     int
	Requests []Request
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (p *MockProvider) Name() string {
	return p.name
}

// AddTurn appends a scripted turn.
func (p *MockProvider) AddTurn(turn MockTurn) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, turn)
	return p
}

// AddTextResponse appends a turn that streams the given text.
func (p *MockProvider) AddTextResponse(text string) *MockProvider {
	return p.AddTurn(MockTurn{Text: text})
}

// AddToolCall appends a turn that requests a single tool call.
// args is marshalled to JSON.
func (p *MockProvider) AddToolCall(id, name string, args any) *MockProvider {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("mock provider: marshal args for %s: %v", name, err))
	}
	return p.AddTurn(MockTurn{
		ToolCalls: []ToolCall{{ID: id, Name: name, Arguments: raw}},
	})
}

// AddError appends a turn that fails with the given error.
func (p *MockProvider) AddError(err error) *MockProvider {
	return p.AddTurn(MockTurn{Err: err})
}

// Reset rewinds to the first turn and clears recorded requests.
func (p *MockProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turn = 0
	p.Requests = nil
}

// CurrentTurn returns the index of the next turn to be consumed.
func (p *MockProvider) CurrentTurn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.turn
}

func (p *MockProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	if p.turn >= len(p.turns) {
		turn := p.turn
		p.mu.Unlock()
		return nil, fmt.Errorf("mock provider %q: no response configured for turn %d", p.name, turn+1)
	}
	turn := p.turns[p.turn]
	p.turn++
	p.mu.Unlock()

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		if turn.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(turn.Delay):
			}
		}
		if turn.Err != nil {
			return turn.Err
		}

		// Stream text in small chunks so consumers see real deltas.
		for _, chunk := range chunkText(turn.Text, 10) {
			events <- Event{Type: EventTextDelta, Text: chunk}
		}
		for i := range turn.ToolCalls {
			call := turn.ToolCalls[i]
			events <- Event{Type: EventToolCall, Tool: &call}
		}

		usage := turn.Usage
		if usage == nil {
			usage = &Usage{InputTokens: 10, OutputTokens: 5}
		}
		events <- Event{Type: EventUsage, Use: usage}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

// chunkText splits text into chunks of at most size bytes.
func chunkText(text string, size int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > size {
		chunks = append(chunks, text[:size])
		text = text[size:]
	}
	chunks = append(chunks, text)
	return chunks
}
