package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/llm"
)

// Tool is a named operation the agent can invoke with JSON arguments.
// Execute returns the result text handed back to the model; errors are
// formatted with FormatToolError and settle the call as failed.
type Tool interface {
	Spec() llm.ToolSpec
	Execute(ctx context.Context, args json.RawMessage) (string, error)

	// Preview returns a short human-readable summary of a call for status
	// lines and approval prompts.
	Preview(args json.RawMessage) string
}

// Registry holds the tools available to a run, keyed by spec name.
// Registration order is preserved so tool specs reach the model in a
// stable order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// NewBuiltinRegistry creates a registry with all built-in tools registered.
// MCP-provided tools can be added later via Register.
func NewBuiltinRegistry(cfg *config.Config, approval *ApprovalManager) *Registry {
	limits := DefaultOutputLimits()

	r := NewRegistry()
	r.Register(NewShellTool(approval, cfg, limits))
	r.Register(NewReadFileTool(limits))
	r.Register(NewWriteFileTool(approval))
	r.Register(NewSearchReplaceTool(approval))
	r.Register(NewGlobTool())
	r.Register(NewGrepTool(limits))
	r.Register(NewFetchTool())
	r.Register(NewWebSearchTool())
	r.Register(NewCommunicateTool())
	r.Register(NewAskUserTool())
	r.Register(NewImageGenerateTool(cfg))
	return r
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Spec().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get returns a tool by spec name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Specs returns tool specs in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Execute runs the named tool. Unknown names return a structured error so
// the model sees something correctable rather than the run aborting.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", NewToolErrorf(ErrInvalidParams, "unknown tool: %s", name)
	}
	return tool.Execute(ctx, args)
}

// PreviewCall returns the preview line for a call, falling back to the tool
// name when the tool is unknown.
func (r *Registry) PreviewCall(name string, args json.RawMessage) string {
	tool, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("%s(?)", name)
	}
	return tool.Preview(args)
}
