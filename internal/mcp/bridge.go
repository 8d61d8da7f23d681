package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/samsaffron/term-agent/internal/llm"
	"github.com/samsaffron/term-agent/internal/tools"
)

// Tool adapts one MCP server tool to the agent tool interface.
type Tool struct {
	manager *Manager
	spec    ToolSpec
}

// NewTool wraps a prefixed tool spec from the manager.
func NewTool(manager *Manager, spec ToolSpec) *Tool {
	return &Tool{manager: manager, spec: spec}
}

func (t *Tool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        t.spec.Name,
		Description: t.spec.Description,
		Schema:      t.spec.Schema,
	}
}

// Preview shows the compacted call arguments. MCP schemas are opaque to
// us, so there is no field to single out.
func (t *Tool) Preview(args json.RawMessage) string {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return ""
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, args); err != nil {
		return ""
	}
	s := buf.String()
	if runes := []rune(s); len(runes) > 60 {
		s = string(runes[:57]) + "..."
	}
	return s
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return t.manager.CallTool(ctx, t.spec.Name, args)
}

// RegisterTools adds every connected server's tools to the registry.
func RegisterTools(manager *Manager, registry *tools.Registry) {
	for _, spec := range manager.Tools() {
		registry.Register(NewTool(manager, spec))
	}
}
