package mcp

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseToolName(t *testing.T) {
	tests := []struct {
		full       string
		wantServer string
		wantTool   string
	}{
		{full: "files__read", wantServer: "files", wantTool: "read"},
		{full: "srv__tool__extra", wantServer: "srv", wantTool: "tool__extra"},
		{full: "plain", wantServer: "", wantTool: "plain"},
		{full: "single_underscore", wantServer: "", wantTool: "single_underscore"},
		{full: "__orphan", wantServer: "", wantTool: "orphan"},
	}

	for _, tt := range tests {
		server, tool := parseToolName(tt.full)
		if server != tt.wantServer || tool != tt.wantTool {
			t.Errorf("parseToolName(%q) = (%q, %q), want (%q, %q)",
				tt.full, server, tool, tt.wantServer, tt.wantTool)
		}
	}
}

func TestManagerToolsPrefixed(t *testing.T) {
	manager := &Manager{clients: map[string]*Client{
		"beta": {
			name:    "beta",
			running: true,
			tools:   []ToolSpec{{Name: "fetch", Description: "get a page"}},
		},
		"alpha": {
			name:    "alpha",
			running: true,
			tools:   []ToolSpec{{Name: "search", Description: "find things"}},
		},
		"down": {
			name:  "down",
			tools: []ToolSpec{{Name: "hidden", Description: "never listed"}},
		},
	}}

	specs := manager.Tools()
	if len(specs) != 2 {
		t.Fatalf("tools = %d, want 2", len(specs))
	}

	// Sorted by server name, stopped servers excluded.
	if specs[0].Name != "alpha__search" {
		t.Errorf("first tool = %q, want alpha__search", specs[0].Name)
	}
	if specs[0].Description != "[alpha] find things" {
		t.Errorf("description = %q", specs[0].Description)
	}
	if specs[1].Name != "beta__fetch" {
		t.Errorf("second tool = %q, want beta__fetch", specs[1].Name)
	}
}

func TestManagerCallToolErrors(t *testing.T) {
	manager := NewManager(&Config{Servers: map[string]ServerConfig{
		"files": {Command: "echo"},
	}})

	_, err := manager.CallTool(context.Background(), "noprefix", nil)
	if err == nil || !strings.Contains(err.Error(), "invalid MCP tool name") {
		t.Errorf("unprefixed call error = %v", err)
	}

	_, err = manager.CallTool(context.Background(), "ghost__read", nil)
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("unknown server error = %v", err)
	}

	// Configured but never started.
	_, err = manager.CallTool(context.Background(), "files__read", nil)
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("stopped server error = %v", err)
	}
}

func TestStartAllReportsFailures(t *testing.T) {
	manager := NewManager(&Config{Servers: map[string]ServerConfig{
		"second": {Command: "/nonexistent/mcp-server-b"},
		"first":  {Command: "/nonexistent/mcp-server-a"},
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	failed := manager.StartAll(ctx)
	if len(failed) != 2 {
		t.Fatalf("failures = %d, want 2", len(failed))
	}
	if failed[0].Name != "first" || failed[1].Name != "second" {
		t.Errorf("failure order = %s, %s", failed[0].Name, failed[1].Name)
	}
	for _, r := range failed {
		if r.Err == nil {
			t.Errorf("failure %s has nil error", r.Name)
		}
	}
}
