package mcp

import (
	"context"
	"os"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestCreateStdioTransportInheritsEnv(t *testing.T) {
	client := NewClient("test", ServerConfig{
		Command: "echo",
		Args:    []string{"hello"},
		Env:     map[string]string{"CUSTOM_VAR": "custom_value"},
	})

	transport := client.createStdioTransport(context.Background())
	ct, ok := transport.(*sdkmcp.CommandTransport)
	if !ok {
		t.Fatal("expected sdkmcp.CommandTransport")
	}

	env := ct.Command.Env
	if env == nil {
		t.Fatal("expected non-nil env when config has env vars")
	}

	var hasPath, hasCustom bool
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			hasPath = true
		}
		if e == "CUSTOM_VAR=custom_value" {
			hasCustom = true
		}
	}
	if !hasPath {
		t.Error("parent PATH not inherited in subprocess env")
	}
	if !hasCustom {
		t.Error("custom env var not set")
	}
}

func TestCreateStdioTransportNoEnvStaysNil(t *testing.T) {
	client := NewClient("test", ServerConfig{Command: "echo", Args: []string{"hello"}})

	transport := client.createStdioTransport(context.Background())
	ct, ok := transport.(*sdkmcp.CommandTransport)
	if !ok {
		t.Fatal("expected sdkmcp.CommandTransport")
	}

	// nil Env means the subprocess inherits everything.
	if ct.Command.Env != nil {
		t.Error("expected nil env when no config env vars")
	}
}

func TestCreateStdioTransportEnvOverridesParent(t *testing.T) {
	os.Setenv("TEST_MCP_VAR", "original")
	defer os.Unsetenv("TEST_MCP_VAR")

	client := NewClient("test", ServerConfig{
		Command: "echo",
		Env:     map[string]string{"TEST_MCP_VAR": "overridden"},
	})

	transport := client.createStdioTransport(context.Background())
	ct := transport.(*sdkmcp.CommandTransport)

	// Last entry wins in exec.Cmd, so the override must be present.
	found := false
	for _, e := range ct.Command.Env {
		if e == "TEST_MCP_VAR=overridden" {
			found = true
		}
	}
	if !found {
		t.Error("expected overridden env var in subprocess env")
	}
}

func TestCallToolNotRunning(t *testing.T) {
	client := NewClient("idle", ServerConfig{Command: "echo"})

	_, err := client.CallTool(context.Background(), "anything", nil)
	if err == nil {
		t.Fatal("expected error when server is not running")
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("error = %v, want not running", err)
	}
}

func TestFormatContent(t *testing.T) {
	content := []sdkmcp.Content{
		&sdkmcp.TextContent{Text: "first"},
		&sdkmcp.TextContent{Text: " second"},
	}
	if got := formatContent(content); got != "first second" {
		t.Errorf("formatContent = %q, want %q", got, "first second")
	}
}
