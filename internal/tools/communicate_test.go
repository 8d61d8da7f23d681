package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestCommunicateTool_Spec(t *testing.T) {
	tool := NewCommunicateTool()
	spec := tool.Spec()

	if spec.Name != CommunicateToolName {
		t.Errorf("expected name %q, got %q", CommunicateToolName, spec.Name)
	}
	required, ok := spec.Schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "message" {
		t.Errorf("expected required [message], got %v", spec.Schema["required"])
	}
}

func TestCommunicateTool_Execute(t *testing.T) {
	tool := NewCommunicateTool()

	args, err := json.Marshal(CommunicateArgs{Message: "Halfway through the refactor."})
	if err != nil {
		t.Fatal(err)
	}
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Halfway through the refactor." {
		t.Errorf("expected message echoed back, got %q", result)
	}
}

func TestCommunicateTool_MissingMessage(t *testing.T) {
	tool := NewCommunicateTool()
	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err == nil || !strings.Contains(err.Error(), "message is required") {
		t.Errorf("expected message is required, got %v", err)
	}
}

func TestCommunicateTool_Preview(t *testing.T) {
	tool := NewCommunicateTool()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"short", "Working on it", "Working on it"},
		{"first line only", "line one\nline two", "line one"},
		{"long first line", strings.Repeat("m", 70), strings.Repeat("m", 57) + "..."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := json.Marshal(CommunicateArgs{Message: tt.message})
			if err != nil {
				t.Fatal(err)
			}
			if got := tool.Preview(args); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
