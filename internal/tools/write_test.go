package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustMarshalWriteArgs(t *testing.T, args WriteFileArgs) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return data
}

func TestWriteFileTool_Spec(t *testing.T) {
	tool := NewWriteFileTool(nil)
	spec := tool.Spec()

	if spec.Name != WriteFileToolName {
		t.Errorf("expected name %q, got %q", WriteFileToolName, spec.Name)
	}
	required, ok := spec.Schema["required"].([]string)
	if !ok || len(required) != 2 {
		t.Fatalf("expected two required params, got %v", spec.Schema["required"])
	}
	if required[0] != "path" || required[1] != "contents" {
		t.Errorf("expected required [path contents], got %v", required)
	}
}

func TestWriteFileTool_Preview(t *testing.T) {
	tool := NewWriteFileTool(nil)

	args := mustMarshalWriteArgs(t, WriteFileArgs{Path: "src/main.go", Contents: "package main"})
	if got := tool.Preview(args); got != "src/main.go" {
		t.Errorf("expected path preview, got %q", got)
	}
	if got := tool.Preview(json.RawMessage(`{`)); got != "" {
		t.Errorf("expected empty preview for bad JSON, got %q", got)
	}
}

func TestWriteFileTool_CreateNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.txt")
	tool := NewWriteFileTool(nil)

	result, err := tool.Execute(context.Background(), mustMarshalWriteArgs(t, WriteFileArgs{
		Path:     path,
		Contents: "line one\nline two\n",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := fmt.Sprintf("Created new file: %s (2 lines).", path)
	if result != want {
		t.Errorf("expected %q, got %q", want, result)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "line one\nline two\n" {
		t.Errorf("unexpected file contents: %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("expected mode 0644 for new file, got %v", info.Mode().Perm())
	}
}

func TestWriteFileTool_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.txt")
	if err := os.WriteFile(path, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewWriteFileTool(nil)
	result, err := tool.Execute(context.Background(), mustMarshalWriteArgs(t, WriteFileArgs{
		Path:     path,
		Contents: "a\nb\nc\n",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := fmt.Sprintf("Updated %s: 1 lines -> 3 lines.", path)
	if result != want {
		t.Errorf("expected %q, got %q", want, result)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\nc\n" {
		t.Errorf("unexpected file contents: %q", data)
	}
}

func TestWriteFileTool_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "file.txt")
	tool := NewWriteFileTool(nil)

	result, err := tool.Execute(context.Background(), mustMarshalWriteArgs(t, WriteFileArgs{
		Path:     path,
		Contents: "content\n",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "Created new file: ") {
		t.Errorf("expected create message, got %q", result)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestWriteFileTool_EmptyContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	tool := NewWriteFileTool(nil)

	result, err := tool.Execute(context.Background(), mustMarshalWriteArgs(t, WriteFileArgs{
		Path:     path,
		Contents: "",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "(0 lines).") {
		t.Errorf("expected zero line count for empty file, got %q", result)
	}
}

func TestWriteFileTool_PreservesMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	tool := NewWriteFileTool(nil)
	_, err := tool.Execute(context.Background(), mustMarshalWriteArgs(t, WriteFileArgs{
		Path:     path,
		Contents: "#!/bin/sh\necho updated\n",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("expected mode 0755 preserved, got %v", info.Mode().Perm())
	}
}

func TestWriteFileTool_Denied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.txt")

	m := NewApprovalManager(nil)
	m.Prompt = func(req *ApprovalRequest) (ConfirmOutcome, string) {
		return Cancel, ""
	}
	tool := NewWriteFileTool(m)

	_, err := tool.Execute(context.Background(), mustMarshalWriteArgs(t, WriteFileArgs{
		Path:     path,
		Contents: "nope\n",
	}))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Type != ErrPermissionDenied {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("expected no file written after denial, stat: %v", statErr)
	}
}

func TestWriteFileTool_MissingPath(t *testing.T) {
	tool := NewWriteFileTool(nil)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"contents": "x"}`))
	if err == nil || !strings.Contains(err.Error(), "path is required") {
		t.Errorf("expected path is required, got %v", err)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"\n", 1},
		{"\n\n", 2},
	}

	for _, tt := range tests {
		if got := countLines(tt.input); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
