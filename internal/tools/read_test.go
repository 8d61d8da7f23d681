package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustMarshalReadArgs(t *testing.T, path string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(ReadFileArgs{Path: path})
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return data
}

func TestReadFileTool_Spec(t *testing.T) {
	tool := NewReadFileTool(DefaultOutputLimits())
	spec := tool.Spec()

	if spec.Name != ReadFileToolName {
		t.Errorf("expected name %q, got %q", ReadFileToolName, spec.Name)
	}
	props, ok := spec.Schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("schema missing properties")
	}
	if _, ok := props["path"]; !ok {
		t.Error("schema missing path property")
	}
	required, ok := spec.Schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "path" {
		t.Errorf("expected required [path], got %v", spec.Schema["required"])
	}
}

func TestReadFileTool_Preview(t *testing.T) {
	tool := NewReadFileTool(DefaultOutputLimits())

	if got := tool.Preview(mustMarshalReadArgs(t, "/etc/hosts")); got != "/etc/hosts" {
		t.Errorf("expected path preview, got %q", got)
	}
	if got := tool.Preview(json.RawMessage(`{invalid`)); got != "" {
		t.Errorf("expected empty preview for bad JSON, got %q", got)
	}
}

func TestReadFileTool_Execute(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(DefaultOutputLimits())
	result, err := tool.Execute(context.Background(), mustMarshalReadArgs(t, path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := FileMarkerPrefix + path + "\nhello\nworld\n"
	if result != want {
		t.Errorf("expected %q, got %q", want, result)
	}
}

func TestReadFileTool_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(DefaultOutputLimits())
	result, err := tool.Execute(context.Background(), mustMarshalReadArgs(t, path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != FileMarkerPrefix+path+"\n" {
		t.Errorf("expected bare marker for empty file, got %q", result)
	}
}

func TestReadFileTool_FileNotFound(t *testing.T) {
	tool := NewReadFileTool(DefaultOutputLimits())
	path := filepath.Join(t.TempDir(), "missing.txt")

	_, err := tool.Execute(context.Background(), mustMarshalReadArgs(t, path))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Type != ErrFileNotFound {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestReadFileTool_BinaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0xff, 0xfe}, 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(DefaultOutputLimits())
	_, err := tool.Execute(context.Background(), mustMarshalReadArgs(t, path))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Type != ErrBinaryFile {
		t.Errorf("expected BINARY_FILE, got %v", err)
	}
}

func TestReadFileTool_InvalidParams(t *testing.T) {
	tool := NewReadFileTool(DefaultOutputLimits())

	tests := []struct {
		name string
		args json.RawMessage
		want string
	}{
		{"missing path", json.RawMessage(`{}`), "path is required"},
		{"invalid json", json.RawMessage(`{not json`), "invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestReadFileTool_MaxLinesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.txt")
	content := "line1\nline2\nline3\nline4\nline5"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(OutputLimits{MaxLines: 2, MaxBytes: 1 << 20, MaxResults: 100})
	result, err := tool.Execute(context.Background(), mustMarshalReadArgs(t, path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "line1\nline2") {
		t.Errorf("expected first two lines kept, got %q", result)
	}
	if strings.Contains(result, "line3") {
		t.Errorf("expected line3 dropped, got %q", result)
	}
	if !strings.Contains(result, "[Output truncated. Total lines: 5.]") {
		t.Errorf("expected truncation notice with total line count, got %q", result)
	}
}

func TestReadFileTool_MaxBytesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.txt")
	content := strings.Repeat("a", 100)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(OutputLimits{MaxLines: 2000, MaxBytes: 10, MaxResults: 100})
	result, err := tool.Execute(context.Background(), mustMarshalReadArgs(t, path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(result, strings.Repeat("a", 11)) {
		t.Errorf("expected content capped at 10 bytes, got %q", result)
	}
	if !strings.Contains(result, "[Output truncated. Total lines: 1.]") {
		t.Errorf("expected truncation notice, got %q", result)
	}
}

func TestReadFileTool_UnknownParamWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(DefaultOutputLimits())
	args := json.RawMessage(`{"path": ` + mustQuoteJSON(t, path) + `, "offset": 5}`)
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "Unknown parameter 'offset' was ignored") {
		t.Errorf("expected unknown param warning, got %q", result)
	}
	if !strings.Contains(result, FileMarkerPrefix+path) {
		t.Errorf("expected file marker after warning, got %q", result)
	}
}

func mustQuoteJSON(t *testing.T, s string) string {
	t.Helper()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal string: %v", err)
	}
	return string(data)
}

func TestIsBinaryContent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, false},
		{"plain text", []byte("hello world\n"), false},
		{"json", []byte(`{"key": "value"}`), false},
		{"null bytes", []byte{0x00, 0x01, 0x02}, true},
		{"utf8 text", []byte("héllo wörld"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBinaryContent(tt.data); got != tt.want {
				t.Errorf("isBinaryContent(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}
