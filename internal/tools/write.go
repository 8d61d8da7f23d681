package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samsaffron/term-agent/internal/llm"
)

// WriteFileTool implements the write_file tool.
type WriteFileTool struct {
	approval *ApprovalManager
}

// NewWriteFileTool creates a new WriteFileTool.
func NewWriteFileTool(approval *ApprovalManager) *WriteFileTool {
	return &WriteFileTool{
		approval: approval,
	}
}

// WriteFileArgs are the arguments for write_file.
type WriteFileArgs struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

func (t *WriteFileTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        WriteFileToolName,
		Description: "Create or overwrite a file with the specified contents. Creates parent directories if needed.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the file to write",
				},
				"contents": map[string]interface{}{
					"type":        "string",
					"description": "Full file contents to write",
				},
			},
			"required":             []string{"path", "contents"},
			"additionalProperties": false,
		},
	}
}

func (t *WriteFileTool) Preview(args json.RawMessage) string {
	var a WriteFileArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Path == "" {
		return ""
	}
	return a.Path
}

func (t *WriteFileTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a WriteFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Path == "" {
		return "", NewToolError(ErrInvalidParams, "path is required")
	}
	warning := WarnUnknownParams(args, "path", "contents")

	if t.approval != nil {
		outcome, err := t.approval.CheckWriteApproval(WriteFileToolName, a.Path)
		if err != nil {
			return "", err
		}
		if outcome == Cancel {
			return "", NewToolErrorf(ErrPermissionDenied, "access denied: %s", a.Path)
		}
	}

	absPath, err := filepath.Abs(a.Path)
	if err != nil {
		return "", NewToolErrorf(ErrInvalidParams, "cannot resolve path: %v", err)
	}

	// Existing content decides the result phrasing and preserves permissions.
	existingContent := ""
	isNew := true
	var existingMode os.FileMode
	if info, err := os.Stat(absPath); err == nil {
		existingMode = info.Mode()
		if data, err := os.ReadFile(absPath); err == nil {
			existingContent = string(data)
			isNew = false
		}
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", NewToolErrorf(ErrExecutionFailed, "failed to create directory: %v", err)
	}

	if err := atomicWriteFile(absPath, []byte(a.Contents), existingMode, isNew); err != nil {
		return "", err
	}

	if isNew {
		return warning + fmt.Sprintf("Created new file: %s (%d lines).", absPath, countLines(a.Contents)), nil
	}
	return warning + fmt.Sprintf("Updated %s: %d lines -> %d lines.", absPath, countLines(existingContent), countLines(a.Contents)), nil
}

// atomicWriteFile writes to a uniquely-named temp file in the destination
// directory, then renames into place. os.CreateTemp avoids a name collision
// when concurrent calls target the same destination.
func atomicWriteFile(absPath string, data []byte, existingMode os.FileMode, isNew bool) error {
	dir := filepath.Dir(absPath)
	base := filepath.Base(absPath)

	tf, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return NewToolErrorf(ErrExecutionFailed, "failed to create temp file: %v", err)
	}
	tempPath := tf.Name()

	if _, err := tf.Write(data); err != nil {
		tf.Close()
		os.Remove(tempPath)
		return NewToolErrorf(ErrExecutionFailed, "failed to write temp file: %v", err)
	}
	if err := tf.Sync(); err != nil {
		tf.Close()
		os.Remove(tempPath)
		return NewToolErrorf(ErrExecutionFailed, "failed to sync temp file: %v", err)
	}
	if err := tf.Close(); err != nil {
		os.Remove(tempPath)
		return NewToolErrorf(ErrExecutionFailed, "failed to close temp file: %v", err)
	}

	// Preserve existing file permissions, or use 0644 for new files.
	// CreateTemp creates files with 0600 which is too restrictive for
	// source files.
	mode := existingMode
	if isNew {
		mode = 0644
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return NewToolErrorf(ErrExecutionFailed, "failed to set file permissions: %v", err)
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return NewToolErrorf(ErrExecutionFailed, "failed to rename temp file: %v", err)
	}

	return nil
}

// countLines counts the number of lines in a string.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	count := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		count++
	}
	return count
}
