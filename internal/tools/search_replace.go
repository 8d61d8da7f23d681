package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	diff "github.com/shogoki/gotextdiff"

	"github.com/samsaffron/term-agent/internal/llm"
)

// DiffSeparator precedes the unified diff in search_replace results. The
// renderer splits on it to highlight the diff separately from the summary.
const DiffSeparator = "\nDiff:\n"

// SearchReplaceTool implements the search_replace tool. It replaces every
// occurrence of a literal string in a file and reports a unified diff of
// the change.
type SearchReplaceTool struct {
	approval *ApprovalManager
}

// NewSearchReplaceTool creates a new SearchReplaceTool.
func NewSearchReplaceTool(approval *ApprovalManager) *SearchReplaceTool {
	return &SearchReplaceTool{
		approval: approval,
	}
}

// SearchReplaceArgs are the arguments for search_replace.
type SearchReplaceArgs struct {
	Path    string `json:"path"`
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

func (t *SearchReplaceTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        SearchReplaceToolName,
		Description: "Replace every occurrence of a literal text in a file. Returns a unified diff of the change.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the file to edit",
				},
				"search": map[string]interface{}{
					"type":        "string",
					"description": "Literal text to find. Every occurrence is replaced.",
				},
				"replace": map[string]interface{}{
					"type":        "string",
					"description": "Replacement text. May be empty to delete the matched text.",
				},
			},
			"required":             []string{"path", "search", "replace"},
			"additionalProperties": false,
		},
	}
}

func (t *SearchReplaceTool) Preview(args json.RawMessage) string {
	var a SearchReplaceArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Path == "" {
		return ""
	}
	return a.Path
}

func (t *SearchReplaceTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a SearchReplaceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Path == "" {
		return "", NewToolError(ErrInvalidParams, "path is required")
	}
	if a.Search == "" {
		return "", NewToolError(ErrInvalidParams, "search is required")
	}
	warning := WarnUnknownParams(args, "path", "search", "replace")

	if t.approval != nil {
		outcome, err := t.approval.CheckWriteApproval(SearchReplaceToolName, a.Path)
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

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewToolError(ErrFileNotFound, absPath)
		}
		return "", NewToolErrorf(ErrExecutionFailed, "read error: %v", err)
	}
	if isBinaryContent(data) {
		return "", NewToolErrorf(ErrBinaryFile, "%s appears to be a binary file", absPath)
	}

	content := string(data)
	count := strings.Count(content, a.Search)
	if count == 0 {
		return "", NewToolErrorf(ErrTextNotFound, "Text not found in file: %s", absPath)
	}

	newContent := strings.ReplaceAll(content, a.Search, a.Replace)

	mode := os.FileMode(0644)
	if info, err := os.Stat(absPath); err == nil {
		mode = info.Mode()
	}
	if err := atomicWriteFile(absPath, []byte(newContent), mode, false); err != nil {
		return "", err
	}

	diffBytes := diff.Diff(absPath, []byte(content), absPath, []byte(newContent))

	return warning + fmt.Sprintf("Successfully replaced %d occurrence(s) in %s%s%s",
		count, absPath, DiffSeparator, string(diffBytes)), nil
}
