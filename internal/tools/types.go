// Package tools provides the permission-aware local tool system for term-agent.
package tools

import (
	"errors"
	"fmt"
)

// ToolKind categorizes tools for permission grouping.
type ToolKind string

const (
	KindRead        ToolKind = "read"
	KindEdit        ToolKind = "edit"
	KindSearch      ToolKind = "search"
	KindExecute     ToolKind = "execute"
	KindNetwork     ToolKind = "network"
	KindImage       ToolKind = "image"
	KindInteractive ToolKind = "interactive"
)

// MutatorKinds are tool kinds that can modify the filesystem or run commands.
// Tools of these kinds go through the approval layer before executing.
var MutatorKinds = []ToolKind{KindEdit, KindExecute}

// ConfirmOutcome represents the result of a user confirmation prompt.
type ConfirmOutcome string

const (
	ProceedOnce          ConfirmOutcome = "once"        // Single approval
	ProceedAlways        ConfirmOutcome = "always"      // Session-scoped approval
	ProceedAlwaysAndSave ConfirmOutcome = "always_save" // Persist to project approvals
	Cancel               ConfirmOutcome = "cancel"      // User denied
)

// ToolErrorType provides structured errors for agent retry logic.
type ToolErrorType string

const (
	ErrFileNotFound      ToolErrorType = "FILE_NOT_FOUND"
	ErrInvalidParams     ToolErrorType = "INVALID_PARAMS"
	ErrExecutionFailed   ToolErrorType = "EXECUTION_FAILED"
	ErrPermissionDenied  ToolErrorType = "PERMISSION_DENIED"
	ErrBinaryFile        ToolErrorType = "BINARY_FILE"
	ErrFileTooLarge      ToolErrorType = "FILE_TOO_LARGE"
	ErrTextNotFound      ToolErrorType = "TEXT_NOT_FOUND"
	ErrFetchFailed       ToolErrorType = "FETCH_FAILED"
	ErrImageGenFailed    ToolErrorType = "IMAGE_GEN_FAILED"
	ErrUnsupportedFormat ToolErrorType = "UNSUPPORTED_FORMAT"
	ErrTimeout           ToolErrorType = "TIMEOUT"
)

// ToolError provides structured error information for retry logic.
type ToolError struct {
	Type    ToolErrorType `json:"type"`
	Message string        `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewToolError creates a new ToolError.
func NewToolError(errType ToolErrorType, message string) *ToolError {
	return &ToolError{Type: errType, Message: message}
}

// NewToolErrorf creates a new ToolError with formatted message.
func NewToolErrorf(errType ToolErrorType, format string, args ...interface{}) *ToolError {
	return &ToolError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// FormatToolError renders an execution error as tool-result text. The
// structured form keeps the error type visible to the model so it can decide
// whether a retry is worthwhile.
func FormatToolError(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return fmt.Sprintf("Error [%s]: %s", te.Type, te.Message)
	}
	return fmt.Sprintf("Error: %s", err.Error())
}

// previewEllipsis caps text at max runes with a "..." suffix. Previews land
// on the status line, so truncation must not split a multi-byte rune.
func previewEllipsis(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// Tool spec names
const (
	ShellToolName         = "run_shell_command"
	ReadFileToolName      = "read_file"
	WriteFileToolName     = "write_file"
	SearchReplaceToolName = "search_replace"
	GlobToolName          = "glob"
	GrepToolName          = "grep"
	FetchToolName         = "fetch"
	WebSearchToolName     = "web_search"
	CommunicateToolName   = "communicate"
	AskUserToolName       = "ask_user"
	ImageGenerateToolName = "image_generate"
)

// AllToolNames returns all valid tool spec names.
func AllToolNames() []string {
	return []string{
		ShellToolName,
		ReadFileToolName,
		WriteFileToolName,
		SearchReplaceToolName,
		GlobToolName,
		GrepToolName,
		FetchToolName,
		WebSearchToolName,
		CommunicateToolName,
		AskUserToolName,
		ImageGenerateToolName,
	}
}

// validToolNames is a set of valid tool spec names for fast lookup.
var validToolNames = func() map[string]bool {
	m := make(map[string]bool, 11)
	for _, name := range AllToolNames() {
		m[name] = true
	}
	return m
}()

// ValidToolName checks if a name is a valid tool spec name.
func ValidToolName(name string) bool {
	return validToolNames[name]
}

// GetToolKind returns the kind for a tool spec name.
func GetToolKind(specName string) ToolKind {
	switch specName {
	case ReadFileToolName:
		return KindRead
	case WriteFileToolName, SearchReplaceToolName:
		return KindEdit
	case GrepToolName, GlobToolName:
		return KindSearch
	case ShellToolName:
		return KindExecute
	case FetchToolName, WebSearchToolName:
		return KindNetwork
	case ImageGenerateToolName:
		return KindImage
	case AskUserToolName, CommunicateToolName:
		return KindInteractive
	default:
		return ""
	}
}

// IsMutator reports whether a tool name belongs to a kind that mutates state.
func IsMutator(specName string) bool {
	kind := GetToolKind(specName)
	for _, k := range MutatorKinds {
		if kind == k {
			return true
		}
	}
	return false
}
