package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/llm"
)

// timeoutExitCode mirrors timeout(1): commands killed at the deadline
// report 124.
const timeoutExitCode = 124

// ShellTool implements the run_shell_command tool.
type ShellTool struct {
	approval       *ApprovalManager
	limits         OutputLimits
	defaultTimeout int
}

// NewShellTool creates a new ShellTool.
func NewShellTool(approval *ApprovalManager, cfg *config.Config, limits OutputLimits) *ShellTool {
	defaultTimeout := 30
	if cfg != nil && cfg.Tools.ShellTimeout > 0 {
		defaultTimeout = cfg.Tools.ShellTimeout
	}
	return &ShellTool{
		approval:       approval,
		limits:         limits,
		defaultTimeout: defaultTimeout,
	}
}

// ShellArgs are the arguments for the run_shell_command tool.
type ShellArgs struct {
	Cmd     string `json:"cmd"`
	Timeout int    `json:"timeout,omitempty"`
}

func (t *ShellTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        ShellToolName,
		Description: "Execute a shell command. Returns combined stdout/stderr followed by an \"(exit code: N)\" line.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"cmd": map[string]interface{}{
					"type":        "string",
					"description": "Shell command to execute",
				},
				"timeout": map[string]interface{}{
					"type":        "integer",
					"description": "Command timeout in seconds (default: 30, max: 300)",
				},
			},
			"required":             []string{"cmd"},
			"additionalProperties": false,
		},
	}
}

func (t *ShellTool) Preview(args json.RawMessage) string {
	var a ShellArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Cmd == "" {
		return ""
	}
	return truncateCommand(a.Cmd)
}

func (t *ShellTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a ShellArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Cmd == "" {
		return "", NewToolError(ErrInvalidParams, "cmd is required")
	}
	warning := WarnUnknownParams(args, "cmd", "timeout")

	if t.approval != nil {
		outcome, err := t.approval.CheckShellApproval(a.Cmd)
		if err != nil {
			return "", err
		}
		if outcome == Cancel {
			// A non-zero exit marker keeps the denial on the shell
			// result contract so it settles as a failed command.
			denied := NewToolErrorf(ErrPermissionDenied, "command not allowed: %s", truncateCommand(a.Cmd))
			return FormatToolError(denied) + "\n(exit code: 1)", nil
		}
	}

	timeout := t.defaultTimeout
	if a.Timeout > 0 {
		timeout = a.Timeout
	}
	if timeout > 300 {
		timeout = 300
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	shell := detectShell()
	cmd := exec.CommandContext(execCtx, shell, "-c", a.Cmd)

	// One buffer for both streams keeps output interleaved the way a
	// terminal would show it.
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		return warning + formatShellResult(out.String(), timeoutExitCode, timeout, t.limits), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return "", NewToolErrorf(ErrExecutionFailed, "command error: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return warning + formatShellResult(out.String(), exitCode, 0, t.limits), nil
}

// formatShellResult renders combined output plus the exit-code marker. A
// timeoutSecs > 0 marks a run killed at its deadline.
func formatShellResult(output string, exitCode, timeoutSecs int, limits OutputLimits) string {
	var sb strings.Builder

	if timeoutSecs > 0 {
		sb.WriteString(fmt.Sprintf("[Command timed out after %ds]\n", timeoutSecs))
	}

	out := truncateBytes(output, limits.MaxBytes)
	if out != "" {
		sb.WriteString(out)
		if !strings.HasSuffix(out, "\n") {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(fmt.Sprintf("(exit code: %d)", exitCode))
	return sb.String()
}

// detectShell returns the user's shell.
func detectShell() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return "bash"
	}
	return shell
}

// truncateCommand truncates a command for previews and error messages.
func truncateCommand(cmd string) string {
	return previewEllipsis(cmd, 50)
}
