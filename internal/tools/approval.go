package tools

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// DirCache caches directory write approvals for the session. Approving a
// directory covers every later write beneath it.
type DirCache struct {
	mu   sync.RWMutex
	dirs map[string]ConfirmOutcome // absolute dir path -> outcome
}

// NewDirCache creates a new DirCache.
func NewDirCache() *DirCache {
	return &DirCache{
		dirs: make(map[string]ConfirmOutcome),
	}
}

// Set stores a directory approval.
func (c *DirCache) Set(dir string, outcome ConfirmOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirs[dir] = outcome
}

// IsPathInApprovedDir checks if a path is within any approved directory.
func (c *DirCache) IsPathInApprovedDir(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	for dir, outcome := range c.dirs {
		if outcome == ProceedAlways || outcome == ProceedAlwaysAndSave {
			if strings.HasPrefix(absPath, dir+string(filepath.Separator)) || absPath == dir {
				return true
			}
		}
	}
	return false
}

// ShellApprovalCache caches shell command pattern approvals for the session.
type ShellApprovalCache struct {
	mu       sync.RWMutex
	patterns []string
}

// NewShellApprovalCache creates a new ShellApprovalCache.
func NewShellApprovalCache() *ShellApprovalCache {
	return &ShellApprovalCache{
		patterns: []string{},
	}
}

// AddPattern adds a pattern to the session cache.
func (c *ShellApprovalCache) AddPattern(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.patterns {
		if p == pattern {
			return
		}
	}
	c.patterns = append(c.patterns, pattern)
}

// GetPatterns returns all session-approved patterns.
func (c *ShellApprovalCache) GetPatterns() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]string, len(c.patterns))
	copy(result, c.patterns)
	return result
}

// ApprovalRequest represents a pending approval request.
type ApprovalRequest struct {
	ToolName    string
	Path        string // For file tools
	Command     string // For the shell tool
	Description string // Human-readable description
	Pattern     string // Suggested pattern for "always" approvals
}

// PromptFunc asks the user to decide a request. The returned pattern
// overrides req.Pattern for "always" approvals; empty keeps the suggestion.
type PromptFunc func(req *ApprovalRequest) (ConfirmOutcome, string)

// ApprovalManager coordinates approval checks, session caches and the
// interactive prompt.
type ApprovalManager struct {
	dirCache   *DirCache
	shellCache *ShellApprovalCache

	autoApprove []compiledPattern

	project     *ProjectApprovals
	projectOnce sync.Once

	// promptMu serializes interactive prompts. Tools execute in parallel,
	// so several may need approval at once; only one prompt is shown at a
	// time.
	promptMu sync.Mutex

	// YoloMode auto-approves all tool executions without prompting.
	// Intended for CI and container environments without a TTY.
	YoloMode bool

	// Prompt is invoked for decisions no cache can answer. Left nil, every
	// unapproved mutation is denied.
	Prompt PromptFunc
}

type compiledPattern struct {
	raw string
	g   glob.Glob
}

// NewApprovalManager creates a manager seeded with the auto_approve glob
// patterns from config. Invalid patterns are skipped with a warning.
func NewApprovalManager(autoApprove []string) *ApprovalManager {
	m := &ApprovalManager{
		dirCache:   NewDirCache(),
		shellCache: NewShellApprovalCache(),
	}
	for _, raw := range autoApprove {
		g, err := glob.Compile(raw)
		if err != nil {
			slog.Warn("invalid auto_approve pattern", "pattern", raw, "error", err)
			continue
		}
		m.autoApprove = append(m.autoApprove, compiledPattern{raw: raw, g: g})
	}
	return m
}

// autoApproved checks a string against the configured auto_approve globs.
func (m *ApprovalManager) autoApproved(s string) bool {
	for _, p := range m.autoApprove {
		if p.g.Match(s) {
			return true
		}
	}
	return false
}

// projectApprovals lazily loads approvals from the working directory.
func (m *ApprovalManager) projectApprovals() *ProjectApprovals {
	m.projectOnce.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			return
		}
		pa, err := LoadProjectApprovals(cwd)
		if err != nil {
			return
		}
		m.project = pa
	})
	return m.project
}

// ApproveShellPattern adds a pattern to the session cache.
func (m *ApprovalManager) ApproveShellPattern(pattern string) {
	m.shellCache.AddPattern(pattern)
}

// ApproveDirectory adds a directory approval to the session cache.
func (m *ApprovalManager) ApproveDirectory(dir string, outcome ConfirmOutcome) {
	m.dirCache.Set(dir, outcome)
}

// checkShellNoPrompt runs the non-interactive shell approval checks.
// Returns (outcome, true) when a decision is made, or (Cancel, false) when
// prompting is still required.
func (m *ApprovalManager) checkShellNoPrompt(command string) (ConfirmOutcome, bool) {
	if m.autoApproved(command) {
		return ProceedOnce, true
	}

	for _, pattern := range m.shellCache.GetPatterns() {
		if matchPattern(pattern, command) {
			return ProceedAlways, true
		}
	}

	if m.projectApprovals().IsShellPatternApproved(command) {
		return ProceedAlways, true
	}

	return Cancel, false
}

// CheckShellApproval checks if a shell command is approved, prompting the
// user when no cache answers.
func (m *ApprovalManager) CheckShellApproval(command string) (ConfirmOutcome, error) {
	if m.YoloMode {
		return ProceedOnce, nil
	}

	if outcome, ok := m.checkShellNoPrompt(command); ok {
		return outcome, nil
	}

	m.promptMu.Lock()
	defer m.promptMu.Unlock()

	// Recheck now that we hold the prompt lock: a parallel call may have
	// approved a matching pattern while we waited.
	if outcome, ok := m.checkShellNoPrompt(command); ok {
		return outcome, nil
	}

	if m.Prompt == nil {
		return Cancel, NewToolError(ErrPermissionDenied, "command not in allowlist and no TTY for approval")
	}

	req := &ApprovalRequest{
		ToolName:    ShellToolName,
		Command:     command,
		Description: fmt.Sprintf("Allow shell command: %s", command),
		Pattern:     GenerateShellPattern(command),
	}

	outcome, pattern := m.Prompt(req)
	if pattern == "" {
		pattern = req.Pattern
	}

	switch outcome {
	case ProceedAlways:
		m.shellCache.AddPattern(pattern)
	case ProceedAlwaysAndSave:
		m.shellCache.AddPattern(pattern)
		if err := m.projectApprovals().ApproveShellPattern(pattern); err != nil {
			slog.Warn("failed to save project approval", "pattern", pattern, "error", err)
		}
	}

	return outcome, nil
}

// checkWriteNoPrompt runs the non-interactive write approval checks.
func (m *ApprovalManager) checkWriteNoPrompt(toolName, absPath string) (ConfirmOutcome, bool) {
	if m.autoApproved(toolName) || m.autoApproved(absPath) {
		return ProceedOnce, true
	}

	if m.dirCache.IsPathInApprovedDir(absPath) {
		return ProceedAlways, true
	}

	if m.projectApprovals().IsWriteApproved() {
		return ProceedAlways, true
	}

	return Cancel, false
}

// CheckWriteApproval checks if a file mutation is approved. Approvals are
// directory-scoped: approving once covers later writes under the same
// directory for the session.
func (m *ApprovalManager) CheckWriteApproval(toolName, path string) (ConfirmOutcome, error) {
	if m.YoloMode {
		return ProceedOnce, nil
	}

	absPath := path
	if resolved, err := filepath.Abs(path); err == nil {
		absPath = resolved
	}

	if outcome, ok := m.checkWriteNoPrompt(toolName, absPath); ok {
		return outcome, nil
	}

	m.promptMu.Lock()
	defer m.promptMu.Unlock()

	if outcome, ok := m.checkWriteNoPrompt(toolName, absPath); ok {
		return outcome, nil
	}

	if m.Prompt == nil {
		return Cancel, NewToolError(ErrPermissionDenied, "path not in allowlist and no TTY for approval")
	}

	absDir, err := filepath.Abs(getDirectoryForApproval(path))
	if err != nil {
		return Cancel, NewToolError(ErrPermissionDenied, "invalid path")
	}

	req := &ApprovalRequest{
		ToolName:    toolName,
		Path:        absDir,
		Description: fmt.Sprintf("Allow write access to directory: %s", absDir),
	}

	outcome, _ := m.Prompt(req)

	switch outcome {
	case ProceedAlways:
		m.dirCache.Set(absDir, ProceedAlways)
	case ProceedAlwaysAndSave:
		m.dirCache.Set(absDir, ProceedAlwaysAndSave)
		if err := m.projectApprovals().ApproveWrite(); err != nil {
			slog.Warn("failed to save project approval", "dir", absDir, "error", err)
		}
	}

	return outcome, nil
}

// getDirectoryForApproval determines which directory to ask approval for.
func getDirectoryForApproval(path string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// matchPattern checks if a command matches an approved pattern. Patterns
// like "git *" match by prefix; anything else must match exactly.
func matchPattern(pattern, command string) bool {
	if len(pattern) == 0 {
		return false
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(command) >= len(prefix) && command[:len(prefix)] == prefix
	}

	return pattern == command
}
