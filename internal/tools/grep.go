package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/samsaffron/term-agent/internal/llm"
)

// GrepTool implements the grep tool. It shells out to ripgrep when
// available and falls back to a pure Go search otherwise.
type GrepTool struct {
	limits OutputLimits
}

// NewGrepTool creates a new GrepTool.
func NewGrepTool(limits OutputLimits) *GrepTool {
	return &GrepTool{limits: limits}
}

// GrepArgs are the arguments for grep.
type GrepArgs struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path,omitempty"`
	Include    string `json:"include,omitempty"` // glob filter e.g., "*.go"
	MaxResults int    `json:"max_results,omitempty"`
}

// GrepMatch represents a single grep match.
type GrepMatch struct {
	FilePath   string
	LineNumber int
	Match      string
	Context    string // match with surrounding lines
}

func (t *GrepTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        GrepToolName,
		Description: "Search file contents using regex patterns (RE2 syntax). Returns matches with context.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Regular expression pattern to search for (RE2 syntax)",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File or directory to search in (defaults to current directory)",
				},
				"include": map[string]interface{}{
					"type":        "string",
					"description": "Glob filter for files, e.g., '*.go' or '*.{js,ts}'",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (default: 100)",
				},
			},
			"required":             []string{"pattern"},
			"additionalProperties": false,
		},
	}
}

func (t *GrepTool) Preview(args json.RawMessage) string {
	var a GrepArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Pattern == "" {
		return ""
	}
	result := fmt.Sprintf("/%s/", previewEllipsis(a.Pattern, 30))
	if a.Path != "" {
		result += " in " + a.Path
	}
	if a.Include != "" {
		result += " (" + a.Include + ")"
	}
	return result
}

func (t *GrepTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var a GrepArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Pattern == "" {
		return "", NewToolError(ErrInvalidParams, "pattern is required")
	}
	warning := WarnUnknownParams(args, "pattern", "path", "include", "max_results")

	searchPath := a.Path
	if searchPath == "" {
		var err error
		searchPath, err = os.Getwd()
		if err != nil {
			return "", NewToolErrorf(ErrExecutionFailed, "cannot get working directory: %v", err)
		}
	}

	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = t.limits.MaxResults
	}

	// ripgrep first, it is much faster on large trees
	if ripgrepAvailable() {
		matches, err := executeRipgrep(ctx, a.Pattern, searchPath, a.Include, maxResults)
		if err == nil {
			if len(matches) == 0 {
				return warning + "No matches found.", nil
			}
			return warning + formatGrepResults(matches, len(matches) >= maxResults), nil
		}
		if ctx.Err() != nil {
			return warning + "grep timed out after 1 minute; try a more specific pattern or path", nil
		}
		// Fall through to the Go implementation on ripgrep error
	}

	matches, err := t.goGrep(ctx, a.Pattern, searchPath, a.Include, maxResults)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return warning + "grep timed out after 1 minute; try a more specific pattern or path", nil
	}
	if len(matches) == 0 {
		return warning + "No matches found.", nil
	}
	return warning + formatGrepResults(matches, len(matches) >= maxResults), nil
}

// goGrep is the pure Go fallback search.
func (t *GrepTool) goGrep(ctx context.Context, pattern, searchPath, include string, maxResults int) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, NewToolErrorf(ErrInvalidParams, "invalid regex pattern: %v", err)
	}

	files, err := collectFiles(searchPath, include)
	if err != nil {
		return nil, NewToolErrorf(ErrExecutionFailed, "failed to collect files: %v", err)
	}
	sortFilesByMtime(files)

	var matches []GrepMatch
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if len(matches) >= maxResults {
			break
		}
		fileMatches, err := searchFile(file, re, maxResults-len(matches))
		if err != nil {
			continue // Skip files that can't be read
		}
		matches = append(matches, fileMatches...)
	}
	return matches, nil
}

// ripgrepAvailable checks if ripgrep (rg) is on PATH.
func ripgrepAvailable() bool {
	_, err := exec.LookPath("rg")
	return err == nil
}

// rgEvent is one line of ripgrep --json output.
type rgEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type rgEventData struct {
	Path struct {
		Text string `json:"text"`
	} `json:"path"`
	Lines struct {
		Text string `json:"text"`
	} `json:"lines"`
	LineNumber int `json:"line_number"`
}

// executeRipgrep runs ripgrep and returns matches.
func executeRipgrep(ctx context.Context, pattern, searchPath, include string, maxResults int) ([]GrepMatch, error) {
	args := []string{
		"--json",
		"--max-count", strconv.Itoa(maxResults),
		"--context", "3",
		"--hidden",
		"--glob", "!.git",
	}
	if include != "" {
		args = append(args, "--glob", include)
	}
	args = append(args, pattern, searchPath)

	cmd := exec.CommandContext(ctx, "rg", args...)
	output, err := cmd.Output()
	if err != nil {
		// Exit code 1 means no matches, which is not an error
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}

	return parseRipgrepOutput(output, maxResults), nil
}

// pendingMatch accumulates context lines while parsing ripgrep output.
type pendingMatch struct {
	filePath   string
	lineNumber int
	matchLine  string
	before     []string
	after      []string
}

// parseRipgrepOutput parses ripgrep JSON events into GrepMatches. Events
// arrive in line order, so before-context precedes its match and group
// boundaries show up as begin/break/end events.
func parseRipgrepOutput(output []byte, maxResults int) []GrepMatch {
	var matches []GrepMatch
	var pending *pendingMatch
	var beforeBuf []string

	flush := func() {
		if pending != nil {
			matches = append(matches, buildMatchFromPending(pending))
			pending = nil
		}
		beforeBuf = beforeBuf[:0]
	}

	for _, line := range strings.Split(string(output), "\n") {
		if line == "" {
			continue
		}

		var msg rgEvent
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "begin", "break", "end":
			flush()
			if len(matches) >= maxResults {
				return matches[:maxResults]
			}

		case "match":
			if pending != nil {
				matches = append(matches, buildMatchFromPending(pending))
				pending = nil
				if len(matches) >= maxResults {
					return matches
				}
			}

			var data rgEventData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				continue
			}
			pending = &pendingMatch{
				filePath:   data.Path.Text,
				lineNumber: data.LineNumber,
				matchLine:  strings.TrimSuffix(data.Lines.Text, "\n"),
				before:     append([]string(nil), beforeBuf...),
			}
			beforeBuf = beforeBuf[:0]

		case "context":
			var data rgEventData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				continue
			}
			contextLine := strings.TrimSuffix(data.Lines.Text, "\n")
			if pending != nil {
				pending.after = append(pending.after, contextLine)
			} else {
				beforeBuf = append(beforeBuf, contextLine)
			}
		}
	}

	flush()
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

func buildMatchFromPending(p *pendingMatch) GrepMatch {
	var sb strings.Builder
	startLine := p.lineNumber - len(p.before)

	for i, line := range p.before {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", startLine+i, line))
	}
	sb.WriteString(fmt.Sprintf("> %d: %s\n", p.lineNumber, p.matchLine))
	for i, line := range p.after {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", p.lineNumber+1+i, line))
	}

	return GrepMatch{
		FilePath:   p.filePath,
		LineNumber: p.lineNumber,
		Match:      p.matchLine,
		Context:    strings.TrimSuffix(sb.String(), "\n"),
	}
}

// collectFiles collects files to search for the Go fallback.
func collectFiles(searchPath, include string) ([]string, error) {
	info, err := os.Stat(searchPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{searchPath}, nil
	}

	var files []string
	err = filepath.WalkDir(searchPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != searchPath {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}

		if include != "" {
			match, err := doublestar.Match(include, d.Name())
			if err != nil || !match {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// sortFilesByMtime sorts files by modification time (newest first).
func sortFilesByMtime(files []string) {
	type fileInfo struct {
		path  string
		mtime int64
	}

	infos := make([]fileInfo, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			infos = append(infos, fileInfo{path: f})
			continue
		}
		infos = append(infos, fileInfo{path: f, mtime: info.ModTime().Unix()})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].mtime > infos[j].mtime
	})

	for i, info := range infos {
		files[i] = info.path
	}
}

// searchFile searches a single file for matches.
func searchFile(path string, re *regexp.Regexp, maxMatches int) ([]GrepMatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isBinaryContent(data) {
		return nil, fmt.Errorf("binary file")
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var matches []GrepMatch
	for lineNum, line := range lines {
		if re.MatchString(line) {
			matches = append(matches, GrepMatch{
				FilePath:   path,
				LineNumber: lineNum + 1,
				Match:      line,
				Context:    buildContext(lines, lineNum, 3),
			})
			if len(matches) >= maxMatches {
				break
			}
		}
	}

	return matches, nil
}

// buildContext builds context lines around a match.
func buildContext(lines []string, matchIdx, contextLines int) string {
	start := matchIdx - contextLines
	if start < 0 {
		start = 0
	}
	end := matchIdx + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		prefix := "  "
		if i == matchIdx {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%d: %s\n", prefix, i+1, lines[i]))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// formatGrepResults formats grep results for the LLM.
func formatGrepResults(matches []GrepMatch, truncated bool) string {
	var sb strings.Builder

	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(fmt.Sprintf("%s:%d\n", m.FilePath, m.LineNumber))
		sb.WriteString(m.Context)
		sb.WriteString("\n")
	}

	if truncated {
		sb.WriteString("\n[Results truncated at limit]")
	}

	return sb.String()
}
