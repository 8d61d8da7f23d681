package prompt

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MemoryFileName is the per-directory guidance file picked up for the
// system prompt.
const MemoryFileName = "AGENTS.md"

// maxImportDepth bounds recursive @path imports inside guidance files.
const maxImportDepth = 5

var (
	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	codeSpanRe  = regexp.MustCompile("`[^`]*`")
)

// LoadMemory gathers guidance files for a run: the user-level file under
// configDir, then every AGENTS.md from the filesystem root down to workDir.
// The nearest directory comes last so project guidance can override
// anything above it.
func LoadMemory(configDir, workDir string) string {
	var candidates []string
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, MemoryFileName))
	}
	candidates = append(candidates, upwardMemoryFiles(workDir)...)

	seenTop := make(map[string]struct{})
	var sections []string
	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, dup := seenTop[abs]; dup {
			continue
		}
		seenTop[abs] = struct{}{}

		if text := readMemoryFile(abs, 0, make(map[string]struct{})); text != "" {
			sections = append(sections, text)
		}
	}
	return strings.Join(sections, "\n\n")
}

// upwardMemoryFiles returns candidate paths from the filesystem root down
// to dir. Missing files read as empty and drop out later.
func upwardMemoryFiles(dir string) []string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}

	var chain []string
	for {
		chain = append(chain, filepath.Join(abs, MemoryFileName))
		parent := filepath.Dir(abs)
		if parent == abs {
			break
		}
		abs = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// readMemoryFile reads one guidance file and appends its resolved @path
// imports. Depth is bounded and already-seen files are skipped so import
// cycles terminate; unreadable files contribute nothing.
func readMemoryFile(path string, depth int, seen map[string]struct{}) string {
	if depth > maxImportDepth {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	if _, ok := seen[abs]; ok {
		return ""
	}
	seen[abs] = struct{}{}

	data, err := os.ReadFile(abs)
	if err != nil || len(data) == 0 {
		return ""
	}
	content := string(data)

	parts := []string{content}
	baseDir := filepath.Dir(abs)
	for _, imp := range parseImportPaths(content) {
		if text := readMemoryFile(resolveImport(baseDir, imp), depth+1, seen); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseImportPaths extracts @path import lines. Code blocks and inline
// code spans are stripped first so imports mentioned in examples are not
// evaluated.
func parseImportPaths(text string) []string {
	cleaned := codeBlockRe.ReplaceAllString(text, "")
	cleaned = codeSpanRe.ReplaceAllString(cleaned, "")

	var paths []string
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "@") {
			continue
		}
		if path := strings.TrimSpace(line[1:]); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// resolveImport resolves an import path against the importing file's
// directory, with ~ expanding to the user's home.
func resolveImport(baseDir, path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}
