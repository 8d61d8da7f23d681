package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitRepoInfo describes the git repository containing a path, when any.
type GitRepoInfo struct {
	IsRepo   bool
	Root     string // absolute repository root
	RepoName string // basename of the root, for prompts
}

// DetectGitRepo reports the repository containing path. Missing paths
// resolve through their parent so files about to be created still detect
// the repo. Without git, or outside a work tree, IsRepo is false.
func DetectGitRepo(path string) GitRepoInfo {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return GitRepoInfo{}
	}

	workDir := absPath
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		workDir = filepath.Dir(absPath)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return GitRepoInfo{}
	}

	root := strings.TrimSpace(string(output))
	if root == "" {
		return GitRepoInfo{}
	}
	return GitRepoInfo{
		IsRepo:   true,
		Root:     root,
		RepoName: filepath.Base(root),
	}
}

// RelativeToRoot returns path relative to the repo root for display,
// falling back to the original path.
func RelativeToRoot(path, root string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return path
	}
	return rel
}
