package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	// Resolve symlinks (macOS /var -> /private/var)
	tempDir, err := filepath.EvalSymlinks(tempDir)
	if err != nil {
		t.Fatalf("failed to resolve symlinks: %v", err)
	}

	cmd := exec.Command("git", "init")
	cmd.Dir = tempDir
	if err := cmd.Run(); err != nil {
		t.Skipf("git init failed, skipping: %v", err)
	}
	return tempDir
}

func TestDetectGitRepo_NotInRepo(t *testing.T) {
	tempDir := t.TempDir()

	info := DetectGitRepo(tempDir)

	if info.IsRepo {
		t.Error("expected IsRepo to be false for non-repo directory")
	}
	if info.Root != "" {
		t.Errorf("expected empty Root, got %s", info.Root)
	}
}

func TestDetectGitRepo_NewRepo(t *testing.T) {
	tempDir := initGitRepo(t)

	info := DetectGitRepo(tempDir)

	if !info.IsRepo {
		t.Fatal("expected IsRepo to be true for new git repo")
	}
	if info.Root != tempDir {
		t.Errorf("expected Root=%s, got %s", tempDir, info.Root)
	}
	if info.RepoName != filepath.Base(tempDir) {
		t.Errorf("expected RepoName=%s, got %s", filepath.Base(tempDir), info.RepoName)
	}
	if !filepath.IsAbs(info.Root) {
		t.Errorf("expected absolute Root, got %s", info.Root)
	}
}

func TestDetectGitRepo_Subdirectory(t *testing.T) {
	tempDir := initGitRepo(t)

	subDir := filepath.Join(tempDir, "src", "internal")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	info := DetectGitRepo(subDir)

	if !info.IsRepo {
		t.Error("expected IsRepo to be true for subdirectory of git repo")
	}
	if info.Root != tempDir {
		t.Errorf("expected Root=%s, got %s", tempDir, info.Root)
	}
}

func TestDetectGitRepo_MissingFile(t *testing.T) {
	tempDir := initGitRepo(t)

	// A file that does not exist yet should resolve through its parent.
	info := DetectGitRepo(filepath.Join(tempDir, "new-file.go"))

	if !info.IsRepo {
		t.Error("expected IsRepo to be true for a missing file inside a repo")
	}
	if info.Root != tempDir {
		t.Errorf("expected Root=%s, got %s", tempDir, info.Root)
	}
}

func TestRelativeToRoot(t *testing.T) {
	tests := []struct {
		name string
		path string
		root string
		want string
	}{
		{
			name: "simple file",
			path: "/repo/main.go",
			root: "/repo",
			want: "main.go",
		},
		{
			name: "nested file",
			path: "/repo/src/internal/tools/file.go",
			root: "/repo",
			want: "src/internal/tools/file.go",
		},
		{
			name: "same as root",
			path: "/repo",
			root: "/repo",
			want: ".",
		},
		{
			name: "outside root",
			path: "/other/file.go",
			root: "/repo",
			want: "../other/file.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelativeToRoot(tt.path, tt.root)
			if got != tt.want {
				t.Errorf("RelativeToRoot(%q, %q) = %q, want %q", tt.path, tt.root, got, tt.want)
			}
		})
	}
}
