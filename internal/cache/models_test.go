package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestWriteAndFreshModels(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	models := []string{"qwen/qwen3-coder", "deepseek/deepseek-v3"}
	if err := WriteModels("openrouter", models); err != nil {
		t.Fatalf("WriteModels() error = %v", err)
	}

	got := FreshModels("openrouter")
	if !slices.Equal(got, models) {
		t.Errorf("FreshModels() = %v, want %v", got, models)
	}
}

func TestFreshModels_Missing(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if got := FreshModels("openrouter"); got != nil {
		t.Errorf("FreshModels() = %v, want nil", got)
	}
}

func TestFreshModels_Stale(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	path, err := listPath("openai")
	if err != nil {
		t.Fatalf("listPath() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	stale := modelList{
		Models:    []string{"gpt-5"},
		FetchedAt: time.Now().Add(-2 * time.Hour),
	}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if got := FreshModels("openai"); got != nil {
		t.Errorf("FreshModels() = %v, want nil for stale cache", got)
	}
}

func TestFreshModels_Corrupt(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	path, err := listPath("openai")
	if err != nil {
		t.Fatalf("listPath() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := FreshModels("openai"); got != nil {
		t.Errorf("FreshModels() = %v, want nil for corrupt cache", got)
	}
}

func TestWriteModels_Overwrites(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := WriteModels("work", []string{"old-model"}); err != nil {
		t.Fatalf("WriteModels() error = %v", err)
	}
	if err := WriteModels("work", []string{"new-model"}); err != nil {
		t.Fatalf("WriteModels() error = %v", err)
	}

	got := FreshModels("work")
	want := []string{"new-model"}
	if !slices.Equal(got, want) {
		t.Errorf("FreshModels() = %v, want %v", got, want)
	}
}
