package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarkdown_Empty(t *testing.T) {
	if got := Markdown("", 80); got != "" {
		t.Errorf("Markdown(\"\") = %q, want empty", got)
	}
}

func TestMarkdown_RendersContent(t *testing.T) {
	got := Markdown("# Hello\n\nSome **bold** text.", 80)

	if !strings.Contains(got, "Hello") {
		t.Errorf("rendered output missing heading text: %q", got)
	}
	if !strings.Contains(got, "bold") {
		t.Errorf("rendered output missing body text: %q", got)
	}
}

func TestGetRenderer_CachedByWidth(t *testing.T) {
	first, err := getRenderer(72)
	if err != nil {
		t.Fatalf("getRenderer() error = %v", err)
	}
	second, err := getRenderer(72)
	if err != nil {
		t.Fatalf("getRenderer() error = %v", err)
	}
	if first != second {
		t.Error("expected the same renderer for the same width")
	}
}

func TestTerminalWidth_NonTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	if got := TerminalWidth(f); got != defaultWidth {
		t.Errorf("TerminalWidth() = %d, want %d", got, defaultWidth)
	}
}

func TestFinalAnswer_NonTerminalUsesPlain(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	if got := FinalAnswer(f, "some **bold** text"); got != "some bold text" {
		t.Errorf("FinalAnswer() = %q, want plain text", got)
	}
}
