package tools

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestToolError_Error(t *testing.T) {
	err := NewToolError(ErrFileNotFound, "/tmp/missing.txt")
	if err.Error() != "FILE_NOT_FOUND: /tmp/missing.txt" {
		t.Errorf("unexpected error string %q", err.Error())
	}
}

func TestFormatToolError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"structured error",
			NewToolError(ErrPermissionDenied, "access denied: /etc/shadow"),
			"Error [PERMISSION_DENIED]: access denied: /etc/shadow",
		},
		{
			"wrapped structured error",
			fmt.Errorf("executing tool: %w", NewToolError(ErrTimeout, "took too long")),
			"Error [TIMEOUT]: took too long",
		},
		{
			"plain error",
			errors.New("something broke"),
			"Error: something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatToolError(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 11 {
		t.Fatalf("expected 11 builtin tool names, got %d", len(names))
	}

	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate tool name %q", n)
		}
		seen[n] = true
	}
	if names[0] != ShellToolName {
		t.Errorf("expected shell first, got %q", names[0])
	}
}

func TestPreviewEllipsis(t *testing.T) {
	if got := previewEllipsis("short", 50); got != "short" {
		t.Errorf("short input changed: %q", got)
	}

	long := strings.Repeat("héllo wörld ", 10)
	got := previewEllipsis(long, 30)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ... suffix, got %q", got)
	}
	if n := len([]rune(got)); n != 30 {
		t.Errorf("expected 30 runes, got %d", n)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got)
	}
}
