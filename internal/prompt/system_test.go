package prompt

import (
	"strings"
	"testing"
)

func TestSystemPrompt_CoreSections(t *testing.T) {
	got := SystemPrompt("", "")

	for _, section := range []string{
		"[WHO YOU ARE]",
		"[WHAT YOU DO]",
		"[REQUIRED FOLLOWUP ACTIONS]",
		"[YOUR WRITING STYLE]",
		"[YOUR CODE STYLE]",
	} {
		if !strings.Contains(got, section) {
			t.Errorf("missing section %s", section)
		}
	}
	if strings.Contains(got, "[EXTRA INSTRUCTIONS]") {
		t.Error("instructions section should be absent when empty")
	}
	if strings.Contains(got, "[ADDITIONAL MEMORY CONTEXT]") {
		t.Error("memory section should be absent when empty")
	}
}

func TestSystemPrompt_WithInstructions(t *testing.T) {
	got := SystemPrompt("answer in haiku", "")

	if !strings.Contains(got, "[EXTRA INSTRUCTIONS]\nanswer in haiku\n") {
		t.Errorf("instructions not appended:\n%s", got)
	}
}

func TestSystemPrompt_WithMemory(t *testing.T) {
	got := SystemPrompt("", "project uses tabs")

	if !strings.Contains(got, "[ADDITIONAL MEMORY CONTEXT]\nproject uses tabs\n") {
		t.Errorf("memory not appended:\n%s", got)
	}
}
