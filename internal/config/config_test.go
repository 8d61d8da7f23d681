package config

import "testing"

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{
		Model:           "anthropic",
		DefaultProvider: "openai",
	}

	cfg.ApplyOverrides("openai", "gpt-5-mini")
	if cfg.Model != "openai:gpt-5-mini" {
		t.Fatalf("model=%q, want %q", cfg.Model, "openai:gpt-5-mini")
	}

	cfg.ApplyOverrides("gemini", "")
	if cfg.Model != "gemini" {
		t.Fatalf("model=%q, want %q", cfg.Model, "gemini")
	}

	cfg.ApplyOverrides("", "claude-opus-4-6")
	if cfg.Model != "claude-opus-4-6" {
		t.Fatalf("model=%q, want %q", cfg.Model, "claude-opus-4-6")
	}

	cfg.ApplyOverrides("", "")
	if cfg.Model != "claude-opus-4-6" {
		t.Fatalf("model changed unexpectedly: %q", cfg.Model)
	}
}

func TestInferProviderType(t *testing.T) {
	cases := []struct {
		name string
		typ  string
		want ProviderType
	}{
		{"anthropic", "", ProviderTypeAnthropic},
		{"openai", "", ProviderTypeOpenAI},
		{"gemini", "", ProviderTypeGemini},
		{"google", "", ProviderTypeGemini},
		{"openrouter", "", ProviderTypeOpenRouter},
		{"ollama", "", ProviderTypeOpenAICompat},
		{"work", "", ProviderTypeOpenAICompat},
		{"work", "anthropic", ProviderTypeAnthropic},
	}
	for _, tc := range cases {
		if got := InferProviderType(tc.name, tc.typ); got != tc.want {
			t.Errorf("InferProviderType(%q, %q) = %q, want %q", tc.name, tc.typ, got, tc.want)
		}
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TERM_AGENT_TEST_KEY", "sk-test")

	if got := ExpandEnv("${TERM_AGENT_TEST_KEY}"); got != "sk-test" {
		t.Errorf("ExpandEnv(${...}) = %q", got)
	}
	if got := ExpandEnv("$TERM_AGENT_TEST_KEY"); got != "sk-test" {
		t.Errorf("ExpandEnv($VAR) = %q", got)
	}
	if got := ExpandEnv("sk-literal"); got != "sk-literal" {
		t.Errorf("ExpandEnv(literal) = %q, want passthrough", got)
	}
	if got := ExpandEnv(""); got != "" {
		t.Errorf("ExpandEnv(empty) = %q", got)
	}
}
