package cmd

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/samsaffron/term-agent/internal/config"
)

func TestCuratedModels_ConfigWins(t *testing.T) {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"work": {Models: []string{"llama-3.3-70b", "qwen-2.5-coder"}},
		},
	}

	models := curatedModels("work", cfg)
	if !slices.Equal(models, []string{"llama-3.3-70b", "qwen-2.5-coder"}) {
		t.Errorf("curatedModels(work) = %v, want configured list", models)
	}
}

func TestCuratedModels_BuiltinFallback(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{}}

	models := curatedModels("anthropic", cfg)
	if len(models) == 0 {
		t.Fatal("curatedModels(anthropic) returned nothing")
	}
	if !slices.Contains(models, "claude-sonnet-4-6") {
		t.Errorf("curatedModels(anthropic) = %v, missing claude-sonnet-4-6", models)
	}
}

func TestCuratedModels_UnknownProvider(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{}}

	if models := curatedModels("mystery", cfg); len(models) != 0 {
		t.Errorf("curatedModels(mystery) = %v, want empty", models)
	}
}

func TestPrintCuratedModels(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{}}

	var buf bytes.Buffer
	if err := printCuratedModels(&buf, "openai", cfg); err != nil {
		t.Fatalf("printCuratedModels() error = %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "gpt-5.2") {
		t.Errorf("missing curated model:\n%s", out)
	}
	// GPT-5 family models advertise their effort levels.
	if !strings.Contains(out, "effort: low, medium, high, xhigh") {
		t.Errorf("missing effort variants:\n%s", out)
	}
}

func TestPrintCuratedModels_UnknownProviderErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := printCuratedModels(&buf, "mystery", &config.Config{}); err == nil {
		t.Fatal("expected error for provider without curated models")
	}
}
