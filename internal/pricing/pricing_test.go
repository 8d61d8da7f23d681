package pricing

import (
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samsaffron/term-agent/internal/llm"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func seededFetcher(cache map[string]ModelPricing) *Fetcher {
	return &Fetcher{
		cache:     cache,
		lastFetch: time.Now(),
	}
}

func TestLookup(t *testing.T) {
	fetcher := seededFetcher(map[string]ModelPricing{
		"claude-sonnet-4":      {InputCostPerToken: 3e-06},
		"openai/gpt-5":         {InputCostPerToken: 1.25e-06},
		"vertex/gemini-2.5-xl": {InputCostPerToken: 2e-06},
	})

	tests := []struct {
		name      string
		model     string
		wantInput float64
	}{
		{name: "exact match", model: "claude-sonnet-4", wantInput: 3e-06},
		{name: "provider prefix", model: "gpt-5", wantInput: 1.25e-06},
		{name: "partial match", model: "gemini-2.5-xl", wantInput: 2e-06},
		{name: "provider colon form", model: "anthropic:claude-sonnet-4", wantInput: 3e-06},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricing, err := fetcher.Lookup(tt.model)
			if err != nil {
				t.Fatalf("Lookup(%q) error: %v", tt.model, err)
			}
			if pricing.InputCostPerToken != tt.wantInput {
				t.Errorf("input cost = %v, want %v", pricing.InputCostPerToken, tt.wantInput)
			}
		})
	}
}

func TestLookupNotFound(t *testing.T) {
	fetcher := seededFetcher(map[string]ModelPricing{
		"claude-sonnet-4": {InputCostPerToken: 3e-06},
	})

	_, err := fetcher.Lookup("no-such-model")
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
	if !strings.Contains(err.Error(), "pricing not found") {
		t.Errorf("error = %v, want pricing not found", err)
	}
}

func TestFetchFromServer(t *testing.T) {
	const table = `{
		"sample_spec": "not a pricing entry",
		"claude-sonnet-4": {"input_cost_per_token": 3e-06, "output_cost_per_token": 1.5e-05},
		"openai/gpt-5": {"input_cost_per_token": 1.25e-06, "output_cost_per_token": 1e-05}
	}`

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(table))
	}))
	defer server.Close()

	fetcher := &Fetcher{
		cache:    make(map[string]ModelPricing),
		url:      server.URL,
		cacheDir: t.TempDir(),
		client:   server.Client(),
	}

	pricing, err := fetcher.Lookup("gpt-5")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if pricing.OutputCostPerToken != 1e-05 {
		t.Errorf("output cost = %v, want 1e-05", pricing.OutputCostPerToken)
	}

	// The non-object entry is skipped, not kept as a zero-cost model.
	if _, err := fetcher.Lookup("sample_spec"); err == nil {
		t.Error("expected sample_spec to be absent from the table")
	}

	// A second lookup within the TTL hits the in-memory cache.
	if _, err := fetcher.Lookup("claude-sonnet-4"); err != nil {
		t.Fatalf("cached Lookup error: %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}

	if _, err := os.Stat(filepath.Join(fetcher.cacheDir, "pricing.json")); err != nil {
		t.Errorf("disk cache not written: %v", err)
	}
}

func TestFetchUsesFreshDiskCache(t *testing.T) {
	cacheDir := t.TempDir()
	table := `{"claude-sonnet-4": {"input_cost_per_token": 3e-06}}`
	if err := os.WriteFile(filepath.Join(cacheDir, "pricing.json"), []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := &Fetcher{
		cache:    make(map[string]ModelPricing),
		url:      "http://127.0.0.1:1",
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: time.Second},
	}

	pricing, err := fetcher.Lookup("claude-sonnet-4")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if pricing.InputCostPerToken != 3e-06 {
		t.Errorf("input cost = %v, want 3e-06", pricing.InputCostPerToken)
	}
}

func TestFetchFallsBackToStaleDiskCache(t *testing.T) {
	cacheDir := t.TempDir()
	cacheFile := filepath.Join(cacheDir, "pricing.json")
	table := `{"claude-sonnet-4": {"input_cost_per_token": 3e-06}}`
	if err := os.WriteFile(cacheFile, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-time.Hour)
	if err := os.Chtimes(cacheFile, stale, stale); err != nil {
		t.Fatal(err)
	}

	fetcher := &Fetcher{
		cache:    make(map[string]ModelPricing),
		url:      "http://127.0.0.1:1",
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: time.Second},
	}

	pricing, err := fetcher.Lookup("claude-sonnet-4")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if pricing.InputCostPerToken != 3e-06 {
		t.Errorf("input cost = %v, want 3e-06", pricing.InputCostPerToken)
	}
}

func TestCost(t *testing.T) {
	fetcher := seededFetcher(map[string]ModelPricing{
		"claude-sonnet-4": {
			InputCostPerToken:       1e-06,
			OutputCostPerToken:      2e-06,
			CacheReadInputTokenCost: 5e-07,
		},
	})

	usage := llm.Usage{InputTokens: 1000, OutputTokens: 500, CachedInputTokens: 200}
	cost, err := fetcher.Cost("claude-sonnet-4", usage)
	if err != nil {
		t.Fatalf("Cost error: %v", err)
	}
	if want := 0.0021; !closeTo(cost, want) {
		t.Errorf("cost = %v, want %v", cost, want)
	}
}

func TestCostEmptyModel(t *testing.T) {
	fetcher := seededFetcher(map[string]ModelPricing{})

	cost, err := fetcher.Cost("", llm.Usage{InputTokens: 1000})
	if err != nil {
		t.Fatalf("Cost error: %v", err)
	}
	if cost != 0 {
		t.Errorf("cost = %v, want 0", cost)
	}
}

func TestCostUnknownModel(t *testing.T) {
	fetcher := seededFetcher(map[string]ModelPricing{})

	if _, err := fetcher.Cost("mystery", llm.Usage{InputTokens: 1}); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestTieredCost(t *testing.T) {
	tests := []struct {
		name        string
		tokens      int
		basePrice   float64
		tieredPrice float64
		want        float64
	}{
		{name: "zero tokens", tokens: 0, basePrice: 1e-06, tieredPrice: 2e-06, want: 0},
		{name: "below threshold", tokens: 1000, basePrice: 2e-06, want: 0.002},
		{name: "above threshold with tier", tokens: 300_000, basePrice: 1e-06, tieredPrice: 2e-06, want: 0.4},
		{name: "above threshold without tier", tokens: 300_000, basePrice: 1e-06, want: 0.3},
		{name: "tier only", tokens: 300_000, tieredPrice: 2e-06, want: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tieredCost(tt.tokens, tt.basePrice, tt.tieredPrice)
			if !closeTo(got, tt.want) {
				t.Errorf("tieredCost(%d, %v, %v) = %v, want %v",
					tt.tokens, tt.basePrice, tt.tieredPrice, got, tt.want)
			}
		})
	}
}
