package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samsaffron/term-agent/internal/llm"
)

const (
	liteLLMPricingURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"
	cacheTTL          = 5 * time.Minute
	tieredThreshold   = 200_000 // token threshold for tiered pricing
)

// ModelPricing holds one model's per-token costs from the LiteLLM table.
type ModelPricing struct {
	InputCostPerToken           float64 `json:"input_cost_per_token"`
	OutputCostPerToken          float64 `json:"output_cost_per_token"`
	CacheReadInputTokenCost     float64 `json:"cache_read_input_token_cost"`
	InputCostPerTokenAbove200k  float64 `json:"input_cost_per_token_above_200k_tokens"`
	OutputCostPerTokenAbove200k float64 `json:"output_cost_per_token_above_200k_tokens"`
	CacheReadCostAbove200k      float64 `json:"cache_read_input_token_cost_above_200k_tokens"`
}

// Fetcher fetches and caches model pricing from the LiteLLM table. The
// table is cached in memory for the TTL and mirrored to a temp-dir file so
// repeated runs avoid the network.
type Fetcher struct {
	mu        sync.RWMutex
	cache     map[string]ModelPricing
	lastFetch time.Time

	url      string
	cacheDir string
	client   *http.Client
}

func NewFetcher() *Fetcher {
	cacheDir := filepath.Join(os.TempDir(), "term-agent-pricing")
	os.MkdirAll(cacheDir, 0o755)

	return &Fetcher{
		cache:    make(map[string]ModelPricing),
		url:      liteLLMPricingURL,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// providerPrefixes are common prefixes to try when looking up model names.
var providerPrefixes = []string{
	"",
	"anthropic/",
	"openai/",
	"google/",
	"gemini/",
	"azure/",
	"openrouter/openai/",
}

// Lookup returns pricing for a model, fetching the table if necessary.
// A "provider:model" id is reduced to its model part first.
func (f *Fetcher) Lookup(modelName string) (ModelPricing, error) {
	if i := strings.Index(modelName, ":"); i >= 0 {
		modelName = modelName[i+1:]
	}

	if err := f.ensureLoaded(); err != nil {
		return ModelPricing{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, prefix := range providerPrefixes {
		if pricing, ok := f.cache[prefix+modelName]; ok {
			return pricing, nil
		}
	}

	// Case-insensitive partial match as a last resort.
	lower := strings.ToLower(modelName)
	for key, pricing := range f.cache {
		keyLower := strings.ToLower(key)
		if strings.Contains(keyLower, lower) || strings.Contains(lower, keyLower) {
			return pricing, nil
		}
	}

	return ModelPricing{}, fmt.Errorf("pricing not found for model: %s", modelName)
}

// Cost computes the dollar cost of a usage sample for a model. Input,
// output, and cached-input tokens are billed as separate buckets.
func (f *Fetcher) Cost(model string, u llm.Usage) (float64, error) {
	if model == "" {
		return 0, nil
	}

	pricing, err := f.Lookup(model)
	if err != nil {
		return 0, err
	}

	var cost float64
	cost += tieredCost(u.InputTokens, pricing.InputCostPerToken, pricing.InputCostPerTokenAbove200k)
	cost += tieredCost(u.OutputTokens, pricing.OutputCostPerToken, pricing.OutputCostPerTokenAbove200k)
	cost += tieredCost(u.CachedInputTokens, pricing.CacheReadInputTokenCost, pricing.CacheReadCostAbove200k)
	return cost, nil
}

func (f *Fetcher) ensureLoaded() error {
	f.mu.RLock()
	if len(f.cache) > 0 && time.Since(f.lastFetch) < cacheTTL {
		f.mu.RUnlock()
		return nil
	}
	f.mu.RUnlock()

	return f.fetch()
}

func (f *Fetcher) fetch() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring the write lock.
	if len(f.cache) > 0 && time.Since(f.lastFetch) < cacheTTL {
		return nil
	}

	cacheFile := filepath.Join(f.cacheDir, "pricing.json")
	if info, err := os.Stat(cacheFile); err == nil && time.Since(info.ModTime()) < cacheTTL {
		if data, err := os.ReadFile(cacheFile); err == nil {
			if err := f.parseData(data); err == nil {
				return nil
			}
		}
	}

	resp, err := f.client.Get(f.url)
	if err != nil {
		// A stale disk cache beats no pricing at all.
		if data, readErr := os.ReadFile(cacheFile); readErr == nil {
			if parseErr := f.parseData(data); parseErr == nil {
				return nil
			}
		}
		return fmt.Errorf("fetching pricing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching pricing: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading pricing data: %w", err)
	}

	if err := f.parseData(data); err != nil {
		return err
	}

	os.WriteFile(cacheFile, data, 0o644)
	return nil
}

// parseData parses the LiteLLM pricing JSON. Entries that are not pricing
// objects (the table carries a sample_spec) are skipped.
func (f *Fetcher) parseData(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing pricing JSON: %w", err)
	}

	parsed := make(map[string]ModelPricing, len(raw))
	for key, value := range raw {
		var pricing ModelPricing
		if err := json.Unmarshal(value, &pricing); err != nil {
			continue
		}
		parsed[key] = pricing
	}

	f.cache = parsed
	f.lastFetch = time.Now()
	return nil
}

// tieredCost prices a token count with the 200k threshold applied when a
// tiered rate exists.
func tieredCost(tokens int, basePrice, tieredPrice float64) float64 {
	if tokens <= 0 {
		return 0
	}

	if tokens > tieredThreshold && tieredPrice > 0 {
		below := min(tokens, tieredThreshold)
		above := tokens - tieredThreshold

		cost := float64(above) * tieredPrice
		if basePrice > 0 {
			cost += float64(below) * basePrice
		}
		return cost
	}

	if basePrice > 0 {
		return float64(tokens) * basePrice
	}
	return 0
}
