package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/samsaffron/term-agent/internal/config"
)

const openrouterBaseURL = "https://openrouter.ai/api/v1"

// ParseModelID parses a model id into provider and model.
//
//	"anthropic:claude-sonnet-4-6" -> ("anthropic", "claude-sonnet-4-6")
//	"openai"                      -> ("openai", "")
//	"gpt-5.2"                     -> (default provider, "gpt-5.2")
//
// A bare name counts as a provider when it matches a configured or built-in
// provider; otherwise it is treated as a model for the default provider.
func ParseModelID(raw string, cfg *config.Config) (string, string) {
	raw = strings.TrimSpace(raw)
	if parts := strings.SplitN(raw, ":", 2); len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	if cfg != nil {
		if _, ok := cfg.Providers[raw]; ok {
			return raw, ""
		}
	}
	for _, name := range GetBuiltInProviderNames() {
		if raw == name {
			return raw, ""
		}
	}

	provider := "openai"
	if cfg != nil && cfg.DefaultProvider != "" {
		provider = cfg.DefaultProvider
	}
	return provider, raw
}

// NewProvider creates the default provider from the config.
// Providers are wrapped with automatic retry for rate limits (429) and
// transient errors.
func NewProvider(cfg *config.Config) (Provider, error) {
	return NewProviderForModel(cfg, cfg.Model)
}

// NewProviderForModel creates a provider for an explicit model id, which may
// name a provider, a model, or both. Useful for per-command overrides.
func NewProviderForModel(cfg *config.Config, modelID string) (Provider, error) {
	name, model := ParseModelID(modelID, cfg)

	var providerCfg config.ProviderConfig
	if cfg != nil {
		providerCfg = cfg.Providers[name]
	}
	if model == "" {
		model = providerCfg.Model
	}

	provider, err := createProvider(name, model, &providerCfg)
	if err != nil {
		return nil, err
	}
	return WrapWithRetry(provider, DefaultRetryConfig()), nil
}

// createProvider builds the underlying provider without the retry wrapper.
func createProvider(name, model string, cfg *config.ProviderConfig) (Provider, error) {
	apiKey := config.ExpandEnv(cfg.APIKey)

	switch config.InferProviderType(name, cfg.Type) {
	case config.ProviderTypeAnthropic:
		return NewAnthropicProvider(apiKey, model)

	case config.ProviderTypeOpenAI:
		return NewOpenAIProvider(apiKey, model)

	case config.ProviderTypeGemini:
		return NewGeminiProvider(apiKey, model)

	case config.ProviderTypeOpenRouter:
		if apiKey == "" {
			apiKey = os.Getenv("OPENROUTER_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openrouter API key not set (set OPENROUTER_API_KEY or providers.%s.api_key)", name)
		}
		headers := map[string]string{
			"HTTP-Referer": cfg.AppURL,
			"X-Title":      cfg.AppTitle,
		}
		return NewOpenAICompatProviderWithHeaders(openrouterBaseURL, apiKey, model, "OpenRouter", headers), nil

	case config.ProviderTypeOpenAICompat:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("provider %q requires base_url", name)
		}
		displayName := strings.ToUpper(name[:1]) + name[1:]
		return NewOpenAICompatProvider(baseURL, apiKey, model, displayName), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
