package llm

import (
	"slices"
	"sort"
	"strings"

	"github.com/samsaffron/term-agent/internal/cache"
	"github.com/samsaffron/term-agent/internal/config"
)

// ProviderModels contains the curated list of common models per provider type.
var ProviderModels = map[string][]string{
	"anthropic": {
		"claude-sonnet-4-6",
		"claude-opus-4-6",
		"claude-haiku-4-5",
	},
	"openai": {
		"gpt-5.2",
		"gpt-5.1",
		"gpt-5",
		"gpt-5-mini",
		"gpt-5-nano",
		"o3-mini",
	},
	"gemini": {
		"gemini-3-pro-preview",
		"gemini-3-flash-preview",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
	},
	"openrouter": {
		"x-ai/grok-code-fast-1",
		"moonshotai/kimi-k2",
		"z-ai/glm-4.7",
	},
}

// defaultEffortVariants are the standard effort levels for reasoning-capable models.
var defaultEffortVariants = []string{"low", "medium", "high", "xhigh"}

// EffortVariantsFor returns the effort suffixes for a model, or nil if none.
// All GPT-5 family models are reasoning-capable and support effort levels.
func EffortVariantsFor(model string) []string {
	if strings.HasPrefix(model, "gpt-5") {
		return defaultEffortVariants
	}
	return nil
}

// ExpandWithEffortVariants expands a model list by appending effort variants
// after each base model. Used for tab-completion where all variants are needed.
func ExpandWithEffortVariants(models []string) []string {
	var expanded []string
	for _, m := range models {
		expanded = append(expanded, m)
		for _, v := range EffortVariantsFor(m) {
			expanded = append(expanded, m+"-"+v)
		}
	}
	return expanded
}

// GetBuiltInProviderNames returns the built-in provider type names.
func GetBuiltInProviderNames() []string {
	return []string{"anthropic", "gemini", "openai", "openrouter"}
}

// GetProviderNames returns valid provider names from config plus built-in types.
// If cfg is nil, returns only built-in provider names.
func GetProviderNames(cfg *config.Config) []string {
	names := make(map[string]bool)
	for _, name := range GetBuiltInProviderNames() {
		names[name] = true
	}
	if cfg != nil {
		for name := range cfg.Providers {
			names[name] = true
		}
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// GetProviderCompletions returns completions for flags taking "provider:model".
// Before the colon it offers provider names; after it, models for that provider.
func GetProviderCompletions(toComplete string, cfg *config.Config) []string {
	if strings.Contains(toComplete, ":") {
		parts := strings.SplitN(toComplete, ":", 2)
		provider := parts[0]
		modelPrefix := parts[1]

		var models []string
		var configModel string
		if cfg != nil {
			if providerCfg, ok := cfg.Providers[provider]; ok {
				configModel = providerCfg.Model
				models = providerCfg.Models
			}
		}
		if len(models) == 0 {
			providerType := string(config.InferProviderType(provider, ""))
			var ok bool
			models, ok = ProviderModels[providerType]
			if !ok {
				models = ProviderModels[provider]
			}
		}
		if len(models) == 0 && configModel != "" {
			models = []string{configModel}
		}

		// A recent `models --refresh` run caches the provider's live listing,
		// which covers far more ids than the curated set.
		for _, cached := range cache.FreshModels(provider) {
			if !slices.Contains(models, cached) {
				models = append(models, cached)
			}
		}

		models = ExpandWithEffortVariants(models)

		var completions []string
		for _, model := range models {
			if strings.HasPrefix(model, modelPrefix) {
				completions = append(completions, provider+":"+model)
			}
		}
		return completions
	}

	var completions []string
	for _, name := range GetProviderNames(cfg) {
		if strings.HasPrefix(name, toComplete) {
			completions = append(completions, name)
		}
	}
	return completions
}

// chatModelDenyPrefixes and chatModelDenySubstrings filter the OpenAI model
// list down to ids usable with chat completions. The /v1/models endpoint
// returns many model types (embeddings, images, audio) that would error at
// request time.
var chatModelDenyPrefixes = []string{
	"whisper-",
	"tts-",
	"gpt-image-",
	"omni-moderation-",
	"text-embedding-",
	"text-search-",
	"dall-e-",
}

var chatModelDenySubstrings = []string{
	"embedding",
	"moderation",
	"realtime",
	"audio",
	"vision-preview",
}

// ListOpenAIChatModels filters a model listing to chat-capable entries,
// sorted by id for stable display.
func ListOpenAIChatModels(models []ModelInfo) []ModelInfo {
	var out []ModelInfo
	for _, m := range models {
		if !isChatModelID(m.ID) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func isChatModelID(id string) bool {
	for _, prefix := range chatModelDenyPrefixes {
		if strings.HasPrefix(id, prefix) {
			return false
		}
	}
	for _, sub := range chatModelDenySubstrings {
		if strings.Contains(id, sub) {
			return false
		}
	}
	// Keep known chat families, conservatively.
	return strings.HasPrefix(id, "gpt-") || strings.HasPrefix(id, "o")
}
