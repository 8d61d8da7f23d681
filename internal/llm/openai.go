package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openaiBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider using the OpenAI API. Streaming rides
// the shared chat-completions client; model listing uses the official SDK.
type OpenAIProvider struct {
	*OpenAICompatProvider
	client *openai.Client
}

// parseModelEffort extracts the reasoning-effort suffix from a model name.
// "gpt-5.2-high" -> ("gpt-5.2", "high")
// "gpt-5.2" -> ("gpt-5.2", "")
func parseModelEffort(model string) (string, string) {
	// Longest suffixes first so "-high" never matches inside "-xhigh"
	suffixes := []string{"xhigh", "medium", "high", "low"}
	for _, effort := range suffixes {
		suffix := "-" + effort
		if strings.HasSuffix(model, suffix) {
			return strings.TrimSuffix(model, suffix), effort
		}
	}
	return model, ""
}

// NewOpenAIProvider creates an OpenAI provider. The API key comes from the
// explicit argument or the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key not set (set OPENAI_API_KEY or providers.openai.api_key)")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		OpenAICompatProvider: NewOpenAICompatProvider(openaiBaseURL, apiKey, model, "OpenAI"),
		client:               &client,
	}, nil
}

// ListModels returns available models from OpenAI via the SDK.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:      m.ID,
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}
