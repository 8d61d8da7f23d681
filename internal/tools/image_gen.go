package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/image"
	"github.com/samsaffron/term-agent/internal/llm"
)

// GeneratedImagePrefix starts the first line of every image_generate
// result. The command layer scans settled results for it to find the
// saved file and render it inline after the turn.
const GeneratedImagePrefix = "Generated image saved to: "

// DefaultImageOutputDir is used when image.output_dir is not configured.
const DefaultImageOutputDir = "~/Pictures/term-agent"

// ImageGenerateTool implements the image_generate tool.
type ImageGenerateTool struct {
	config *config.Config
}

// NewImageGenerateTool creates a new ImageGenerateTool.
func NewImageGenerateTool(cfg *config.Config) *ImageGenerateTool {
	return &ImageGenerateTool{config: cfg}
}

// ImageGenerateArgs are the arguments for image_generate.
type ImageGenerateArgs struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

func (t *ImageGenerateTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        ImageGenerateToolName,
		Description: "Generate an image from a text prompt. Use only when the user explicitly asks for an image.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "Description of the image to generate",
				},
				"aspect_ratio": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"square", "landscape", "portrait"},
					"description": "Image shape (default: square)",
				},
			},
			"required":             []string{"prompt"},
			"additionalProperties": false,
		},
	}
}

func (t *ImageGenerateTool) Preview(args json.RawMessage) string {
	var a ImageGenerateArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Prompt == "" {
		return ""
	}
	return fmt.Sprintf("Generating image: %s", previewEllipsis(a.Prompt, 50))
}

func (t *ImageGenerateTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a ImageGenerateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Prompt == "" {
		return "", NewToolError(ErrInvalidParams, "prompt is required")
	}
	switch a.AspectRatio {
	case "", "square", "landscape", "portrait":
	default:
		return "", NewToolErrorf(ErrInvalidParams, "invalid aspect_ratio: %s (valid: square, landscape, portrait)", a.AspectRatio)
	}
	warning := WarnUnknownParams(args, "prompt", "aspect_ratio")

	if t.config == nil {
		return "", NewToolError(ErrImageGenFailed, "image generation not configured")
	}

	apiKey := t.openAIKey()
	if apiKey == "" {
		return "", NewToolError(ErrImageGenFailed, "OPENAI_API_KEY not configured. Set the environment variable or providers.openai.api_key in config")
	}

	client := image.NewClient(apiKey, t.config.Image.Model)
	result, err := client.Generate(ctx, image.GenerateRequest{
		Prompt:      a.Prompt,
		AspectRatio: a.AspectRatio,
	})
	if err != nil {
		return "", NewToolErrorf(ErrImageGenFailed, "image generation failed: %v", err)
	}

	outputDir := t.config.Image.OutputDir
	if outputDir == "" {
		outputDir = DefaultImageOutputDir
	}
	path, err := image.SaveImage(result.Data, outputDir, a.Prompt)
	if err != nil {
		return "", NewToolErrorf(ErrExecutionFailed, "failed to save image: %v", err)
	}

	out := fmt.Sprintf("%s%s\nPrompt: %s\nFormat: %s\nSize: %d bytes",
		GeneratedImagePrefix, path, a.Prompt, result.MimeType, len(result.Data))
	return warning + out, nil
}

func (t *ImageGenerateTool) openAIKey() string {
	if p, ok := t.config.Providers["openai"]; ok {
		if key := config.ExpandEnv(p.APIKey); key != "" {
			return key
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
