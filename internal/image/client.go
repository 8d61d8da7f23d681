// Package image generates images through the OpenAI images API and
// renders them inline in capable terminals.
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	generateEndpoint = "https://api.openai.com/v1/images/generations"

	// DefaultModel is used when image.model is not configured.
	DefaultModel = "gpt-image-1"

	clientTimeout = 10 * time.Minute
)

// Result contains the generated image and metadata.
type Result struct {
	Data     []byte
	MimeType string
}

// GenerateRequest contains parameters for image generation.
type GenerateRequest struct {
	Prompt      string
	AspectRatio string // "square", "landscape" or "portrait"
}

// Client generates images through the OpenAI images API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

// NewClient creates a Client. An empty model selects DefaultModel.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: generateEndpoint,
		http:     &http.Client{Timeout: clientTimeout},
	}
}

// Generate creates a new image from a text prompt.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	apiReq := apiGenerateRequest{
		Model:        c.model,
		Prompt:       req.Prompt,
		Size:         sizeFromAspectRatio(req.AspectRatio),
		Quality:      "auto",
		OutputFormat: "png",
		N:            1,
	}

	jsonBody, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("no image data in response")
	}

	// Prefer base64 data, fall back to a hosted URL
	if apiResp.Data[0].B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(apiResp.Data[0].B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return &Result{Data: data, MimeType: "image/png"}, nil
	}
	if apiResp.Data[0].URL != "" {
		return c.fetchImageURL(ctx, apiResp.Data[0].URL)
	}

	return nil, fmt.Errorf("no image data in response (neither b64_json nor url)")
}

func (c *Client) fetchImageURL(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image URL request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image URL returned status %d: %s", resp.StatusCode, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image from URL: %w", err)
	}
	return &Result{Data: data, MimeType: "image/png"}, nil
}

// OpenAI API types
type apiGenerateRequest struct {
	Model        string `json:"model"`
	Prompt       string `json:"prompt"`
	Size         string `json:"size"`
	Quality      string `json:"quality"`
	OutputFormat string `json:"output_format"`
	N            int    `json:"n"`
}

type apiResponse struct {
	Data  []apiImageData `json:"data"`
	Error *apiError      `json:"error,omitempty"`
}

type apiImageData struct {
	B64JSON string `json:"b64_json,omitempty"`
	URL     string `json:"url,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// sizeFromAspectRatio maps an aspect ratio name to an OpenAI size string.
// gpt-image-1 supports exactly three sizes: 1024x1024, 1536x1024 and
// 1024x1536.
func sizeFromAspectRatio(ar string) string {
	switch ar {
	case "landscape":
		return "1536x1024"
	case "portrait":
		return "1024x1536"
	default:
		return "1024x1024"
	}
}
