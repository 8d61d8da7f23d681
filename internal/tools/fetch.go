package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/samsaffron/term-agent/internal/llm"
)

// URLMarkerPrefix marks fetch results so the display can separate the
// source URL from the page text.
const URLMarkerPrefix = "[URL]: "

const (
	fetchUserAgent = "term-agent/1.0"
	// maxFetchChars caps the extracted text returned to the model.
	maxFetchChars = 1000000
	// maxFetchBody caps how much of the raw response body is read.
	maxFetchBody = 10 << 20
)

// FetchTool fetches a URL and returns its content as plain text.
// HTML responses are reduced to their visible text.
type FetchTool struct {
	client *http.Client
}

// NewFetchTool creates a new FetchTool.
func NewFetchTool() *FetchTool {
	return &FetchTool{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchArgs are the arguments for fetch.
type FetchArgs struct {
	URL string `json:"url"`
}

func (t *FetchTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        FetchToolName,
		Description: "Fetch content from a URL. HTML pages are converted to plain text.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "URL to fetch (http or https)",
				},
			},
			"required":             []string{"url"},
			"additionalProperties": false,
		},
	}
}

func (t *FetchTool) Preview(args json.RawMessage) string {
	var a FetchArgs
	if err := json.Unmarshal(args, &a); err != nil || a.URL == "" {
		return ""
	}
	return previewEllipsis(a.URL, 60)
}

func (t *FetchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a FetchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.URL == "" {
		return "", NewToolError(ErrInvalidParams, "url is required")
	}
	warning := WarnUnknownParams(args, "url")

	parsed, err := url.Parse(a.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", NewToolErrorf(ErrInvalidParams, "invalid URL: %s", a.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return "", NewToolErrorf(ErrFetchFailed, "fetching %s: %v", a.URL, err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", NewToolErrorf(ErrFetchFailed, "fetching %s: %v", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", NewToolErrorf(ErrFetchFailed, "fetching %s: HTTP %d", a.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return "", NewToolErrorf(ErrFetchFailed, "reading %s: %v", a.URL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	text := string(body)
	if isHTMLContent(contentType, body) {
		if extracted, err := extractText(strings.NewReader(text)); err == nil {
			text = extracted
		}
	} else if isBinaryContent(body) {
		return "", NewToolErrorf(ErrUnsupportedFormat, "%s returned binary content (%s)", a.URL, contentType)
	}

	truncated := false
	if len(text) > maxFetchChars {
		text = text[:maxFetchChars]
		truncated = true
	}

	result := warning + URLMarkerPrefix + a.URL + "\n\n" + text
	if truncated {
		result += "\n\n[Content truncated due to size limitations]"
	}
	return result, nil
}

func isHTMLContent(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	sample := body
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return strings.Contains(http.DetectContentType(sample), "html")
}

// extractText reduces an HTML document to its visible text. Script and
// style contents are dropped, each text node lands on its own line, and
// runs of whitespace inside a line collapse to line breaks.
func extractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var chunks []string
	for _, line := range strings.Split(sb.String(), "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n"), nil
}
