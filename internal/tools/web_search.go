package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/samsaffron/term-agent/internal/llm"
)

const (
	searchEndpoint         = "https://html.duckduckgo.com/html/"
	defaultSearchResults   = 3
	maxSearchResults       = 10
	searchResultLinkClass  = "result__a"
	searchRedirectURLParam = "uddg"
	searchRequestUserAgent = "Mozilla/5.0 (compatible; term-agent/1.0)"
)

// WebSearchTool searches the web via the DuckDuckGo HTML endpoint and
// returns a numbered list of result titles and URLs.
type WebSearchTool struct {
	client   *http.Client
	endpoint string
}

// NewWebSearchTool creates a new WebSearchTool.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: searchEndpoint,
	}
}

// WebSearchArgs are the arguments for web_search.
type WebSearchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchResult struct {
	Title string
	Href  string
}

func (t *WebSearchTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        WebSearchToolName,
		Description: "Search the web. Returns a numbered list of result titles and URLs.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (default: 3)",
				},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
	}
}

func (t *WebSearchTool) Preview(args json.RawMessage) string {
	var a WebSearchArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Query == "" {
		return ""
	}
	return previewEllipsis(a.Query, 50)
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a WebSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Query == "" {
		return "", NewToolError(ErrInvalidParams, "query is required")
	}
	warning := WarnUnknownParams(args, "query", "max_results")

	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	reqURL := t.endpoint + "?q=" + url.QueryEscape(a.Query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", NewToolErrorf(ErrFetchFailed, "search request failed: %v", err)
	}
	req.Header.Set("User-Agent", searchRequestUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", NewToolErrorf(ErrFetchFailed, "search request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", NewToolErrorf(ErrFetchFailed, "search failed: HTTP %d", resp.StatusCode)
	}

	results, err := parseSearchResults(resp.Body, maxResults)
	if err != nil {
		return "", NewToolErrorf(ErrFetchFailed, "parsing search results: %v", err)
	}
	if len(results) == 0 {
		return warning + fmt.Sprintf("No results found for query: %s", a.Query), nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.Href)
	}
	return warning + sb.String(), nil
}

// parseSearchResults pulls result links out of a DuckDuckGo HTML page.
func parseSearchResults(r io.Reader, max int) ([]searchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []searchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, searchResultLinkClass) {
			href := decodeSearchRedirect(attrVal(n, "href"))
			title := nodeText(n)
			if href != "" && title != "" {
				results = append(results, searchResult{Title: title, Href: href})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// decodeSearchRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect
// links back to the target URL.
func decodeSearchRedirect(href string) string {
	if href == "" {
		return ""
	}
	raw := href
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return href
	}
	if target := u.Query().Get(searchRedirectURLParam); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
