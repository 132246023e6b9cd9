package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// SearchTool queries a SearXNG instance and returns result links, falling
// back to HTML link scraping when the JSON API is unavailable.
type SearchTool struct {
	http       *http.Client
	searxngURL string
}

func NewSearchTool(searxngURL string) *SearchTool {
	return &SearchTool{
		http:       &http.Client{Timeout: 12 * time.Second},
		searxngURL: strings.TrimSuffix(searxngURL, "/"),
	}
}

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "Searches the web via SearXNG and returns top result titles and URLs."
}

func (t *SearchTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":       map[string]any{"type": "string"},
			"max_results": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
		},
		"required": []string{"query"},
	}
}

type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type searchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (t *SearchTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var args searchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.MaxResults <= 0 || args.MaxResults > 10 {
		args.MaxResults = 5
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	results, err := t.searchJSON(ctx, query, args.MaxResults)
	if err == nil && len(results) > 0 {
		return results, nil
	}
	return t.searchHTML(ctx, query, args.MaxResults)
}

func (t *SearchTool) searchJSON(ctx context.Context, query string, max int) ([]SearchResult, error) {
	v := url.Values{"q": {query}, "format": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.searxngURL+"/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searxng http %d", resp.StatusCode)
	}
	var parsed struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, max)
	for i, r := range parsed.Results {
		if i >= max {
			break
		}
		out = append(out, SearchResult{Title: strings.TrimSpace(r.Title), URL: r.URL})
	}
	return out, nil
}

func (t *SearchTool) searchHTML(ctx context.Context, query string, max int) ([]SearchResult, error) {
	v := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.searxngURL+"/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searxng http %d", resp.StatusCode)
	}
	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := make([]SearchResult, 0, max)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !strings.Contains(attr.Val, "http") {
					continue
				}
				if _, dup := seen[attr.Val]; dup {
					continue
				}
				seen[attr.Val] = struct{}{}
				title := attr.Val
				if u, err := url.Parse(attr.Val); err == nil && u.Host != "" {
					title = u.Host + u.Path
				}
				out = append(out, SearchResult{Title: title, URL: attr.Val})
			}
		}
		for c := n.FirstChild; c != nil && len(out) < max; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}
