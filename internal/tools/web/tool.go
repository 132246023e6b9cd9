package web

import (
	"context"
	"encoding/json"
	"fmt"
)

// FetchTool exposes Fetcher as a callable tool.
type FetchTool struct {
	fetcher *Fetcher
}

func NewFetchTool() *FetchTool {
	return &FetchTool{fetcher: NewFetcher()}
}

func (t *FetchTool) Name() string { return "web_fetch" }

func (t *FetchTool) Description() string {
	return "Fetches a URL and returns its main readable content as Markdown."
}

func (t *FetchTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "description": "the URL to fetch"},
		},
		"required": []string{"url"},
	}
}

type fetchArgs struct {
	URL string `json:"url"`
}

func (t *FetchTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var args fetchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	res, err := t.fetcher.Fetch(ctx, args.URL)
	if err != nil {
		return nil, err
	}
	return res, nil
}
