// Package llmtool exposes a secondary, smaller-scope model call as a tool,
// letting the primary agent delegate a sub-task (e.g. rewriting a passage)
// without growing its own context.
package llmtool

import (
	"context"
	"encoding/json"
	"fmt"

	"agentrt/internal/llm"
)

type Tool struct {
	provider llm.Provider
	model    string
}

func New(provider llm.Provider, model string) *Tool {
	return &Tool{provider: provider, model: model}
}

func (t *Tool) Name() string { return "llm_complete" }

func (t *Tool) Description() string {
	return "Delegates a focused sub-task to a language model and returns its text completion."
}

func (t *Tool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{"type": "string"},
		},
		"required": []string{"prompt"},
	}
}

type args struct {
	Prompt string `json:"prompt"`
}

func (t *Tool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var a args
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	resp, err := t.provider.Chat(ctx, []llm.Message{{Role: "user", Content: a.Prompt}}, nil, t.model)
	if err != nil {
		return nil, err
	}
	return map[string]any{"content": resp.Content}, nil
}
