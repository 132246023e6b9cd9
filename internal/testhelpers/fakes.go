// Package testhelpers provides small fakes shared by this module's package
// tests: a scriptable ChatModel and an httptest server wrapper.
package testhelpers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"agentrt/internal/llm"
)

// FakeProvider is a scriptable llm.Provider. Responses is consumed in order
// by successive Chat calls; the last entry repeats once exhausted. A nil
// Err is the common case; set it to force every call to fail.
type FakeProvider struct {
	Responses []llm.Response
	Err       error

	calls int
	Seen  [][]llm.Message // records each call's message list, in order
}

func (f *FakeProvider) Chat(_ context.Context, msgs []llm.Message, _ []llm.ToolSchema, _ string) (llm.Response, error) {
	f.Seen = append(f.Seen, msgs)
	if f.Err != nil {
		return llm.Response{}, f.Err
	}
	if len(f.Responses) == 0 {
		return llm.Response{}, nil
	}
	idx := f.calls
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.calls++
	return f.Responses[idx], nil
}

func (f *FakeProvider) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) (llm.Response, error) {
	resp, err := f.Chat(ctx, msgs, tools, model)
	if err != nil {
		return resp, err
	}
	if resp.Content != "" {
		h.OnDelta(resp.Content)
	}
	for _, tc := range resp.ToolCalls {
		h.OnToolCall(tc)
	}
	return resp, nil
}

// FakeTool is a minimal tools.Tool for node-level tests.
type FakeTool struct {
	NameVal   string
	Result    any
	Err       error
	ArgsSeen  json.RawMessage
	CallCount int
}

func (t *FakeTool) Name() string               { return t.NameVal }
func (t *FakeTool) Description() string        { return "fake tool for tests" }
func (t *FakeTool) JSONSchema() map[string]any  { return map[string]any{"type": "object"} }
func (t *FakeTool) Call(_ context.Context, raw json.RawMessage) (any, error) {
	t.CallCount++
	t.ArgsSeen = raw
	if t.Err != nil {
		return nil, t.Err
	}
	return t.Result, nil
}

// NewTestServer returns an httptest.Server for the given handler func.
func NewTestServer(handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(handler))
}
