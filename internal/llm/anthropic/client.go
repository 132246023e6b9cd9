// Package anthropic implements llm.Provider against the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agentrt/internal/config"
	"agentrt/internal/llm"
	"agentrt/internal/observability"
)

const defaultMaxTokens int64 = 1024

type Client struct {
	sdk       sdk.Client
	model     string
	maxTokens int64
}

func New(cfg config.AnthropicConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithHTTPClient(httpClient)}
	model := cfg.Model
	if model == "" {
		model = string(sdk.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model, maxTokens: defaultMaxTokens}
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Response, error) {
	log := observability.LoggerWithTrace(ctx)
	sys, converted := adaptMessages(msgs)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.pickModel(model)),
		Messages:  converted,
		System:    sys,
		Tools:     adaptTools(tools),
		MaxTokens: c.maxTokens,
	}

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", dur).Msg("anthropic_chat_error")
		return llm.Response{}, err
	}

	out := messageFromResponse(resp)
	out.Usage = llm.Usage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	return out, nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) (llm.Response, error) {
	log := observability.LoggerWithTrace(ctx)
	sys, converted := adaptMessages(msgs)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.pickModel(model)),
		Messages:  converted,
		System:    sys,
		Tools:     adaptTools(tools),
		MaxTokens: c.maxTokens,
	}

	stream := c.sdk.Messages.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var acc sdk.Message
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			log.Error().Err(err).Msg("anthropic_stream_accumulate_error")
			continue
		}
		if delta, ok := event.AsAny().(sdk.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(sdk.TextDelta); ok && h != nil {
				h.OnDelta(text.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		log.Error().Err(err).Msg("anthropic_chat_stream_error")
		return llm.Response{}, err
	}

	out := messageFromResponse(&acc)
	out.Usage = llm.Usage{
		InputTokens:  int(acc.Usage.InputTokens),
		OutputTokens: int(acc.Usage.OutputTokens),
		TotalTokens:  int(acc.Usage.InputTokens + acc.Usage.OutputTokens),
	}
	if h != nil {
		for _, tc := range out.ToolCalls {
			h.OnToolCall(tc)
		}
	}
	return out, nil
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func adaptTools(tools []llm.ToolSchema) []sdk.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := sdk.ToolInputSchemaParam{}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		out = append(out, sdk.ToolUnionParam{OfTool: &sdk.ToolParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			InputSchema: schema,
		}})
	}
	return out
}

func adaptMessages(msgs []llm.Message) ([]sdk.TextBlockParam, []sdk.MessageParam) {
	var system []sdk.TextBlockParam
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case "user":
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case "assistant":
			var blocks []sdk.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, decodeArgs(tc.Args), tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, sdk.NewAssistantMessage(blocks...))
			}
		case "tool":
			out = append(out, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolID, m.Content, false)))
		}
	}
	return system, out
}

func decodeArgs(raw []byte) any {
	var v any
	if len(raw) == 0 {
		return map[string]any{}
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}

func messageFromResponse(resp *sdk.Message) llm.Response {
	var out llm.Response
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case sdk.TextBlock:
			out.Content += v.Text
		case sdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:   v.ID,
				Name: v.Name,
				Args: v.Input,
			})
		}
	}
	return out
}
