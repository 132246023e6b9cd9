// Package google implements llm.Provider against Gemini via google.golang.org/genai.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"agentrt/internal/config"
	"agentrt/internal/llm"
	"agentrt/internal/observability"
)

type Client struct {
	client *genai.Client
	model  string
}

func New(cfg config.GoogleConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Response, error) {
	log := observability.LoggerWithTrace(ctx)
	effectiveModel := c.pickModel(model)

	contents := toContents(msgs)
	toolDecls, toolCfg := adaptTools(tools)

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, effectiveModel, contents, &genai.GenerateContentConfig{
		Tools:      toolDecls,
		ToolConfig: toolCfg,
	})
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", dur).Msg("google_chat_error")
		return llm.Response{}, err
	}
	return messageFromResponse(resp)
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) (llm.Response, error) {
	log := observability.LoggerWithTrace(ctx)
	effectiveModel := c.pickModel(model)

	contents := toContents(msgs)
	toolDecls, toolCfg := adaptTools(tools)

	stream := c.client.Models.GenerateContentStream(ctx, effectiveModel, contents, &genai.GenerateContentConfig{
		Tools:      toolDecls,
		ToolConfig: toolCfg,
	})

	var out llm.Response
	for chunk, err := range stream {
		if err != nil {
			log.Error().Err(err).Str("model", effectiveModel).Msg("google_chat_stream_error")
			return llm.Response{}, err
		}
		msg, err := messageFromResponse(chunk)
		if err != nil {
			continue
		}
		if msg.Content != "" {
			out.Content += msg.Content
			if h != nil {
				h.OnDelta(msg.Content)
			}
		}
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, tc)
			if h != nil {
				h.OnToolCall(tc)
			}
		}
		out.Usage = msg.Usage
	}
	return out, nil
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func toContents(msgs []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "user":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "assistant":
			parts := []*genai.Part{}
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, decodeArgs(tc.Args)))
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case "tool":
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{genai.NewPartFromFunctionResponse(m.ToolID, map[string]any{"result": m.Content})},
			})
		}
	}
	return contents
}

func adaptTools(schemas []llm.ToolSchema) ([]*genai.Tool, *genai.ToolConfig) {
	if len(schemas) == 0 {
		return nil, nil
	}
	fd := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		fd = append(fd, &genai.FunctionDeclaration{
			Name:                 s.Name,
			Description:          s.Description,
			ParametersJsonSchema: s.Parameters,
		})
	}
	cfg := &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto}}
	return []*genai.Tool{{FunctionDeclarations: fd}}, cfg
}

func messageFromResponse(resp *genai.GenerateContentResponse) (llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return llm.Response{}, fmt.Errorf("no candidates in google response")
	}
	candidate := resp.Candidates[0]
	var out llm.Response
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.Content += part.Text
			}
			if part.FunctionCall != nil {
				args := encodeArgs(part.FunctionCall.Args)
				out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
					Name: part.FunctionCall.Name,
					Args: args,
				})
			}
		}
	}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func decodeArgs(raw []byte) map[string]any {
	var v map[string]any
	if len(raw) == 0 {
		return map[string]any{}
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}

func encodeArgs(v map[string]any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
