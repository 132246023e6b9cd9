package graph

import (
	"context"
	"time"

	"agentrt/internal/llm"
	"agentrt/internal/tools"
)

// NewLLMAgentNode invokes the configured chat model on the current message
// list, binding tool schemas when a registry with tools is supplied.
func NewLLMAgentNode(provider llm.Provider, model string, registry tools.Registry) Func {
	return func(ctx context.Context, s State) (Partial, error) {
		if len(s.Messages) == 0 {
			return Partial{FinalContent: strPtr("")}, nil
		}

		var schemas []llm.ToolSchema
		if registry != nil {
			schemas = registry.Schemas()
		}

		resp, err := provider.Chat(ctx, s.Messages, schemas, model)
		if err != nil {
			return Partial{}, err
		}

		assistant := llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls}

		var log []ToolCallLog
		if len(resp.ToolCalls) > 0 {
			startMs := time.Now().UnixMilli()
			for _, tc := range resp.ToolCalls {
				log = append(log, ToolCallLog{
					ID:        tc.ID,
					Name:      tc.Name,
					Args:      tc.Args,
					StartedMs: startMs,
					Status:    "pending",
				})
			}
		}

		final := resp.Content
		if len(resp.ToolCalls) > 0 {
			final = ""
		}

		usage := Usage{
			Model:        model,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}

		return Partial{
			Messages:     []llm.Message{assistant},
			ToolCallsLog: log,
			Usage:        &usage,
			FinalContent: strPtr(final),
		}, nil
	}
}

// ContinueRouter is the conditional edge out of llm_agent: loop into tools
// when the last message carries tool-calls and tools are configured, else
// terminate the success path at cost_tracker.
func ContinueRouter(s State, hasTools bool) Name {
	if !hasTools || len(s.Messages) == 0 {
		return NodeCostTracker
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role == "assistant" && len(last.ToolCalls) > 0 {
		return NodeTools
	}
	return NodeCostTracker
}
