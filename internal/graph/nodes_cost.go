package graph

import (
	"context"
	"encoding/json"
	"time"

	"agentrt/internal/domain"
	"agentrt/internal/pricing"
)

// NewCostTrackerNode finalizes token usage into a cost and measures the
// run's wall-clock time. Terminal for the success path.
func NewCostTrackerNode() Func {
	return func(_ context.Context, s State) (Partial, error) {
		u := s.Usage
		total := u.TotalTokens
		if total == 0 {
			total = u.InputTokens + u.OutputTokens
		}
		cost := pricing.Cost(u.Model, u.InputTokens, u.OutputTokens)

		var elapsedMs int64
		if !s.StartTime.IsZero() {
			elapsedMs = int64(time.Since(s.StartTime).Round(time.Millisecond) / time.Millisecond)
		}

		return Partial{
			Usage: &Usage{
				Model:        u.Model,
				InputTokens:  u.InputTokens,
				OutputTokens: u.OutputTokens,
				TotalTokens:  total,
				CostUSD:      cost,
			},
			ResponseTimeMs: int64Ptr(elapsedMs),
		}, nil
	}
}

// BuildMessageMetadata renders a finished run's final State into the
// metadata block persisted alongside the assistant message.
func BuildMessageMetadata(s State) domain.MessageMetadata {
	toolCalls := make([]domain.ToolCallLogEntry, 0, len(s.ToolCallsLog))
	for _, tc := range s.ToolCallsLog {
		status := tc.Status
		if status == "" {
			status = "unknown"
		}
		toolCalls = append(toolCalls, domain.ToolCallLogEntry{Name: tc.Name, Status: status})
	}

	var guardrail *domain.GuardrailMetadata
	if s.GuardrailResult != nil {
		guardrail = &domain.GuardrailMetadata{
			Status:          s.GuardrailResult.Status,
			ViolationsCount: len(s.GuardrailResult.Violations),
		}
	}

	return domain.MessageMetadata{
		Model: s.Usage.Model,
		Tokens: domain.TokenUsage{
			InputTokens:  s.Usage.InputTokens,
			OutputTokens: s.Usage.OutputTokens,
			TotalTokens:  s.Usage.TotalTokens,
		},
		CostUSD:        s.Usage.CostUSD,
		ResponseTimeMs: s.ResponseTimeMs,
		ToolCalls:      toolCalls,
		Guardrail:      guardrail,
	}
}

// MetadataToMap round-trips a MessageMetadata through JSON into the plain
// map shape the store collaborator persists a message's metadata as.
func MetadataToMap(m domain.MessageMetadata) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
