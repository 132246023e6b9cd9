package graph

import (
	"context"

	"golang.org/x/sync/errgroup"

	"agentrt/internal/llm"
	"agentrt/internal/tools"
)

// DefaultToolConcurrency bounds how many pending tool-calls a single tools
// node invocation will dispatch at once.
const DefaultToolConcurrency = 4

// NewToolsNode executes every pending tool-call logged by the last
// llm_agent turn and appends one tool-result message per call. It resolves
// each ToolCallLog entry's status in place: the slice's backing array is
// shared with the running State, so the pending -> ok/error transition is
// visible to cost_tracker without another append.
func NewToolsNode(registry tools.Registry, concurrency int) Func {
	if concurrency <= 0 {
		concurrency = DefaultToolConcurrency
	}
	return func(ctx context.Context, s State) (Partial, error) {
		pending := make([]int, 0, len(s.ToolCallsLog))
		for i, tc := range s.ToolCallsLog {
			if tc.Status == "pending" {
				pending = append(pending, i)
			}
		}
		if len(pending) == 0 {
			return Partial{}, nil
		}

		results := make([]llm.Message, len(pending))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for slot, idx := range pending {
			slot, idx := slot, idx
			g.Go(func() error {
				tc := s.ToolCallsLog[idx]
				out, err := registry.Dispatch(gctx, tc.Name, tc.Args)
				if err != nil {
					s.ToolCallsLog[idx].Status = "error"
					results[slot] = llm.Message{Role: "tool", ToolID: tc.ID, Content: err.Error()}
					return nil
				}
				s.ToolCallsLog[idx].Status = "ok"
				results[slot] = llm.Message{Role: "tool", ToolID: tc.ID, Content: string(out)}
				return nil
			})
		}
		_ = g.Wait()

		return Partial{Messages: results}, nil
	}
}
