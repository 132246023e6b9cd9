package graph

import (
	"context"
	"strings"
	"time"

	"agentrt/internal/domain"
	"agentrt/internal/pii"
)

// NewInputGuardNode scans the drained raw user messages for sensitive data
// and decides whether the run proceeds, masked or clean, or is rejected.
func NewInputGuardNode() Func {
	return func(_ context.Context, s State) (Partial, error) {
		combined := strings.Join(s.RawUserMessages, "\n")
		result := pii.Detect(combined)

		violations := make([]string, 0, len(result.Matches))
		seen := map[string]struct{}{}
		for _, m := range result.Matches {
			if _, ok := seen[m.Category]; ok {
				continue
			}
			seen[m.Category] = struct{}{}
			violations = append(violations, m.Category)
		}

		now := timePtr(time.Now())

		if result.HasCritical {
			return Partial{
				GuardrailResult: &GuardrailResult{
					Status:          domain.GuardrailRejected,
					Violations:      violations,
					RejectionReason: result.RejectionReason,
				},
				ProcessedInput: strPtr(""),
				StartTime:      now,
			}, nil
		}

		status := domain.GuardrailClean
		if result.HasLow {
			status = domain.GuardrailMasked
		}
		return Partial{
			GuardrailResult: &GuardrailResult{
				Status:           status,
				Violations:       violations,
				ProcessedContent: strPtr(result.MaskedText),
			},
			ProcessedInput: strPtr(result.MaskedText),
			StartTime:      now,
		}, nil
	}
}

// GuardRouter is the conditional edge out of input_guard.
func GuardRouter(s State) Name {
	if s.GuardrailResult != nil && s.GuardrailResult.Status == domain.GuardrailRejected {
		return NodeReject
	}
	return NodeMemoryLoader
}

// NewRejectNode is the terminal node for a rejected run.
func NewRejectNode() Func {
	return func(_ context.Context, s State) (Partial, error) {
		reason := ""
		if s.GuardrailResult != nil {
			reason = s.GuardrailResult.RejectionReason
		}
		content := "Message contains sensitive data and cannot be processed."
		if reason != "" {
			content = "Message rejected: " + reason
		}
		return Partial{FinalContent: strPtr(content)}, nil
	}
}
