package graph

import (
	"context"
	"errors"

	"agentrt/internal/llm"
	"agentrt/internal/observability"
)

var errNoSummarizer = errors.New("no summarization model configured")

const (
	// MaxContextTokens bounds the trimmed history handed to the model.
	MaxContextTokens = 4000
	systemPrompt     = "You are a helpful assistant."
	summarizeInstruction = "Distill the above chat messages into a single concise summary message. " +
		"Include key facts and any decisions that were made. Be concise."
)

// Recaller retrieves prior context relevant to a thread. It is an optional
// pre-step inside the memory loader, nil when recall is disabled for the
// process.
type Recaller interface {
	Recall(ctx context.Context, threadID, query string, topK int) ([]string, error)
}

// NewMemoryLoaderNode builds the node that assembles the message list the
// model will see: a system prompt, optional recalled context, an optional
// summary of whatever history didn't fit the context budget, the trimmed
// tail of history, and finally the processed user turn. summarizer/
// summaryModel may be the zero value; a nil provider (or a failing call)
// falls back to the trimmed history alone. recall may be nil, in which case
// no recall step runs regardless of recallTopK.
func NewMemoryLoaderNode(summarizer llm.Provider, summaryModel string, recall Recaller, recallTopK int) Func {
	return func(ctx context.Context, s State) (Partial, error) {
		var out []llm.Message
		out = append(out, llm.Message{Role: "system", Content: systemPrompt})

		if recall != nil && recallTopK > 0 {
			hits, err := recall.Recall(ctx, s.ThreadID, s.ProcessedInput, recallTopK)
			if err != nil {
				observability.LoggerWithTrace(ctx).Warn().Err(err).
					Str("thread_id", s.ThreadID).
					Msg("memory recall failed, continuing without it")
			}
			for _, h := range hits {
				out = append(out, llm.Message{Role: "system", Content: "Recalled from earlier: " + h})
			}
		}

		trimmed, dropped := trimToBudget(s.History, MaxContextTokens)
		if len(dropped) > 0 {
			summary, err := summarize(ctx, summarizer, summaryModel, dropped)
			if err != nil {
				observability.LoggerWithTrace(ctx).Warn().Err(err).
					Str("thread_id", s.ThreadID).
					Msg("history summarization failed, using trimmed history only")
			} else {
				out = append(out, llm.Message{
					Role:    "system",
					Content: "Summary of earlier conversation:\n" + summary,
				})
			}
		}

		out = append(out, trimmed...)
		out = append(out, llm.Message{Role: "user", Content: s.ProcessedInput})

		observability.LoggerWithTrace(ctx).Debug().
			Str("thread_id", s.ThreadID).
			Int("estimated_tokens", llm.EstimateTokensForMessages(out)).
			Msg("assembled prompt for llm_agent")

		return Partial{Messages: out}, nil
	}
}

// trimToBudget keeps the trailing run of history that fits within
// maxTokens, never splitting it so the kept tail starts on anything but a
// user turn. Returns the kept tail and the dropped prefix, in original order.
func trimToBudget(history []llm.Message, maxTokens int) (kept, dropped []llm.Message) {
	if len(history) == 0 {
		return nil, nil
	}

	cut := len(history)
	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		total += llm.EstimateTokens(history[i].Content)
		if total > maxTokens {
			break
		}
		cut = i
	}

	for cut < len(history) && history[cut].Role != "user" {
		cut++
	}

	return history[cut:], history[:cut]
}

func summarize(ctx context.Context, provider llm.Provider, model string, messages []llm.Message) (string, error) {
	if provider == nil {
		return "", errNoSummarizer
	}
	prompt := append(append([]llm.Message{}, messages...), llm.Message{Role: "user", Content: summarizeInstruction})
	resp, err := provider.Chat(ctx, prompt, nil, model)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
