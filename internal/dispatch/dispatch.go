// Package dispatch implements the dispatch loop (C8): the detached
// per-thread background task that drains the queue, runs the processing
// graph, persists the resulting assistant message, and repeats until the
// queue stays empty.
package dispatch

import (
	"context"
	"strings"

	"agentrt/internal/domain"
	"agentrt/internal/graph"
	"agentrt/internal/observability"
	"agentrt/internal/queue"
	"agentrt/internal/runtime"
	"agentrt/internal/store"
)

// Loop owns the queue manager and runtime service a thread's background
// task is driven by.
type Loop struct {
	Queue   *queue.Manager
	Runtime *runtime.Service
	Store   store.Store
}

// Enqueue pushes content into the thread's queue and, if no loop is
// currently running for it, starts one as a detached goroutine. Persisting
// the inbound user message itself is the caller's responsibility. Returns
// "processing" or "queued" per the queue manager's enqueue result.
func (l *Loop) Enqueue(threadID, tenantID, systemAgentID, messageID, content string) string {
	status := l.Queue.Enqueue(threadID, queue.Message{ID: messageID, Content: content})
	if status == "processing" {
		go l.run(threadID, tenantID, systemAgentID)
	}
	return status
}

func (l *Loop) run(threadID, tenantID, systemAgentID string) {
	ctx := context.Background()
	log := observability.LoggerWithTrace(ctx)
	defer l.Queue.Broadcast(threadID, queue.Event{Type: "stream_end"})

	for {
		msgs := l.Queue.DrainAndMerge(threadID)
		if len(msgs) == 0 {
			break
		}

		var collected strings.Builder
		var metadata any

		err := l.Runtime.Stream(ctx, threadID, tenantID, msgs, func(ev queue.Event) error {
			l.Queue.Broadcast(threadID, ev)
			switch ev.Type {
			case "chunk":
				collected.WriteString(ev.Content)
			case "guardrail_reject":
				collected.Reset()
				collected.WriteString(ev.Reason)
			case "done":
				metadata = ev.Metadata
			}
			return nil
		})
		if err != nil {
			log.Error().Err(err).Str("thread_id", threadID).Msg("dispatch loop run failed")
		}

		if err := l.Store.EnsureAgentInThread(ctx, threadID, systemAgentID); err != nil {
			log.Error().Err(err).Str("thread_id", threadID).Msg("ensure agent in thread failed")
		}

		content := collected.String()
		if content == "" {
			content = "(no response)"
		}

		metadataMap := metadataAsMap(metadata)
		if _, err := l.Store.CreateMessage(ctx, domain.Message{
			ThreadID: threadID,
			AgentID:  systemAgentID,
			Role:     domain.RoleAssistant,
			Content:  content,
			Metadata: metadataMap,
		}); err != nil {
			log.Error().Err(err).Str("thread_id", threadID).Msg("persist assistant message failed")
		}

		if !l.Queue.MarkDone(threadID) {
			break
		}
	}
}

func metadataAsMap(v any) map[string]any {
	m, ok := v.(domain.MessageMetadata)
	if !ok {
		return nil
	}
	out, err := graph.MetadataToMap(m)
	if err != nil {
		return nil
	}
	return out
}
