package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"agentrt/internal/queue"
)

// streamThread subscribes the caller to the thread's broadcast list and
// relays events as server-sent events until stream_end or disconnect.
func (s *Server) streamThread(w http.ResponseWriter, r *http.Request, threadID string) {
	if _, err := s.Store.GetThread(r.Context(), threadID); err != nil {
		writeErr(w, http.StatusNotFound, "thread not found")
		return
	}

	fl, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var mu sync.Mutex
	writeFrame := func(payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "data: %s\n\n", b)
		fl.Flush()
	}
	writeComment := func(text string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, ": %s\n\n", text)
		fl.Flush()
	}

	events, unsubscribe := s.Queue.Subscribe(threadID)
	defer unsubscribe()

	ctx := r.Context()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeComment("keepalive")
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeFrame(eventPayload(ev))
			if ev.Type == "stream_end" {
				return
			}
		}
	}
}

func eventPayload(ev queue.Event) map[string]any {
	switch ev.Type {
	case "chunk":
		return map[string]any{"type": "chunk", "content": ev.Content}
	case "guardrail_reject":
		return map[string]any{"type": "guardrail_reject", "reason": ev.Reason}
	case "done":
		return map[string]any{"type": "done", "metadata": ev.Metadata}
	default:
		return map[string]any{"type": ev.Type}
	}
}
