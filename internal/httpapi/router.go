// Package httpapi wires the external HTTP surface onto the runtime core:
// thread creation, posting messages, streaming pipeline events over SSE,
// listing history, and soft-deleting a thread.
package httpapi

import (
	"net/http"

	"agentrt/internal/dispatch"
	"agentrt/internal/queue"
	"agentrt/internal/store"
)

// Server bundles the collaborators the handlers need.
type Server struct {
	Store   store.Store
	Queue   *queue.Manager
	Dispatch *dispatch.Loop
}

// NewRouter wires the five core endpoints onto a fresh ServeMux.
func NewRouter(s *Server) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/threads/", s.threadsHandler())

	return mux
}
