package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"agentrt/internal/domain"
)

// threadRead is the JSON shape returned for a Thread.
type threadRead struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
}

// messageRead is the JSON shape returned for one Message.
type messageRead struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	AgentID   string         `json:"agent_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
}

func toThreadRead(t domain.Thread) threadRead {
	return threadRead{ID: t.ID, TenantID: t.TenantID, Title: t.Title, Metadata: t.Metadata, CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00")}
}

func toMessageRead(m domain.Message) messageRead {
	return messageRead{
		ID: m.ID, ThreadID: m.ThreadID, AgentID: m.AgentID, Role: string(m.Role),
		Content: m.Content, Metadata: m.Metadata,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreErr maps a Store sentinel error to its HTTP status per spec.md
// §7's error-kind table and writes it.
func writeStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNoSystemAgent):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

// threadsHandler dispatches every request under /threads/ to the right
// operation by method and path shape, in the manual-trailing-path style the
// rest of this surface uses instead of per-segment routing.
func (s *Server) threadsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/threads/" && r.Method == http.MethodPost {
			s.createThread(w, r)
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, "/threads/")
		rest = strings.Trim(rest, "/")
		if rest == "" {
			writeErr(w, http.StatusNotFound, "not found")
			return
		}

		parts := strings.SplitN(rest, "/", 2)
		threadID := parts[0]
		var sub string
		if len(parts) == 2 {
			sub = parts[1]
		}

		switch {
		case sub == "" && r.Method == http.MethodDelete:
			s.deleteThread(w, r, threadID)
		case sub == "messages" && r.Method == http.MethodPost:
			s.postMessage(w, r, threadID)
		case sub == "messages" && r.Method == http.MethodGet:
			s.listMessages(w, r, threadID)
		case sub == "stream" && r.Method == http.MethodGet:
			s.streamThread(w, r, threadID)
		default:
			writeErr(w, http.StatusNotFound, "not found")
		}
	}
}

type createThreadRequest struct {
	TenantID string         `json:"tenant_id"`
	Title    string         `json:"title"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.TenantID == "" {
		writeErr(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	th, err := s.Store.CreateThread(r.Context(), req.TenantID, req.Title, req.Metadata)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toThreadRead(th))
}

func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request, threadID string) {
	if _, err := s.Store.GetThread(r.Context(), threadID); err != nil {
		writeErr(w, http.StatusNotFound, "thread not found")
		return
	}
	if err := s.Store.DeleteThread(r.Context(), threadID); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type postMessageRequest struct {
	Content string `json:"content"`
	AgentID string `json:"agent_id"`
}

// postMessage persists the inbound user message, then hands it to the
// dispatch loop and reports whether the loop just started or the message
// was coalesced into an already-running run.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request, threadID string) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.AgentID == "" {
		writeStoreErr(w, fmt.Errorf("agent_id is required: %w", domain.ErrValidation))
		return
	}

	th, err := s.Store.GetThread(r.Context(), threadID)
	if err != nil {
		writeErr(w, http.StatusNotFound, "thread not found")
		return
	}

	author, err := s.Store.GetAgent(r.Context(), req.AgentID)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	if author.TenantID != nil && *author.TenantID != th.TenantID {
		writeStoreErr(w, fmt.Errorf("agent does not belong to this tenant: %w", domain.ErrForbidden))
		return
	}

	systemAgent, err := s.Store.GetSystemAgentForTenant(r.Context(), th.TenantID)
	if err != nil {
		writeStoreErr(w, err)
		return
	}

	if err := s.Store.EnsureAgentInThread(r.Context(), threadID, author.ID); err != nil {
		writeStoreErr(w, err)
		return
	}

	msg, err := s.Store.CreateMessage(r.Context(), domain.Message{
		ThreadID: threadID,
		AgentID:  req.AgentID,
		Role:     domain.RoleUser,
		Content:  req.Content,
	})
	if err != nil {
		writeStoreErr(w, err)
		return
	}

	status := s.Dispatch.Enqueue(threadID, th.TenantID, systemAgent.ID, msg.ID, req.Content)

	writeJSON(w, http.StatusAccepted, map[string]string{"message_id": msg.ID, "status": status})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request, threadID string) {
	if _, err := s.Store.GetThread(r.Context(), threadID); err != nil {
		writeErr(w, http.StatusNotFound, "thread not found")
		return
	}
	history, err := s.Store.GetHistory(r.Context(), threadID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]messageRead, 0, len(history))
	for _, m := range history {
		out = append(out, toMessageRead(m))
	}
	writeJSON(w, http.StatusOK, out)
}
