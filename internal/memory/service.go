package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const metadataThreadID = "thread_id"
const metadataTenantID = "tenant_id"
const metadataText = "text"

// Service indexes assistant turns per thread and recalls the ones most
// relevant to a later query. It satisfies graph.Recaller structurally, so
// internal/graph never needs to import this package's Qdrant and HTTP
// dependencies directly.
type Service struct {
	Embedder Embedder
	Store    Store
}

// NewService builds a Service from an embedder and a store.
func NewService(embedder Embedder, store Store) *Service {
	return &Service{Embedder: embedder, Store: store}
}

// IndexSummary embeds text and upserts it tagged with threadID/tenantID, so
// later calls to Recall on the same thread can retrieve it.
func (s *Service) IndexSummary(ctx context.Context, threadID, tenantID, text string) error {
	if text == "" {
		return nil
	}
	vec, err := s.Embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed summary: %w", err)
	}
	id := uuid.New().String()
	return s.Store.Upsert(ctx, id, vec, map[string]string{
		metadataThreadID: threadID,
		metadataTenantID: tenantID,
		metadataText:     text,
	})
}

// Recall returns up to topK previously indexed texts for threadID that are
// most similar to query.
func (s *Service) Recall(ctx context.Context, threadID, query string, topK int) ([]string, error) {
	if topK <= 0 || query == "" {
		return nil, nil
	}
	vec, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.Store.Search(ctx, vec, topK, map[string]string{metadataThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if text := h.Metadata[metadataText]; text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

// Close releases the underlying store's resources.
func (s *Service) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
