package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrt/internal/config"
)

func TestHTTPEmbedderSendsModelAndAuthHeader(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody embedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(embedResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
			}{{Embedding: []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(config.EmbeddingConfig{
		BaseURL:   srv.URL,
		Path:      "/v1/embeddings",
		Model:     "text-embedding-3-small",
		APIKey:    "sk-test",
		APIHeader: "Authorization",
	})

	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/embeddings", gotPath)
	assert.Equal(t, "text-embedding-3-small", gotBody.Model)
	assert.Equal(t, []string{"hello world"}, gotBody.Input)
}

func TestHTTPEmbedderReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(config.EmbeddingConfig{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "m"})
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
}

func TestHTTPEmbedderReturnsErrorOnEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(config.EmbeddingConfig{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "m"})
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
}
