// Package memory provides top-k similarity recall over prior thread
// exchanges. A Service combines an Embedder with a vector Store and
// satisfies graph.Recaller by searching a thread's own history for
// context relevant to the current turn.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"time"

	"agentrt/internal/config"
)

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type httpEmbedder struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewHTTPEmbedder builds an Embedder that calls an OpenAI-compatible
// /v1/embeddings endpoint.
func NewHTTPEmbedder(cfg config.EmbeddingConfig) Embedder {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpEmbedder{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (e *httpEmbedder) Dimension() int { return e.cfg.Dimension }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *httpEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: []string{text}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+e.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	} else if e.cfg.APIHeader != "" {
		req.Header.Set(e.cfg.APIHeader, e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embeddings error: %s: %s", resp.Status, string(raw))
	}

	var er embedResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(er.Data) == 0 {
		return nil, fmt.Errorf("embeddings error: empty response")
	}
	return er.Data[0].Embedding, nil
}

// deterministicEmbedder hashes byte 3-grams of the input into a
// fixed-size, L2-normalized vector. Used in tests so recall behavior can
// be exercised without a live embedding endpoint.
type deterministicEmbedder struct {
	dim int
}

// NewDeterministicEmbedder builds a test-only Embedder with no external
// dependency. Embeddings it produces are meaningful only relative to each
// other, not comparable to a real model's output.
func NewDeterministicEmbedder(dim int) Embedder {
	if dim <= 0 {
		dim = 32
	}
	return &deterministicEmbedder{dim: dim}
}

func (d *deterministicEmbedder) Dimension() int { return d.dim }

func (d *deterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, d.dim)
	b := []byte(text)
	if len(b) == 0 {
		return v, nil
	}
	if len(b) < 3 {
		hashInto(b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			hashInto(b[i:i+3], v)
		}
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(sum))
		for i := range v {
			v[i] *= inv
		}
	}
	return v, nil
}

func hashInto(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
