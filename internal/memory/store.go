package memory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payloadOriginalID holds the caller-supplied point id when it had to be
// replaced with a deterministic UUID for Qdrant's id constraint.
const payloadOriginalID = "_original_id"

// Result is one hit from a similarity search, payload fields stringified.
type Result struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Store is the minimum vector persistence surface the Service needs.
type Store interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error)
	Close() error
}

type qdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStore connects to Qdrant's gRPC endpoint (default port 6334) and
// ensures the target collection exists, creating it with a cosine-distance
// config sized to dimension if it doesn't. addr may carry an API key via
// "?api_key=...".
func NewQdrantStore(ctx context.Context, addr, collection string, dimension int) (Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant addr: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = addr
	}
	port := 6334
	if p := parsed.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	cfg := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if key := parsed.Query().Get("api_key"); key != "" {
		cfg.APIKey = key
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	s := &qdrantStore{client: client, collection: collection, dimension: dimension}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return s, nil
}

func (s *qdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func pointUUID(id string) (uuidStr string, remapped bool) {
	if _, err := uuid.Parse(id); err == nil {
		return id, false
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String(), true
}

func (s *qdrantStore) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	uuidStr, remapped := pointUUID(id)
	payload := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		payload[k] = v
	}
	if remapped {
		payload[payloadOriginalID] = id
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func (s *qdrantStore) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	var qf *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		qf = &qdrant.Filter{Must: must}
	}

	limit := uint64(k)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		id := hit.Id.GetUuid()
		if id == "" {
			id = hit.Id.String()
		}
		metadata := make(map[string]string)
		var original string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				if k == payloadOriginalID {
					original = v.GetStringValue()
					continue
				}
				metadata[k] = v.GetStringValue()
			}
		}
		if original != "" {
			id = original
		}
		out = append(out, Result{ID: id, Score: float64(hit.Score), Metadata: metadata})
	}
	return out, nil
}

func (s *qdrantStore) Close() error {
	return s.client.Close()
}

// inMemoryStore is a Store substitute for tests, doing brute-force cosine
// similarity over everything upserted so far.
type inMemoryStore struct {
	points []memPoint
}

type memPoint struct {
	id       string
	vector   []float32
	metadata map[string]string
}

// NewInMemoryStore builds a Store with no external dependency, for tests.
func NewInMemoryStore() Store {
	return &inMemoryStore{}
}

func (s *inMemoryStore) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	vec := make([]float32, len(vector))
	copy(vec, vector)
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	for i, p := range s.points {
		if p.id == id {
			s.points[i] = memPoint{id: id, vector: vec, metadata: md}
			return nil
		}
	}
	s.points = append(s.points, memPoint{id: id, vector: vec, metadata: md})
	return nil
}

func (s *inMemoryStore) Search(_ context.Context, vector []float32, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	var candidates []Result
	for _, p := range s.points {
		if !matchesFilter(p.metadata, filter) {
			continue
		}
		candidates = append(candidates, Result{ID: p.id, Score: cosine(vector, p.vector), Metadata: p.metadata})
	}
	sortByScoreDesc(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (s *inMemoryStore) Close() error { return nil }

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func sortByScoreDesc(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}
