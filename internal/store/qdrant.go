package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// Payload keys stored with every Qdrant point.
const (
	payloadText   = "text"
	payloadSource = "source"
	payloadSeq    = "seq"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use (default: pdfqa).
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements rag.VectorStore backed by a Qdrant collection.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// last is the most recently issued insertion sequence.
	last atomic.Int64
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary).
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "pdfqa"
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be positive")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	s := &QdrantStore{client: client, cfg: cfg}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// nextSeq returns a sequence number that increases across calls and across
// processes writing to the same collection.
func (s *QdrantStore) nextSeq() int64 {
	now := time.Now().UnixNano()
	for {
		last := s.last.Load()
		next := max(now, last+1)
		if s.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Add upserts one point per chunk under a fresh UUID, so re-adding the same
// text appends rather than replaces.
func (s *QdrantStore) Add(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(chunkPayload(c, s.nextSeq())),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Search performs a cosine similarity query and returns the top-k results.
func (s *QdrantStore) Search(ctx context.Context, query []float32, topK int) ([]rag.ScoredChunk, error) {
	if topK <= 0 {
		return []rag.ScoredChunk{}, nil
	}

	limit := uint64(candidateLimit(topK))
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]hit, 0, len(results))
	for _, r := range results {
		h := hitFromPayload(r.GetPayload())
		h.score = r.GetScore()
		hits = append(hits, h)
	}
	return rank(hits, topK), nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(n), nil
}

// Reset drops and recreates the collection.
func (s *QdrantStore) Reset(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.cfg.Collection); err != nil {
		return fmt.Errorf("qdrant: delete collection %q: %w", s.cfg.Collection, err)
	}
	return s.ensureCollection(ctx)
}

// Ping calls the Qdrant HealthCheck RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (s *QdrantStore) Name() string { return "qdrant" }

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// chunkPayload builds the point payload for c.
func chunkPayload(c rag.Chunk, seq int64) map[string]any {
	return map[string]any{
		payloadText:   c.Text,
		payloadSource: c.SourceID,
		payloadSeq:    seq,
	}
}

// hitFromPayload reads a point payload back into a hit. Missing keys leave
// zero values.
func hitFromPayload(p map[string]*qdrant.Value) hit {
	var h hit
	if v, ok := p[payloadText]; ok {
		h.chunk.Text = v.GetStringValue()
	}
	if v, ok := p[payloadSource]; ok {
		h.chunk.SourceID = v.GetStringValue()
	}
	if v, ok := p[payloadSeq]; ok {
		h.seq = v.GetIntegerValue()
	}
	return h
}
