package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/54b3r/pdfqa-go/internal/logging"
)

// DefaultBatchSize is the number of chunks sent to the embedder per call.
const DefaultBatchSize = 64

// Index embeds chunks and stores them for similarity search. All vectors in
// one index must come from the same embedding model, so a single Embedder is
// used for both writes and queries.
type Index struct {
	// embedder converts chunk and query text into vectors.
	embedder Embedder
	// store persists vectors and answers nearest-neighbour queries.
	store VectorStore
	// batchSize caps the number of texts per Embed call.
	batchSize int
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithBatchSize sets the number of chunks embedded per call. Values ≤ 0 are ignored.
func WithBatchSize(n int) IndexOption {
	return func(ix *Index) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// NewIndex constructs an Index over the given embedder and store.
func NewIndex(embedder Embedder, store VectorStore, opts ...IndexOption) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	ix := &Index{embedder: embedder, store: store, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Add embeds chunks in batches, then appends them to the store in one write.
// Nothing is stored unless every batch embeds, so a failed Add leaves the
// store as it was. Re-adding the same chunks duplicates them; callers clear
// the store to avoid that.
func (ix *Index) Add(ctx context.Context, chunks []Chunk) error {
	log := logging.FromContext(ctx)

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embedded, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return EmbeddingError("embed chunks", err)
		}
		if len(embedded) != len(batch) {
			return EmbeddingError("embed chunks",
				fmt.Errorf("expected %d embeddings, got %d", len(batch), len(embedded)))
		}
		vectors = append(vectors, embedded...)

		log.Debug("index batch embedded",
			slog.Int("from", start),
			slog.Int("to", end),
			slog.Int("total", len(chunks)),
		)
	}

	if len(chunks) == 0 {
		return nil
	}
	if err := ix.store.Add(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("rag: store add: %w", err)
	}
	return nil
}

// Query embeds text and returns at most k stored chunks ordered by descending
// similarity. An empty index yields an empty result, not an error.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return []ScoredChunk{}, nil
	}

	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, EmbeddingError("embed query", err)
	}
	if len(vectors) != 1 {
		return nil, EmbeddingError("embed query", fmt.Errorf("expected 1 embedding, got %d", len(vectors)))
	}

	results, err := ix.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("rag: store search: %w", err)
	}
	if len(results) > k {
		results = results[:k]
	}
	if results == nil {
		results = []ScoredChunk{}
	}
	return results, nil
}

// Store returns the underlying vector store.
func (ix *Index) Store() VectorStore { return ix.store }

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero magnitude score 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
