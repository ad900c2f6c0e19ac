package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/54b3r/pdfqa-go/internal/logging"
)

// DefaultTopK is the number of chunks returned per query when no explicit K
// is configured.
const DefaultTopK = 3

// DefaultRetriever implements Retriever as a fixed-K query against an Index.
type DefaultRetriever struct {
	// index is the embedding index queried for each retrieval.
	index *Index

	// topK is the number of chunks returned per query.
	topK int
}

// NewRetriever constructs a DefaultRetriever. topK ≤ 0 selects DefaultTopK.
func NewRetriever(index *Index, topK int) (*DefaultRetriever, error) {
	if index == nil {
		return nil, fmt.Errorf("retriever: index must not be nil")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &DefaultRetriever{index: index, topK: topK}, nil
}

// Retrieve returns up to topK chunks most similar to query, best first.
// Scores are dropped.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string) ([]Chunk, error) {
	results, err := r.index.Query(ctx, query, r.topK)
	if err != nil {
		return nil, fmt.Errorf("retriever: %w", err)
	}

	chunks := make([]Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}

	logging.FromContext(ctx).Debug("retrieved chunks",
		slog.Int("requested", r.topK),
		slog.Int("returned", len(chunks)),
	)
	return chunks, nil
}

// TopK returns the configured retrieval depth.
func (r *DefaultRetriever) TopK() int { return r.topK }
