// Package rag defines the interfaces and core types for the retrieval-augmented
// answering path: chunk records, the embedder and vector store contracts, the
// embedding index built on top of them, and the fixed-K retriever.
package rag

import (
	"context"
)

// Chunk is a contiguous segment of a document's cleaned text together with the
// identifier of the document it came from. Chunks are immutable once created.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// SourceID is the caller-supplied name or path of the originating document.
	SourceID string
}

// ScoredChunk is a Chunk returned from a similarity search.
type ScoredChunk struct {
	Chunk

	// Score is the similarity between the query and the chunk (higher is closer).
	Score float32
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists chunk embeddings and answers nearest-neighbour queries.
// Implementations must be safe for concurrent readers; writers need external
// synchronisation.
type VectorStore interface {
	// Add appends chunks with their pre-computed embeddings. vectors is
	// parallel to chunks. Existing entries are never replaced.
	Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error

	// Search returns at most topK entries ordered by descending similarity to
	// query. Equal scores are ordered by insertion, earliest first.
	Search(ctx context.Context, query []float32, topK int) ([]ScoredChunk, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Reset removes every entry.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	// Retrieve returns the most relevant chunks for query, best first.
	Retrieve(ctx context.Context, query string) ([]Chunk, error)
}
