// Package store provides rag.VectorStore backends for the embedding index.
// SQLite under the index directory is the default and keeps the index across
// process restarts; Qdrant and Redis (RediSearch) serve deployments that
// already run one of them.
package store

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// Backend identifies a vector store implementation.
type Backend string

const (
	// BackendSQLite stores vectors in a local SQLite file.
	BackendSQLite Backend = "sqlite"
	// BackendQdrant stores vectors in a Qdrant collection.
	BackendQdrant Backend = "qdrant"
	// BackendRedis stores vectors in a RediSearch index.
	BackendRedis Backend = "redis"
)

// DefaultDir is the index directory used when INDEX_DIR is unset.
const DefaultDir = ".pdfqa"

// dbFile is the SQLite file name inside the index directory.
const dbFile = "index.db"

// Config selects and configures a backend.
type Config struct {
	// Backend selects the implementation. Empty means sqlite.
	Backend Backend
	// Dir is the index directory for the sqlite backend.
	Dir string
	// Qdrant configures the qdrant backend.
	Qdrant QdrantConfig
	// Redis configures the redis backend.
	Redis RedisConfig
}

// Store is a rag.VectorStore that can report its own health.
type Store interface {
	rag.VectorStore
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Name returns the dependency label used in readiness responses.
	Name() string
}

// Open constructs the backend named by cfg. dims is the embedding size; the
// qdrant and redis backends fix it when they create their collection or index.
func Open(ctx context.Context, cfg Config, dims int) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return OpenSQLiteDir(cfg.Dir)
	case BackendQdrant:
		qc := cfg.Qdrant
		qc.VectorSize = uint64(dims)
		return NewQdrantStore(ctx, &qc)
	case BackendRedis:
		rc := cfg.Redis
		rc.VectorDim = dims
		return NewRedisStore(ctx, rc)
	default:
		return nil, rag.ConfigError("INDEX_BACKEND",
			fmt.Sprintf("store: unknown INDEX_BACKEND %q, valid values: sqlite, qdrant, redis", cfg.Backend))
	}
}

// OpenSQLiteDir creates dir when missing and opens dir/index.db.
// An empty dir selects DefaultDir.
func OpenSQLiteDir(dir string) (*SQLiteStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return OpenSQLite(filepath.Join(dir, dbFile))
}

// tieSlack is how many extra candidates remote backends return beyond k, so
// chunks tied with the k-th score reach rank and the earliest one is kept.
// A tie wider than this at the boundary can still drop an earlier chunk.
const tieSlack = 16

// candidateLimit is the number of hits to request from a remote backend for
// a top-k query.
func candidateLimit(k int) int { return k + tieSlack }

// hit is a search candidate carrying its insertion sequence for tie-breaking.
type hit struct {
	chunk rag.Chunk
	score float32
	seq   int64
}

// rank orders hits by descending score, then ascending sequence, and keeps
// at most k of them. The result is never nil.
func rank(hits []hit, k int) []rag.ScoredChunk {
	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	if k < len(hits) {
		hits = hits[:max(k, 0)]
	}
	out := make([]rag.ScoredChunk, len(hits))
	for i, h := range hits {
		out[i] = rag.ScoredChunk{Chunk: h.chunk, Score: h.score}
	}
	return out
}

// checkBatch verifies that chunks and vectors are parallel.
func checkBatch(chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("store: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	return nil
}
