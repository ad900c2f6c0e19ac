package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

const (
	// Default HNSW index parameters.
	defaultEFConstruction = 200
	defaultM              = 16

	// Field names in each Redis hash.
	fieldText   = "text"
	fieldSource = "source"
	fieldSeq    = "seq"
	fieldVector = "vector"

	// scoreAlias names the KNN distance in search replies.
	scoreAlias = "__score"
)

// RedisConfig holds Redis connection and index configuration.
type RedisConfig struct {
	// Addr is the host:port of the Redis server (default: localhost:6379).
	Addr string
	// Password is the optional AUTH password.
	Password string
	// DB selects the logical database.
	DB int
	// IndexName is the RediSearch index name (default: pdfqa). Hash keys are
	// prefixed with "<IndexName>:chunk:".
	IndexName string
	// VectorDim is the embedding size fixed at index creation.
	VectorDim int
}

// RedisStore implements rag.VectorStore on Redis with the RediSearch module.
// Chunks are stored as hashes and searched through an HNSW cosine index.
type RedisStore struct {
	client    *redis.Client
	index     string
	keyPrefix string
	seqKey    string
	dim       int
}

// NewRedisStore connects to Redis and ensures the vector index exists.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "pdfqa"
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("redis: vector dimension must be positive")
	}

	// RESP2 keeps FT.* replies as flat arrays.
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to connect to %s: %w", cfg.Addr, err)
	}

	s := &RedisStore{
		client:    client,
		index:     cfg.IndexName,
		keyPrefix: cfg.IndexName + ":chunk:",
		seqKey:    cfg.IndexName + ":seq",
		dim:       cfg.VectorDim,
	}
	if err := s.ensureIndex(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// ensureIndex creates the HNSW vector index if it does not exist.
func (s *RedisStore) ensureIndex(ctx context.Context) error {
	if _, err := s.client.Do(ctx, "FT.INFO", s.index).Result(); err == nil {
		return nil
	}

	_, err := s.client.Do(ctx, "FT.CREATE", s.index,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(defaultEFConstruction),
		"M", strconv.Itoa(defaultM),
		fieldText, "TEXT",
		fieldSource, "TAG",
		fieldSeq, "NUMERIC", "SORTABLE",
	).Result()
	if err != nil {
		return fmt.Errorf("redis: create index %q: %w", s.index, err)
	}
	return nil
}

// Add stores each chunk as a hash keyed by a sequence number reserved with a
// single INCRBY.
func (s *RedisStore) Add(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	last, err := s.client.IncrBy(ctx, s.seqKey, int64(len(chunks))).Result()
	if err != nil {
		return fmt.Errorf("redis: reserve sequence: %w", err)
	}
	first := last - int64(len(chunks)) + 1

	pipe := s.client.TxPipeline()
	for i, c := range chunks {
		seq := first + int64(i)
		pipe.HSet(ctx, s.keyPrefix+strconv.FormatInt(seq, 10),
			fieldText, c.Text,
			fieldSource, c.SourceID,
			fieldSeq, seq,
			fieldVector, encodeVector(vectors[i]),
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: insert chunks: %w", err)
	}
	return nil
}

// Search runs a KNN query and converts cosine distance to similarity.
func (s *RedisStore) Search(ctx context.Context, query []float32, topK int) ([]rag.ScoredChunk, error) {
	if topK <= 0 {
		return []rag.ScoredChunk{}, nil
	}

	n := candidateLimit(topK)
	q := fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", n, fieldVector, scoreAlias)
	reply, err := s.client.Do(ctx, "FT.SEARCH", s.index, q,
		"PARAMS", "2", "vec", encodeVector(query),
		"SORTBY", scoreAlias, "ASC",
		"RETURN", "4", fieldText, fieldSource, fieldSeq, scoreAlias,
		"LIMIT", "0", strconv.Itoa(n),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: search: %w", err)
	}

	hits, err := parseSearchReply(reply)
	if err != nil {
		return nil, err
	}
	return rank(hits, topK), nil
}

// Count returns num_docs from FT.INFO.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	info, err := s.client.Do(ctx, "FT.INFO", s.index).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: index info: %w", err)
	}
	return parseNumDocs(info)
}

// Reset drops the index together with its documents and recreates it.
func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.client.Do(ctx, "FT.DROPINDEX", s.index, "DD").Err(); err != nil {
		return fmt.Errorf("redis: drop index %q: %w", s.index, err)
	}
	return s.ensureIndex(ctx)
}

// Ping sends PING.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (s *RedisStore) Name() string { return "redis" }

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// parseSearchReply decodes a RESP2 FT.SEARCH reply of the form
// [total, key1, [field, value, ...], key2, [...], ...].
func parseSearchReply(reply any) ([]hit, error) {
	values, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("redis: unexpected search reply %T", reply)
	}
	if len(values) == 0 {
		return nil, nil
	}

	hits := make([]hit, 0, (len(values)-1)/2)
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}
		var h hit
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			val := replyString(fields[j+1])
			switch name {
			case fieldText:
				h.chunk.Text = val
			case fieldSource:
				h.chunk.SourceID = val
			case fieldSeq:
				h.seq, _ = strconv.ParseInt(val, 10, 64)
			case scoreAlias:
				d, err := strconv.ParseFloat(val, 32)
				if err != nil {
					return nil, fmt.Errorf("redis: parse distance %q: %w", val, err)
				}
				h.score = 1 - float32(d)
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// parseNumDocs finds num_docs in a RESP2 FT.INFO reply.
func parseNumDocs(info any) (int, error) {
	values, ok := info.([]any)
	if !ok {
		return 0, fmt.Errorf("redis: unexpected info reply %T", info)
	}
	for i := 0; i+1 < len(values); i += 2 {
		if key, _ := values[i].(string); key != "num_docs" {
			continue
		}
		switch v := values[i+1].(type) {
		case int64:
			return int(v), nil
		case string:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0, fmt.Errorf("redis: parse num_docs %q: %w", v, err)
			}
			return int(n), nil
		}
	}
	return 0, errors.New("redis: num_docs missing from index info")
}

// replyString renders a RESP2 scalar as a string.
func replyString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
