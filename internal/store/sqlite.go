package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/54b3r/pdfqa-go/internal/rag"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SQLiteStore is a rag.VectorStore backed by a local SQLite database.
// Similarity search is a full cosine scan, which is adequate for the chunk
// counts a single document produces.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection avoids SQLITE_BUSY and keeps ":memory:" databases
	// from splitting across pool connections.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chunks (
    seq     INTEGER PRIMARY KEY AUTOINCREMENT,
    source  TEXT    NOT NULL,
    text    TEXT    NOT NULL,
    dim     INTEGER NOT NULL,
    vector  BLOB    NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Add appends chunks with their embeddings in a single transaction.
func (s *SQLiteStore) Add(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: add: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (source, text, dim, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: add: prepare: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.SourceID, c.Text, len(vectors[i]), encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("store: add: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: add: commit: %w", err)
	}
	return nil
}

// Search scans every stored vector and returns the topK closest by cosine
// similarity. Equal scores keep insertion order.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, topK int) ([]rag.ScoredChunk, error) {
	if topK <= 0 {
		return []rag.ScoredChunk{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT seq, source, text, vector FROM chunks ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var hits []hit
	for rows.Next() {
		var (
			h    hit
			blob []byte
		)
		if err := rows.Scan(&h.seq, &h.chunk.SourceID, &h.chunk.Text, &blob); err != nil {
			return nil, fmt.Errorf("store: search scan: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		h.score = rag.Cosine(query, vec)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: search rows: %w", err)
	}
	return rank(hits, topK), nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Reset deletes every chunk. Sequence numbers keep increasing afterwards.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("store: reset: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
