// Package vector persists document chunks with their embeddings in
// Postgres and answers nearest-neighbour queries over them.
package vector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/askdb/askdb/internal/observability"
)

// Chunk is one embedded slice of a source document.
type Chunk struct {
	Source  string
	Ordinal int
	Content string
}

// Match is a chunk returned from a similarity search together with its
// cosine distance to the query embedding.
type Match struct {
	Chunk
	Distance float64
}

// Store reads and writes embedded chunks for a single collection table.
type Store struct {
	db         *sql.DB
	collection string
	dimensions int
}

// Open connects to Postgres over the pgx stdlib driver and verifies the
// connection before returning a store.
func Open(dsn, collection string, dimensions, maxOpen, maxIdle int) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping vector store: %w", err)
	}
	return NewStore(db, collection, dimensions), nil
}

// NewStore wraps an existing connection pool. Open is the usual entry
// point; NewStore exists for tests.
func NewStore(db *sql.DB, collection string, dimensions int) *Store {
	return &Store{db: db, collection: collection, dimensions: dimensions}
}

// EnsureSchema creates the vector extension and the collection table if
// they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		ordinal INT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (source, ordinal)
	)`, quoteIdent(s.collection), s.dimensions)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create collection table: %w", err)
	}
	return nil
}

// Replace removes every chunk previously stored for the given source and
// inserts the new chunks with their embeddings in a single transaction.
func (s *Store) Replace(ctx context.Context, source string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("replace %q: %d chunks but %d embeddings", source, len(chunks), len(embeddings))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace for %q: %w", source, err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteStmt := fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, quoteIdent(s.collection))
	if _, err := tx.ExecContext(ctx, deleteStmt, source); err != nil {
		return fmt.Errorf("delete chunks for %q: %w", source, err)
	}

	insertStmt := fmt.Sprintf(`INSERT INTO %s (source, ordinal, content, embedding) VALUES ($1, $2, $3, $4)`, quoteIdent(s.collection))
	for i, chunk := range chunks {
		vec := pgvector.NewVector(embeddings[i])
		if _, err := tx.ExecContext(ctx, insertStmt, source, chunk.Ordinal, chunk.Content, vec); err != nil {
			return fmt.Errorf("insert chunk %d of %q: %w", chunk.Ordinal, source, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace for %q: %w", source, err)
	}
	return nil
}

// SearchSimilar returns up to topK chunks ordered by cosine distance to
// the query embedding, nearest first.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	started := time.Now()
	stmt := fmt.Sprintf(`SELECT source, ordinal, content, embedding <=> $1 AS distance
		FROM %s ORDER BY embedding <=> $1 LIMIT $2`, quoteIdent(s.collection))

	rows, err := s.db.QueryContext(ctx, stmt, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", s.collection, err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Source, &m.Ordinal, &m.Content, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	observability.ObserveRetrieval(time.Since(started))
	return matches, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
