// Package postgres implements the keyword index, vector index and metadata
// store on PostgreSQL with full-text search (ts_rank) and pgvector.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

// Compile-time checks: Store serves keyword, vector and metadata roles.
var (
	_ db.Backend        = (*Store)(nil)
	_ db.TextSearcher   = (*Store)(nil)
	_ db.VectorSearcher = (*Store)(nil)
	_ db.DocumentReader = (*Store)(nil)
	_ db.DocumentWriter = (*Store)(nil)
	_ db.SchemaManager  = (*Store)(nil)
)

// Config holds connection parameters for a Postgres store.
type Config struct {
	DSN              string
	TextSearchConfig string // regconfig name, e.g. "english"
	MaxConns         int32
}

// Store implements the db contracts on a pgx connection pool.
type Store struct {
	pool    *pgxpool.Pool
	queries queries
}

// NewStore connects a pool. The database must have the pgvector extension
// available; EnsureSchema enables it.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	q, err := newQueries(cfg.TextSearchConfig)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return &Store{pool: pool, queries: q}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return db.Wrap(db.OpPing, s.pool.Ping(ctx))
}

// Close releases all pool connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema enables pgvector and creates the documents table and indexes.
func (s *Store) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	for _, stmt := range s.queries.schema(dim) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpSchema, Err: err}
		}
	}
	return nil
}

// SearchBM25 ranks documents with ts_rank over title and body.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	return s.search(ctx, s.queries.text, q.Query, q.TopK)
}

// SearchKNN ranks documents by cosine similarity (1 - cosine distance).
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	return s.search(ctx, knnSQL, pgvector.NewVector(q.Vector), q.K)
}

func (s *Store) search(ctx context.Context, sql string, arg any, limit int) (*db.SearchResult, error) {
	rows, err := s.pool.Query(ctx, sql, arg, limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	var entries []db.SearchEntry
	for rows.Next() {
		var e db.SearchEntry
		if err := rows.Scan(&e.Key, &e.Score); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// ReadDocuments loads documents by id in one query. Missing ids are omitted.
func (s *Store) ReadDocuments(ctx context.Context, ids []string) ([]db.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, readSQL, ids)
	if err != nil {
		return nil, &db.Error{Op: db.OpRead, Err: err}
	}
	defer rows.Close()

	byID := make(map[string]db.Record, len(ids))
	for rows.Next() {
		var r db.Record
		if err := rows.Scan(&r.Key, &r.Title, &r.Body); err != nil {
			return nil, &db.Error{Op: db.OpRead, Err: err}
		}
		byID[r.Key] = r
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpRead, Err: err}
	}

	return orderRecords(ids, byID), nil
}

// WriteDocuments upserts records in a single batch round-trip. A record
// without a vector keeps any embedding already stored.
func (s *Store) WriteDocuments(ctx context.Context, records []db.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range records {
		r := &records[i]
		var vec any
		if len(r.Vector) > 0 {
			vec = pgvector.NewVector(r.Vector)
		}
		batch.Queue(upsertSQL, r.Key, r.Title, r.Body, vec)
	}

	br := s.pool.SendBatch(ctx, batch)
	for i := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return &db.Error{Op: db.OpWrite, Err: fmt.Errorf("id %s: %w", records[i].Key, err)}
		}
	}
	return db.Wrap(db.OpWrite, br.Close())
}

func orderRecords(ids []string, byID map[string]db.Record) []db.Record {
	out := make([]db.Record, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id) // duplicate ids yield one record
		}
	}
	return out
}
