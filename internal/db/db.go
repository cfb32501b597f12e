// Package db defines the storage contracts every backend driver speaks.
// A driver implements the subset matching the roles it can serve: keyword
// index, vector index, document metadata, embedding cache.
package db

import (
	"context"
	"time"
)

// Backend is the lifecycle every driver shares.
type Backend interface {
	Pinger
	Close() error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TextSearcher ranks documents lexically (BM25 or an equivalent).
type TextSearcher interface {
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
}

// VectorSearcher ranks documents by vector similarity.
type VectorSearcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// DocumentReader loads documents by id. Missing ids are omitted from the
// result; order follows keys.
type DocumentReader interface {
	ReadDocuments(ctx context.Context, keys []string) ([]Record, error)
}

// DocumentWriter upserts documents. Drivers ignore the fields they do not
// index (a vector-only store ignores Title and Body).
type DocumentWriter interface {
	WriteDocuments(ctx context.Context, records []Record) error
}

// SchemaManager creates tables or indexes for the given vector dimension.
// It is idempotent.
type SchemaManager interface {
	EnsureSchema(ctx context.Context, dim int) error
}

// Flusher persists in-memory structures to disk.
type Flusher interface {
	Flush(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
