// Package redis implements the keyword index, vector index, metadata store
// and embedding cache on Redis 8+ with the query engine (FT.*) via rueidis.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

// Compile-time checks: Store serves every role.
var (
	_ db.Backend        = (*Store)(nil)
	_ db.TextSearcher   = (*Store)(nil)
	_ db.VectorSearcher = (*Store)(nil)
	_ db.DocumentReader = (*Store)(nil)
	_ db.DocumentWriter = (*Store)(nil)
	_ db.SchemaManager  = (*Store)(nil)
	_ db.KVStore        = (*Store)(nil)
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string // prepended to every key, e.g. "hybridsearch:"
	IndexName string
	FlatIndex bool // brute-force FLAT vector index instead of HNSW
	HNSWM     int
	HNSWEF    int
}

// Store implements the db contracts via rueidis for Redis 8+.
type Store struct {
	client rueidis.Client
	prefix string
	index  string
	flat   bool
	hnswM  int
	hnswEF int
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg), nil
}

func newStore(client rueidis.Client, cfg Config) *Store {
	index := cfg.IndexName
	if index == "" {
		index = "hybridsearch_idx"
	}
	return &Store{
		client: client,
		prefix: cfg.KeyPrefix,
		index:  index,
		flat:   cfg.FlatIndex,
		hnswM:  cfg.HNSWM,
		hnswEF: cfg.HNSWEF,
	}
}

// IndexName returns the FT index documents are indexed under.
func (s *Store) IndexName() string { return s.index }

func (s *Store) docPrefix() string { return s.prefix + "doc:" }

func (s *Store) docKey(id string) string { return s.docPrefix() + id }

// docID maps a hash key from FT.SEARCH back to a document id.
func (s *Store) docID(key string) string { return strings.TrimPrefix(key, s.docPrefix()) }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
