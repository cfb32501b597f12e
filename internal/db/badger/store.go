// Package badger implements the metadata store and the embedding cache KV
// on an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

var (
	_ db.Backend        = (*Store)(nil)
	_ db.DocumentReader = (*Store)(nil)
	_ db.DocumentWriter = (*Store)(nil)
	_ db.SchemaManager  = (*Store)(nil)
	_ db.Flusher        = (*Store)(nil)
	_ db.KVStore        = (*Store)(nil)
)

const (
	docPrefix = "doc:"
	kvPrefix  = "kv:"
)

// Config selects where the database lives. An empty Dir means in-memory.
type Config struct {
	Dir    string
	Logger *zap.Logger
}

// Store wraps a BadgerDB instance.
type Store struct {
	db *badger.DB
}

type docValue struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// zapAdapter routes badger's internal logging through zap.
type zapAdapter struct {
	s *zap.SugaredLogger
}

var _ badger.Logger = (*zapAdapter)(nil)

func (a *zapAdapter) Errorf(msg string, args ...any)   { a.s.Errorf(msg, args...) }
func (a *zapAdapter) Warningf(msg string, args ...any) { a.s.Warnf(msg, args...) }
func (a *zapAdapter) Infof(msg string, args ...any)    { a.s.Debugf(msg, args...) }
func (a *zapAdapter) Debugf(msg string, args ...any)   { a.s.Debugf(msg, args...) }

// Open opens or creates the database.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.Dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}

	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	opts.Logger = &zapAdapter{s: l.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return &Store{db: bdb}, nil
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema is a no-op: Badger is schemaless.
func (s *Store) EnsureSchema(context.Context, int) error { return nil }

// Flush syncs the value log to disk.
func (s *Store) Flush(_ context.Context) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpFlush, Err: db.ErrClosed}
	}
	if s.db.Opts().InMemory {
		return nil
	}
	return db.Wrap(db.OpFlush, s.db.Sync())
}

// WriteDocuments stores title and body of each record. Vectors are not kept.
func (s *Store) WriteDocuments(_ context.Context, records []db.Record) error {
	if len(records) == 0 {
		return nil
	}
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpWrite, Err: db.ErrClosed}
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range records {
		val, err := json.Marshal(docValue{Title: r.Title, Body: r.Body})
		if err != nil {
			return &db.Error{Op: db.OpWrite, Err: err}
		}
		if err := wb.Set([]byte(docPrefix+r.Key), val); err != nil {
			return &db.Error{Op: db.OpWrite, Err: fmt.Errorf("document %s: %w", r.Key, err)}
		}
	}
	return db.Wrap(db.OpWrite, wb.Flush())
}

// ReadDocuments loads documents in one read transaction. Missing ids are
// omitted.
func (s *Store) ReadDocuments(_ context.Context, ids []string) ([]db.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if s.db.IsClosed() {
		return nil, &db.Error{Op: db.OpRead, Err: db.ErrClosed}
	}

	out := make([]db.Record, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			item, err := txn.Get([]byte(docPrefix + id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			var v docValue
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
				return fmt.Errorf("document %s: %w", id, err)
			}
			out = append(out, db.Record{Key: id, Title: v.Title, Body: v.Body})
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpRead, Err: err}
	}
	return out, nil
}

// Get returns the value of key or db.ErrKeyNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(kvPrefix + key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return val, nil
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores value under key. A non-positive ttl means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(kvPrefix+key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	return db.Wrap(db.OpSet, err)
}
