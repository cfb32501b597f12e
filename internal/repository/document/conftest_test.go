package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

// mockStore implements the consumer interfaces for tests.
type mockStore struct {
	readFn   func(ctx context.Context, keys []string) ([]db.Record, error)
	writeFn  func(ctx context.Context, records []db.Record) error
	schemaFn func(ctx context.Context, dim int) error
}

func (m *mockStore) ReadDocuments(ctx context.Context, keys []string) ([]db.Record, error) {
	if m.readFn != nil {
		return m.readFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) WriteDocuments(ctx context.Context, records []db.Record) error {
	if m.writeFn != nil {
		return m.writeFn(ctx, records)
	}
	return nil
}

func (m *mockStore) EnsureSchema(ctx context.Context, dim int) error {
	if m.schemaFn != nil {
		return m.schemaFn(ctx, dim)
	}
	return nil
}

// flushingStore adds db.Flusher.
type flushingStore struct {
	mockStore
	flushed int
}

func (f *flushingStore) Flush(context.Context) error {
	f.flushed++
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
