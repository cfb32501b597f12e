package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

// mockStore implements both consumer interfaces for tests.
type mockStore struct {
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepos(t *testing.T) (*KeywordRepo, *VectorRepo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return NewKeyword(ms), NewVector(ms), ms
}
