// Package search adapts keyword and vector drivers to the retriever
// contracts of the search usecase.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
)

// textStore is the consumer interface for lexical search (ISP).
type textStore interface {
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// vectorStore is the consumer interface for similarity search (ISP).
type vectorStore interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// KeywordRepo implements usecase/search.FullTextIndex.
type KeywordRepo struct {
	store textStore
}

// NewKeyword creates a keyword repository.
func NewKeyword(s textStore) *KeywordRepo {
	return &KeywordRepo{store: s}
}

// SearchText returns up to k lexically ranked hits, in driver order.
func (r *KeywordRepo) SearchText(ctx context.Context, text string, k int) ([]hit.Hit, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{Query: text, TopK: k})
	if err != nil {
		return nil, classify("search bm25", err)
	}
	return toHits(sr, source.Keyword), nil
}

// VectorRepo implements usecase/search.VectorIndex.
type VectorRepo struct {
	store vectorStore
}

// NewVector creates a vector repository.
func NewVector(s vectorStore) *VectorRepo {
	return &VectorRepo{store: s}
}

// SearchVector returns up to k nearest neighbours scored by cosine
// similarity, in driver order.
func (r *VectorRepo) SearchVector(ctx context.Context, vector []float32, k int) ([]hit.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{Vector: vector, K: k})
	if err != nil {
		return nil, classify("search knn", err)
	}
	return toHits(sr, source.Semantic), nil
}

func toHits(sr *db.SearchResult, src source.Source) []hit.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	hits := make([]hit.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, hit.New(e.Key, e.Score, src))
	}
	return hits
}

// classify keeps context errors as they are so the caller can tell a
// deadline from a cancellation; everything else is an unavailable upstream.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
}
