// Package document adapts metadata drivers to the document contracts of
// the search and corpus usecases.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
)

// reader is the consumer interface for metadata lookups (ISP).
type reader interface {
	ReadDocuments(ctx context.Context, keys []string) ([]db.Record, error)
}

// Repo implements usecase/search.MetadataStore.
type Repo struct {
	store reader
}

// New creates a document repository.
func New(s reader) *Repo {
	return &Repo{store: s}
}

// GetMany loads documents by id in one driver call. Ids without a stored
// document are absent from the map.
func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]domdoc.Document, error) {
	out := make(map[string]domdoc.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	records, err := r.store.ReadDocuments(ctx, ids)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("read documents: %w", err)
		}
		return nil, fmt.Errorf("read documents: %w: %w", domain.ErrUpstreamUnavailable, err)
	}

	for _, rec := range records {
		out[rec.Key] = domdoc.Reconstruct(rec.Key, rec.Title, rec.Body)
	}
	return out, nil
}
