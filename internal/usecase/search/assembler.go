package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

// assemble joins fused results with their metadata in one batch read.
// Ids without metadata are dropped.
func (s *Service) assemble(ctx context.Context, fused []result.Fused) ([]result.Item, error) {
	if len(fused) == 0 {
		return []result.Item{}, nil
	}

	ids := make([]string, len(fused))
	for i := range fused {
		ids[i] = fused[i].DocID()
	}

	docs, err := s.meta.GetMany(ctx, ids)
	if err != nil {
		if isContextErr(err) || errors.Is(err, domain.ErrUpstreamUnavailable) {
			return nil, fmt.Errorf("get metadata: %w", err)
		}
		return nil, fmt.Errorf("get metadata: %w: %w", domain.ErrUpstreamUnavailable, err)
	}

	items := make([]result.Item, 0, len(fused))
	var missing []string
	for _, f := range fused {
		doc, ok := docs[f.DocID()]
		if !ok {
			missing = append(missing, f.DocID())
			continue
		}
		items = append(items, result.NewItem(f, doc.Title(), doc.Body()))
	}

	if len(missing) > 0 {
		metrics.MetadataMissingTotal.Add(float64(len(missing)))
		s.log(ctx).Warn("Dropping fused documents without metadata",
			zap.Strings("doc_ids", missing),
			zap.Error(domain.ErrNotFound),
		)
	}
	return items, nil
}
