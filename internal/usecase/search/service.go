package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/query"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
	"github.com/kailas-cloud/hybridsearch/internal/logger"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

// Service answers keyword, semantic and hybrid searches.
type Service struct {
	keyword  retriever
	semantic retriever
	meta     MetadataStore
	cfg      Config
	logger   *zap.Logger
}

// New creates a search service. A nil logger means no logging.
func New(
	keyword FullTextIndex, vector VectorIndex, embed Embedder, meta MetadataStore,
	cfg Config, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		keyword:  keywordRetriever{index: keyword, k: cfg.KeywordTopK},
		semantic: semanticRetriever{embed: embed, index: vector, k: cfg.SemanticTopK},
		meta:     meta,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs the query through the retrievers its mode needs, fuses the
// lists and attaches metadata. limit 0 means the configured page size.
// Blank text yields an empty result without touching any backend, whatever
// the limit; an unknown mode fails first.
func (s *Service) Search(ctx context.Context, text, rawMode string, limit int) ([]result.Item, error) {
	q, err := query.New(text, rawMode, s.cfg.MaxQueryLength)
	if errors.Is(err, query.ErrEmpty) {
		return []result.Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	limit, err = s.pageSize(limit)
	if err != nil {
		return nil, err
	}

	lists, err := s.route(ctx, q)
	if err != nil {
		return nil, err
	}

	fused := fuse(lists, s.cfg.Fusion, limit)
	return s.assemble(ctx, fused)
}

func (s *Service) pageSize(limit int) (int, error) {
	switch {
	case limit == 0:
		return s.cfg.PageSize, nil
	case limit < 0 || (s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize):
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, s.cfg.MaxPageSize)
	default:
		return limit, nil
	}
}

// route fans out to the retrievers of the query mode and waits for all of
// them. Sub-queries never cancel each other; one failed side of a hybrid
// search is dropped unless the service is strict.
func (s *Service) route(ctx context.Context, q query.Query) ([]rankedList, error) {
	sources := q.Mode().Sources()
	hits := make([][]hit.Hit, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		r := s.retriever(src)
		g.Go(func() error {
			hits[i], errs[i] = s.run(ctx, r, q.Text())
			return nil
		})
	}
	_ = g.Wait()

	lists := make([]rankedList, 0, len(sources))
	var failed []error
	for i, src := range sources {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		lists = append(lists, rankedList{source: src, hits: hits[i]})
	}

	switch {
	case len(failed) == 0:
		return lists, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("search: %w", ctx.Err())
	case len(lists) == 0:
		return nil, combineFailures(failed)
	case s.cfg.Strict:
		return nil, failed[0]
	}

	for _, err := range failed {
		var re *domain.RetrievalError
		if !errors.As(err, &re) {
			continue
		}
		domain.StatsFromContext(ctx).MarkDegraded(re.Source)
		metrics.DegradedTotal.WithLabelValues(re.Source.String()).Inc()
		s.log(ctx).Warn("Search degraded to a single source",
			zap.String("dropped", re.Source.String()),
			zap.Error(err),
		)
	}
	return lists, nil
}

func (s *Service) retriever(src source.Source) retriever {
	if src == source.Semantic {
		return s.semantic
	}
	return s.keyword
}

// combineFailures joins the errors of every failed sub-query. The result
// matches ErrRetrievalTimeout when nothing but deadlines failed, and
// ErrUpstreamUnavailable or ErrEmbeddingFailure otherwise.
func combineFailures(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	joined := errors.Join(errs...)
	for _, err := range errs {
		if !errors.Is(err, domain.ErrRetrievalTimeout) {
			if errors.Is(joined, domain.ErrUpstreamUnavailable) || errors.Is(joined, domain.ErrEmbeddingFailure) {
				return joined
			}
			return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, joined)
		}
	}
	return joined
}

// log prefers the request-scoped logger so lines carry request_id.
func (s *Service) log(ctx context.Context) *zap.Logger {
	if l := logger.FromContext(ctx); l.Core().Enabled(zap.FatalLevel) {
		return l
	}
	return s.logger
}
