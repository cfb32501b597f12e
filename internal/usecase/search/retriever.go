package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

// Retrieval status labels.
const (
	statusOK        = "ok"
	statusTimeout   = "timeout"
	statusUpstream  = "upstream_error"
	statusEmbedding = "embedding_error"
	statusCanceled  = "canceled"
)

// retriever produces one ranked list for the query text.
type retriever interface {
	source() source.Source
	limit() int
	retrieve(ctx context.Context, text string) ([]hit.Hit, error)
}

type keywordRetriever struct {
	index FullTextIndex
	k     int
}

func (r keywordRetriever) source() source.Source { return source.Keyword }
func (r keywordRetriever) limit() int            { return r.k }

func (r keywordRetriever) retrieve(ctx context.Context, text string) ([]hit.Hit, error) {
	return r.index.SearchText(ctx, text, r.k)
}

type semanticRetriever struct {
	embed Embedder
	index VectorIndex
	k     int
}

func (r semanticRetriever) source() source.Source { return source.Semantic }
func (r semanticRetriever) limit() int            { return r.k }

// retrieve embeds the text and queries the vector index. Token usage is
// recorded by the embedder chain.
func (r semanticRetriever) retrieve(ctx context.Context, text string) ([]hit.Hit, error) {
	emb, err := r.embed.Embed(ctx, text)
	if err != nil {
		if isContextErr(err) || errors.Is(err, domain.ErrEmbeddingFailure) {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(emb.Embedding) == 0 {
		return nil, fmt.Errorf("embed query: %w: empty vector", domain.ErrEmbeddingFailure)
	}
	return r.index.SearchVector(ctx, emb.Embedding, r.k)
}

// run executes one sub-query under its own deadline with retries, then
// normalizes the hit list: unique ids, sorted, at most k.
func (s *Service) run(ctx context.Context, r retriever, text string) ([]hit.Hit, error) {
	src := r.source()
	log := s.log(ctx)
	start := time.Now()

	subCtx, cancel := context.WithTimeout(ctx, s.cfg.SubqueryTimeout)
	defer cancel()

	hits, err := withRetry(subCtx, s.cfg.Retry, src, log, func(ctx context.Context) ([]hit.Hit, error) {
		return r.retrieve(ctx, text)
	})
	if err != nil {
		err = s.classify(ctx, subCtx, err)
		metrics.RetrievalDuration.WithLabelValues(src.String(), statusOf(err)).
			Observe(time.Since(start).Seconds())
		return nil, domain.NewRetrievalError(src, err)
	}

	hits, dups := hit.Dedupe(hits)
	if len(dups) > 0 {
		log.Warn("Duplicate documents in retriever output",
			zap.String("source", src.String()),
			zap.Strings("doc_ids", dups),
		)
	}
	hit.Sort(hits)
	hits = hit.Truncate(hits, r.limit())

	metrics.RetrievalDuration.WithLabelValues(src.String(), statusOK).
		Observe(time.Since(start).Seconds())
	return hits, nil
}

// classify maps context failures onto the sentinel set. A cancelled request
// stays context.Canceled; a spent sub-query deadline becomes
// ErrRetrievalTimeout. Anything else was classified by the repositories.
func (s *Service) classify(parent, sub context.Context, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return parent.Err()
	}
	if errors.Is(sub.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s (last error: %v)", domain.ErrRetrievalTimeout, s.cfg.SubqueryTimeout, err)
	}
	if errors.Is(err, domain.ErrUpstreamUnavailable) || errors.Is(err, domain.ErrEmbeddingFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return statusCanceled
	case errors.Is(err, domain.ErrRetrievalTimeout):
		return statusTimeout
	case errors.Is(err, domain.ErrEmbeddingFailure):
		return statusEmbedding
	default:
		return statusUpstream
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
