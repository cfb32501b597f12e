package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

// withRetry runs attempt until it succeeds, fails with a non-retryable error,
// exhausts MaxRetries, or ctx ends. Backoff doubles up to MaxBackoff.
func withRetry(
	ctx context.Context, p RetryPolicy, src source.Source, log *zap.Logger,
	attempt func(ctx context.Context) ([]hit.Hit, error),
) ([]hit.Hit, error) {
	backoff := p.Backoff
	for n := 0; ; n++ {
		res, err := attempt(ctx)
		if err == nil || n >= p.MaxRetries || !domain.IsRetryable(err) || ctx.Err() != nil {
			return res, err
		}

		metrics.RetrievalRetriesTotal.WithLabelValues(src.String()).Inc()
		log.Debug("Retrying sub-query",
			zap.String("source", src.String()),
			zap.Int("attempt", n+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		if !sleep(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = min(backoff*2, p.MaxBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
