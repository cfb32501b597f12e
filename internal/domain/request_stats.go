package domain

import (
	"context"
	"sync"

	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
)

type requestStatsKey struct{}

// RequestStats collects per-request facts that end up in response headers.
// The handler puts a pointer into the context before calling the service;
// retrievers write to it from their own goroutines.
type RequestStats struct {
	mu          sync.Mutex
	tokens      int
	embedded    bool // true if embedding was called, even on a cache hit with 0 tokens
	degradedSrc []source.Source
}

// NewContextWithStats returns a context carrying a fresh stats collector.
func NewContextWithStats(ctx context.Context) (context.Context, *RequestStats) {
	s := &RequestStats{}
	return context.WithValue(ctx, requestStatsKey{}, s), s
}

// StatsFromContext extracts the stats collector. Returns nil if not set.
func StatsFromContext(ctx context.Context) *RequestStats {
	s, _ := ctx.Value(requestStatsKey{}).(*RequestStats)
	return s
}

// AddEmbeddingTokens records consumed embedding tokens.
func (s *RequestStats) AddEmbeddingTokens(n int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.tokens += n
	s.embedded = true
	s.mu.Unlock()
}

// EmbeddingTokens returns the token total and whether the query was embedded at all.
func (s *RequestStats) EmbeddingTokens() (int, bool) {
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, s.embedded
}

// MarkDegraded records a retrieval source dropped from the fused ranking.
func (s *RequestStats) MarkDegraded(src source.Source) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.degradedSrc {
		if d == src {
			return
		}
	}
	s.degradedSrc = append(s.degradedSrc, src)
}

// Degraded returns the dropped sources in the order they were recorded.
func (s *RequestStats) Degraded() []source.Source {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]source.Source, len(s.degradedSrc))
	copy(out, s.degradedSrc)
	return out
}
