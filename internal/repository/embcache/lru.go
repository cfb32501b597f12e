package embcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

// LRU is an in-process embedding cache in front of slower layers. Cached
// vectors are shared between callers and must not be modified.
type LRU struct {
	inner      domain.Embedder
	cache      *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
}

// NewLRU creates an LRU decorator holding up to size embeddings.
func NewLRU(inner domain.Embedder, size int, cacheTotal *prometheus.CounterVec) (*LRU, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRU{inner: inner, cache: c, cacheTotal: cacheTotal}, nil
}

// Embed returns a cached vector with zero tokens, or delegates and caches.
func (l *LRU) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)
	if vec, ok := l.cache.Get(key); ok {
		l.inc("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	l.inc("miss")

	res, err := l.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	l.cache.Add(key, res.Embedding)
	return res, nil
}

// BatchEmbed serves hits from memory and batches the misses.
func (l *LRU) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return batchThrough(ctx, l.inner, texts,
		func(text string) ([]float32, bool) {
			vec, ok := l.cache.Get(cacheKey(text))
			if ok {
				l.inc("hit")
			} else {
				l.inc("miss")
			}
			return vec, ok
		},
		func(text string, vec []float32) { l.cache.Add(cacheKey(text), vec) },
	)
}

// Len returns the number of cached embeddings.
func (l *LRU) Len() int { return l.cache.Len() }

func (l *LRU) inc(result string) {
	if l.cacheTotal != nil {
		l.cacheTotal.WithLabelValues("lru", result).Inc()
	}
}
