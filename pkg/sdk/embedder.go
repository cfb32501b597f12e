package hybridsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

// Embedder converts text to a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single call.
// Optional: seeding uses it when the Embedder also implements it.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker is implemented by embedders that can report provider
// availability. Health includes an "embedding" check only for those.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries vectors in input order and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// embedderAdapter bridges the public Embedder to domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(r.Embeddings) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: got %d vectors for %d texts", len(r.Embeddings), len(texts))
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// checkingAdapter is used when the caller's embedder has a health check, so
// that the composition root sees domain.HealthChecker.
type checkingAdapter struct {
	embedderAdapter
	hc HealthChecker
}

func (a *checkingAdapter) HealthCheck(ctx context.Context) error {
	return a.hc.HealthCheck(ctx)
}

func adapt(e Embedder) domain.Embedder {
	if hc, ok := e.(HealthChecker); ok {
		return &checkingAdapter{embedderAdapter: embedderAdapter{inner: e}, hc: hc}
	}
	return &embedderAdapter{inner: e}
}

var errNoEmbedder = errors.New("hybridsearch: no embedder configured (use WithEmbedder or WithOpenAI)")

// noopEmbedder stands in when no embedder is configured.
type noopEmbedder struct{}

func (noopEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errNoEmbedder
}
