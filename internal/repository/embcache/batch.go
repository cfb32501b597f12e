package embcache

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

// batchThrough resolves texts through a cache: hits come from lookup, the
// misses go to inner in one batch and are written back with store. Tokens
// count the misses only.
func batchThrough(
	ctx context.Context,
	inner domain.Embedder,
	texts []string,
	lookup func(text string) ([]float32, bool),
	store func(text string, vec []float32),
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		if vec, ok := lookup(text); ok {
			out.Embeddings[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	res, err := domain.BatchEmbed(ctx, inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed %d texts: %w", len(missTexts), err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: got %d embeddings for %d texts",
			len(res.Embeddings), len(missTexts))
	}

	for j, i := range missIdx {
		out.Embeddings[i] = res.Embeddings[j]
		store(missTexts[j], res.Embeddings[j])
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens
	return out, nil
}
