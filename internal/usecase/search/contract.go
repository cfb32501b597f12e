package search

import (
	"context"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
)

// FullTextIndex ranks documents lexically.
type FullTextIndex interface {
	SearchText(ctx context.Context, text string, k int) ([]hit.Hit, error)
}

// VectorIndex returns nearest neighbours by cosine similarity.
type VectorIndex interface {
	SearchVector(ctx context.Context, vector []float32, k int) ([]hit.Hit, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// MetadataStore resolves titles and bodies. Missing ids are omitted from the map.
type MetadataStore interface {
	GetMany(ctx context.Context, ids []string) (map[string]domdoc.Document, error)
}
