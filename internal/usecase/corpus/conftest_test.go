package corpus

import (
	"context"
	"strings"
	"sync"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
)

// --- Mocks ---

type mockSink struct {
	name      string
	schemaErr error
	saveErr   error
	flushErr  error

	dim     int
	saved   []domdoc.Document
	vectors [][]float32
	flushed bool
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) EnsureSchema(_ context.Context, dim int) error {
	m.dim = dim
	return m.schemaErr
}

func (m *mockSink) Save(_ context.Context, docs []domdoc.Document, vectors [][]float32) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = docs
	m.vectors = vectors
	return nil
}

func (m *mockSink) Flush(_ context.Context) error {
	m.flushed = true
	return m.flushErr
}

// mockEmbedder encodes the text length into the first component so tests
// can check ordering.
type mockEmbedder struct {
	mu      sync.Mutex
	batches int
	failOn  string
	dim     int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := m.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0], TotalTokens: res.TotalTokens}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		if m.failOn != "" && strings.Contains(t, m.failOn) {
			return domain.BatchEmbeddingResult{}, domain.ErrEmbeddingFailure
		}
		v := make([]float32, m.dim)
		v[0] = float32(len(t))
		out.Embeddings[i] = v
		out.TotalTokens += 2
	}
	return out, nil
}
