package hybridsearch

import (
	"context"
	"strings"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	corpusuc "github.com/kailas-cloud/hybridsearch/internal/usecase/corpus"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, text, rawMode string, limit int) ([]result.Item, error)
}

func (m *mockSearchUC) Search(ctx context.Context, text, rawMode string, limit int) ([]result.Item, error) {
	return m.searchFn(ctx, text, rawMode, limit)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- corpusUseCase mock ---

type mockCorpusUC struct {
	seedFn func(ctx context.Context, docs []domdoc.Document) (corpusuc.Result, error)
}

func (m *mockCorpusUC) Seed(ctx context.Context, docs []domdoc.Document) (corpusuc.Result, error) {
	return m.seedFn(ctx, docs)
}

// --- closer mock ---

type mockCloser struct {
	calls int
	err   error
}

func (m *mockCloser) Close() error {
	m.calls++
	return m.err
}

// --- embedders ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// vocabEmbedder maps text onto a tiny bag-of-words space; the trailing
// constant keeps every vector non-zero.
type vocabEmbedder struct{}

var vocab = []string{"solar", "wind", "energy", "vector", "search", "cach"}

const vocabDim = 7

func (*vocabEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	text = strings.ToLower(text)
	v := make([]float32, vocabDim)
	for i, w := range vocab {
		v[i] = float32(strings.Count(text, w))
	}
	v[vocabDim-1] = 1
	return EmbeddingResult{Embedding: v, PromptTokens: 2, TotalTokens: 2}, nil
}

// checkingEmbedder adds a health check to vocabEmbedder.
type checkingEmbedder struct {
	vocabEmbedder
	err error
}

func (e *checkingEmbedder) HealthCheck(context.Context) error { return e.err }

func newMockClient(s searchUseCase, h healthUseCase, c corpusUseCase) *Client {
	return &Client{searchSvc: s, healthSvc: h, corpusSvc: c}
}

var _ domain.HealthChecker = (*checkingAdapter)(nil)
