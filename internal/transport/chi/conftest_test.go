package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/hybridsearch/internal/usecase/search"
)

// --- Mocks ---

type mockKeyword struct {
	calls int
	hits  []hit.Hit
	err   error
	block bool
}

func (m *mockKeyword) SearchText(ctx context.Context, _ string, _ int) ([]hit.Hit, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.hits, m.err
}

func (m *mockKeyword) Ping(context.Context) error { return m.err }

type mockVector struct {
	calls int
	hits  []hit.Hit
	err   error
}

func (m *mockVector) SearchVector(context.Context, []float32, int) ([]hit.Hit, error) {
	m.calls++
	return m.hits, m.err
}

func (m *mockVector) Ping(context.Context) error { return m.err }

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	domain.StatsFromContext(ctx).AddEmbeddingTokens(7)
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 7}, nil
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.err }

type mockMeta struct {
	err error
}

func (m *mockMeta) GetMany(_ context.Context, ids []string) (map[string]domdoc.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]domdoc.Document, len(ids))
	for _, id := range ids {
		out[id] = domdoc.Reconstruct(id, "title "+id, "body "+id)
	}
	return out, nil
}

func (m *mockMeta) Ping(context.Context) error { return m.err }

// --- Helpers ---

type testEnv struct {
	kw   *mockKeyword
	vec  *mockVector
	emb  *mockEmbedder
	meta *mockMeta
	cfg  searchuc.Config
}

func newTestEnv() *testEnv {
	cfg := searchuc.DefaultConfig()
	cfg.SubqueryTimeout = 50 * time.Millisecond
	cfg.Retry.MaxRetries = 0
	return &testEnv{
		kw: &mockKeyword{hits: []hit.Hit{
			hit.New("1", 2.0, source.Keyword),
			hit.New("2", 1.0, source.Keyword),
		}},
		vec: &mockVector{hits: []hit.Hit{
			hit.New("2", 0.9, source.Semantic),
			hit.New("3", 0.5, source.Semantic),
		}},
		emb:  &mockEmbedder{},
		meta: &mockMeta{},
		cfg:  cfg,
	}
}

func searchServiceFor(e *testEnv) *searchuc.Service {
	return searchuc.New(e.kw, e.vec, e.emb, e.meta, e.cfg, zap.NewNop())
}

func healthServiceFor(e *testEnv) *healthuc.Service {
	return healthuc.New(healthuc.Components{
		Keyword:   e.kw,
		Vector:    e.vec,
		Metadata:  e.meta,
		Embedding: e.emb,
	})
}

func (e *testEnv) handler(t *testing.T, rc RouterConfig) http.Handler {
	t.Helper()
	return NewRouter(NewServer(searchServiceFor(e), healthServiceFor(e), zap.NewNop()), rc, zap.NewNop())
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
