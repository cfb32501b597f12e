package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
)

// --- Fakes ---

type fakeKeyword struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int, text string) ([]hit.Hit, error)
}

func (f *fakeKeyword) SearchText(ctx context.Context, text string, _ int) ([]hit.Hit, error) {
	n := int(f.calls.Add(1))
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(ctx, n, text)
}

type fakeVector struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int) ([]hit.Hit, error)
}

func (f *fakeVector) SearchVector(ctx context.Context, _ []float32, _ int) ([]hit.Hit, error) {
	n := int(f.calls.Add(1))
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(ctx, n)
}

type fakeEmbedder struct {
	calls atomic.Int32
	err   func(call int) error
}

func (f *fakeEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	n := int(f.calls.Add(1))
	if f.err != nil {
		if err := f.err(n); err != nil {
			return domain.EmbeddingResult{}, err
		}
	}
	domain.StatsFromContext(ctx).AddEmbeddingTokens(3)
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: 3}, nil
}

type fakeMeta struct {
	calls atomic.Int32
	docs  map[string]domdoc.Document
	err   error
}

func (f *fakeMeta) GetMany(_ context.Context, ids []string) (map[string]domdoc.Document, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domdoc.Document, len(ids))
	for _, id := range ids {
		if d, ok := f.docs[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

// --- Helpers ---

type fixture struct {
	kw    *fakeKeyword
	vec   *fakeVector
	emb   *fakeEmbedder
	meta  *fakeMeta
	cfg   Config
	hitsK []hit.Hit
	hitsS []hit.Hit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		emb:  &fakeEmbedder{},
		meta: &fakeMeta{docs: corpus("1", "2", "3", "4", "5", "10")},
		cfg:  DefaultConfig(),
	}
	f.cfg.SubqueryTimeout = 200 * time.Millisecond
	f.cfg.Retry.Backoff = time.Millisecond
	f.cfg.Retry.MaxBackoff = 2 * time.Millisecond
	f.hitsK = []hit.Hit{kwHit("1", 3.2), kwHit("2", 1.1), kwHit("3", 0.4)}
	f.hitsS = []hit.Hit{semHit("2", 0.91), semHit("4", 0.85), semHit("1", 0.40)}
	f.kw = &fakeKeyword{fn: func(context.Context, int, string) ([]hit.Hit, error) { return f.hitsK, nil }}
	f.vec = &fakeVector{fn: func(context.Context, int) ([]hit.Hit, error) { return f.hitsS, nil }}
	return f
}

func (f *fixture) service() *Service {
	return New(f.kw, f.vec, f.emb, f.meta, f.cfg, nil)
}

func corpus(ids ...string) map[string]domdoc.Document {
	out := make(map[string]domdoc.Document, len(ids))
	for _, id := range ids {
		out[id] = domdoc.Reconstruct(id, "title "+id, "body "+id)
	}
	return out
}

func kwHit(id string, score float64) hit.Hit {
	return hit.New(id, score, source.Keyword)
}

func semHit(id string, score float64) hit.Hit {
	return hit.New(id, score, source.Semantic)
}

// blockUntilDone waits for the sub-query deadline like a hung backend.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
