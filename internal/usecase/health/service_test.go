package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

func healthy() Components {
	return Components{
		Keyword:   &mockPinger{},
		Vector:    &mockPinger{},
		Metadata:  &mockPinger{},
		Embedding: &mockEmbeddingChecker{},
	}
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	r := New(healthy()).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{Keyword, Vector, Metadata, Embedding} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_Aggregation(t *testing.T) {
	down := errors.New("conn refused")
	tests := []struct {
		name   string
		mutate func(*Components)
		want   Status
	}{
		{"keyword down", func(c *Components) { c.Keyword = &mockPinger{err: down} }, Degraded},
		{"vector down", func(c *Components) { c.Vector = &mockPinger{err: down} }, Degraded},
		{"embedding down", func(c *Components) { c.Embedding = &mockEmbeddingChecker{err: down} }, Degraded},
		{"metadata down", func(c *Components) { c.Metadata = &mockPinger{err: down} }, Unhealthy},
		{"both retrievers down", func(c *Components) {
			c.Keyword = &mockPinger{err: down}
			c.Embedding = &mockEmbeddingChecker{err: down}
		}, Unhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := healthy()
			tc.mutate(&c)
			r := New(c).Check(context.Background())
			if r.Status != tc.want {
				t.Errorf("expected %q, got %q (%v)", tc.want, r.Status, r.Checks)
			}
		})
	}
}

func TestCheck_NilEmbedding(t *testing.T) {
	c := healthy()
	c.Embedding = nil
	r := New(c).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[Embedding]; ok {
		t.Error("expected no embedding check when checker is nil")
	}
}
