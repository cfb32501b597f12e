package hybridsearch

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
)

func TestSearchBuilder_PassesParameters(t *testing.T) {
	var gotText, gotMode string
	var gotLimit int
	c := newMockClient(&mockSearchUC{
		searchFn: func(_ context.Context, text, rawMode string, limit int) ([]result.Item, error) {
			gotText, gotMode, gotLimit = text, rawMode, limit
			return []result.Item{}, nil
		},
	}, nil, nil)

	resp, err := c.Search().Query("solar power").Mode(ModeKeyword).Limit(3).Do(context.Background())
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotText != "solar power" || gotMode != "keyword" || gotLimit != 3 {
		t.Errorf("unexpected call: %q %q %d", gotText, gotMode, gotLimit)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", resp.Results)
	}
}

func TestSearchBuilder_DefaultModeIsEmpty(t *testing.T) {
	var gotMode = "unset"
	c := newMockClient(&mockSearchUC{
		searchFn: func(_ context.Context, _, rawMode string, _ int) ([]result.Item, error) {
			gotMode = rawMode
			return nil, nil
		},
	}, nil, nil)

	if _, err := c.Search().Query("x").Do(context.Background()); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotMode != "" {
		t.Errorf("expected empty mode to reach the service, got %q", gotMode)
	}
}

func TestSearchBuilder_MapsResults(t *testing.T) {
	c := newMockClient(&mockSearchUC{
		searchFn: func(ctx context.Context, _, _ string, _ int) ([]result.Item, error) {
			stats := domain.StatsFromContext(ctx)
			stats.AddEmbeddingTokens(5)
			stats.MarkDegraded(source.Keyword)
			return []result.Item{
				result.NewItem(result.NewFused("12", 0.9, nil, result.Float(0.8)), "Solar Power Efficiency", "panels"),
				result.NewItem(result.NewFused("3", 0.4, nil, result.Float(0.3)), "Wind", "turbines"),
			}, nil
		},
	}, nil, nil)

	resp, err := c.Search().Query("solar").Do(context.Background())
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	first := resp.Results[0]
	if first.ID != "12" || first.Title != "Solar Power Efficiency" || first.Score != 0.9 {
		t.Errorf("unexpected first result %+v", first)
	}
	if first.KeywordScore != nil {
		t.Errorf("expected nil keyword score, got %v", *first.KeywordScore)
	}
	if first.SemanticScore == nil || *first.SemanticScore != 0.8 {
		t.Errorf("unexpected semantic score %v", first.SemanticScore)
	}
	if len(resp.Degraded) != 1 || resp.Degraded[0] != "keyword" {
		t.Errorf("expected keyword degraded, got %v", resp.Degraded)
	}
	if resp.EmbeddingTokens != 5 || !resp.Embedded {
		t.Errorf("unexpected token stats %d/%v", resp.EmbeddingTokens, resp.Embedded)
	}
}

func TestSearchBuilder_Error(t *testing.T) {
	c := newMockClient(&mockSearchUC{
		searchFn: func(context.Context, string, string, int) ([]result.Item, error) {
			return nil, domain.ErrRetrievalTimeout
		},
	}, nil, nil)

	resp, err := c.Search().Query("x").Do(context.Background())
	if !errors.Is(err, ErrRetrievalTimeout) {
		t.Fatalf("expected ErrRetrievalTimeout, got %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil response on error")
	}
}
