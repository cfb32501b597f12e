package hybridsearch

import (
	"context"
	"time"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
)

// searchUseCase is the internal interface for search.
type searchUseCase interface {
	Search(ctx context.Context, text, rawMode string, limit int) ([]result.Item, error)
}

// SearchBuilder provides a fluent API for one query.
//
//	resp, err := client.Search().
//	    Query("solar power").
//	    Mode(hybridsearch.ModeKeyword).
//	    Limit(5).
//	    Do(ctx)
type SearchBuilder struct {
	client *Client
	text   string
	mode   Mode
	limit  int
}

// Search starts a query.
func (c *Client) Search() *SearchBuilder {
	return &SearchBuilder{client: c}
}

// Query sets the search text.
func (b *SearchBuilder) Query(text string) *SearchBuilder {
	b.text = text
	return b
}

// Mode sets the retrieval mode. Unknown modes fail with ErrInvalidInput.
func (b *SearchBuilder) Mode(m Mode) *SearchBuilder {
	b.mode = m
	return b
}

// Limit sets the page size. Zero means the configured default.
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.limit = n
	return b
}

// Do executes the query. Blank text returns an empty response without
// touching any backend.
func (b *SearchBuilder) Do(ctx context.Context) (resp *Response, err error) {
	defer func(start time.Time) {
		b.client.obs.observe("search", start, err)
	}(time.Now())

	ctx, stats := domain.NewContextWithStats(ctx)
	items, err := b.client.searchSvc.Search(ctx, b.text, string(b.mode), b.limit)
	if err != nil {
		return nil, err
	}

	resp = &Response{Results: make([]Result, len(items))}
	for i := range items {
		resp.Results[i] = resultFromItem(&items[i])
	}
	for _, src := range stats.Degraded() {
		resp.Degraded = append(resp.Degraded, string(src))
	}
	resp.EmbeddingTokens, resp.Embedded = stats.EmbeddingTokens()
	b.client.obs.observeDegraded(resp.Degraded)
	return resp, nil
}
