package hybridsearch

import (
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
)

// Mode selects which retrievers answer a query.
type Mode string

// Search modes. The zero value means ModeHybrid.
const (
	ModeHybrid   Mode = Mode(mode.Hybrid)
	ModeSemantic Mode = Mode(mode.Semantic)
	ModeKeyword  Mode = Mode(mode.Keyword)
)

// Document is one corpus entry. ID must be unique within the corpus.
type Document struct {
	ID    string
	Title string
	Body  string
}

// Result is one ranked document. KeywordScore and SemanticScore are the raw
// retriever scores, nil when that retriever did not return the document.
type Result struct {
	ID            string
	Title         string
	Body          string
	Score         float64
	KeywordScore  *float64
	SemanticScore *float64
}

// Response carries the ranked results plus per-query facts.
type Response struct {
	Results []Result
	// Degraded lists the sources dropped from a hybrid ranking after failing.
	Degraded []string
	// EmbeddingTokens counts provider tokens spent on the query; cache hits
	// cost zero.
	EmbeddingTokens int
	// Embedded is true when the query went through the embedder at all.
	Embedded bool
}

// SeedResult summarizes a Seed call.
type SeedResult struct {
	Documents int
	Batches   int
	Tokens    int
	Sinks     []string
}

func resultFromItem(it *result.Item) Result {
	return Result{
		ID:            it.DocID(),
		Title:         it.Title(),
		Body:          it.Body(),
		Score:         it.Score(),
		KeywordScore:  it.FTSScore(),
		SemanticScore: it.SemScore(),
	}
}
