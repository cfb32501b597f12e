// Package bleve implements an embedded keyword index on Bleve with the
// English analyzer.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

var (
	_ db.Backend        = (*Index)(nil)
	_ db.TextSearcher   = (*Index)(nil)
	_ db.DocumentWriter = (*Index)(nil)
	_ db.SchemaManager  = (*Index)(nil)
	_ db.Flusher        = (*Index)(nil)
)

const textField = "text"

// indexedDoc is what Bleve sees: title and body joined in one analyzed
// field so a query can match terms spread over both.
type indexedDoc struct {
	Text string `json:"text"`
}

// Index wraps a Bleve index.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// Open opens the index at path, creating it when absent. An empty path
// gives an in-memory index.
func Open(path string) (*Index, error) {
	m := newMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return &Index{index: idx}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	field := bleve.NewTextFieldMapping()
	field.Analyzer = en.AnalyzerName
	field.Store = false
	field.IncludeInAll = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(textField, field)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

// Ping reports whether the index is open.
func (i *Index) Ping(_ context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	if _, err := i.index.DocCount(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the index. It is safe to call more than once.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return i.index.Close()
}

// EnsureSchema is a no-op: the mapping is fixed when the index is created.
func (i *Index) EnsureSchema(context.Context, int) error { return nil }

// Flush is a no-op: Bleve persists every batch.
func (i *Index) Flush(context.Context) error { return nil }

// WriteDocuments indexes records in a single batch, replacing existing ids.
func (i *Index) WriteDocuments(_ context.Context, records []db.Record) error {
	if len(records) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return &db.Error{Op: db.OpWrite, Err: db.ErrClosed}
	}

	batch := i.index.NewBatch()
	for _, r := range records {
		doc := indexedDoc{Text: strings.TrimSpace(r.Title + " " + r.Body)}
		if err := batch.Index(r.Key, doc); err != nil {
			return &db.Error{Op: db.OpWrite, Err: fmt.Errorf("document %s: %w", r.Key, err)}
		}
	}
	return db.Wrap(db.OpWrite, i.index.Batch(batch))
}

// SearchBM25 runs a match query that requires every analyzed term. Ties in
// score are broken by document id.
func (i *Index) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	if strings.TrimSpace(q.Query) == "" {
		return &db.SearchResult{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrClosed}
	}

	mq := bleve.NewMatchQuery(q.Query)
	mq.SetField(textField)
	mq.SetOperator(query.MatchQueryOperatorAnd)

	req := bleve.NewSearchRequestOptions(mq, q.TopK, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(res.Hits))
	for _, h := range res.Hits {
		entries = append(entries, db.SearchEntry{Key: h.ID, Score: h.Score})
	}
	return &db.SearchResult{Total: int(res.Total), Entries: entries}, nil
}
