package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/hybridsearch/internal/db"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
)

// writerStore is the consumer interface for corpus writes (ISP).
type writerStore interface {
	WriteDocuments(ctx context.Context, records []db.Record) error
	EnsureSchema(ctx context.Context, dim int) error
}

// Writer implements usecase/corpus.Sink on one driver.
type Writer struct {
	name  string
	store writerStore
}

// NewWriter creates a corpus writer. name identifies the driver in errors
// and logs.
func NewWriter(name string, s writerStore) *Writer {
	return &Writer{name: name, store: s}
}

// Name returns the driver name.
func (w *Writer) Name() string { return w.name }

// EnsureSchema prepares the driver for vectors of dimension dim.
func (w *Writer) EnsureSchema(ctx context.Context, dim int) error {
	if err := w.store.EnsureSchema(ctx, dim); err != nil {
		return fmt.Errorf("%s: ensure schema: %w", w.name, err)
	}
	return nil
}

// Save writes documents with their vectors. vectors may be nil; otherwise
// it must match docs one to one.
func (w *Writer) Save(ctx context.Context, docs []domdoc.Document, vectors [][]float32) error {
	if vectors != nil && len(vectors) != len(docs) {
		return fmt.Errorf("%s: %d documents but %d vectors", w.name, len(docs), len(vectors))
	}

	records := make([]db.Record, len(docs))
	for i, d := range docs {
		records[i] = db.Record{Key: d.ID(), Title: d.Title(), Body: d.Body()}
		if vectors != nil {
			records[i].Vector = vectors[i]
		}
	}

	if err := w.store.WriteDocuments(ctx, records); err != nil {
		return fmt.Errorf("%s: write documents: %w", w.name, err)
	}
	return nil
}

// Flush persists buffered state when the driver keeps any.
func (w *Writer) Flush(ctx context.Context) error {
	f, ok := w.store.(db.Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(ctx); err != nil {
		return fmt.Errorf("%s: flush: %w", w.name, err)
	}
	return nil
}
