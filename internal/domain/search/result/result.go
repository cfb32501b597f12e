package result

import "github.com/kailas-cloud/hybridsearch/internal/domain/search/source"

// Fused is one document after fusion. A nil sub-score means the retriever
// was not invoked, was degraded away, or did not return the document.
type Fused struct {
	docID    string
	combined float64
	ftsScore *float64
	semScore *float64
}

// NewFused creates a fused result. Pass nil for absent sub-scores.
func NewFused(docID string, combined float64, fts, sem *float64) Fused {
	return Fused{docID: docID, combined: combined, ftsScore: fts, semScore: sem}
}

// DocID returns the document identifier.
func (f *Fused) DocID() string { return f.docID }

// Score returns the combined score used for ordering.
func (f *Fused) Score() float64 { return f.combined }

// FTSScore returns the raw keyword score, nil if absent.
func (f *Fused) FTSScore() *float64 { return f.ftsScore }

// SemScore returns the raw semantic score, nil if absent.
func (f *Fused) SemScore() *float64 { return f.semScore }

// SourceScore returns the raw score for src, nil if absent.
func (f *Fused) SourceScore(src source.Source) *float64 {
	switch src {
	case source.Keyword:
		return f.ftsScore
	case source.Semantic:
		return f.semScore
	default:
		return nil
	}
}

// Item is a fused result joined with document metadata.
type Item struct {
	Fused
	title string
	body  string
}

// NewItem attaches title and body to a fused result.
func NewItem(f Fused, title, body string) Item {
	return Item{Fused: f, title: title, body: body}
}

// Title returns the document title.
func (i *Item) Title() string { return i.title }

// Body returns the document body.
func (i *Item) Body() string { return i.body }

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 { return &v }
