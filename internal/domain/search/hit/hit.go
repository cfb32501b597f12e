// Package hit holds single-source retrieval results.
package hit

import (
	"sort"

	"github.com/kailas-cloud/hybridsearch/internal/domain/document"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
)

// Hit is one candidate from one retriever. RawScore is on the retriever's
// own scale: BM25-like rank for keyword, cosine similarity for semantic.
type Hit struct {
	docID    string
	rawScore float64
	source   source.Source
}

// New creates a Hit.
func New(docID string, rawScore float64, src source.Source) Hit {
	return Hit{docID: docID, rawScore: rawScore, source: src}
}

// DocID returns the document identifier.
func (h Hit) DocID() string { return h.docID }

// RawScore returns the source-specific score.
func (h Hit) RawScore() float64 { return h.rawScore }

// Source returns the retriever that produced the hit.
func (h Hit) Source() source.Source { return h.source }

// Sort orders hits by score descending, then doc id ascending (natural order).
func Sort(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rawScore != hits[j].rawScore {
			return hits[i].rawScore > hits[j].rawScore
		}
		return document.CompareIDs(hits[i].docID, hits[j].docID) < 0
	})
}

// Dedupe keeps the highest-scored occurrence of every doc id, preserving the
// order of first appearance. It returns the ids that were seen more than once.
func Dedupe(hits []Hit) ([]Hit, []string) {
	pos := make(map[string]int, len(hits))
	out := make([]Hit, 0, len(hits))
	var dups []string
	for _, h := range hits {
		i, seen := pos[h.docID]
		if !seen {
			pos[h.docID] = len(out)
			out = append(out, h)
			continue
		}
		dups = appendUnique(dups, h.docID)
		if h.rawScore > out[i].rawScore {
			out[i] = h
		}
	}
	return out, dups
}

// Truncate returns at most k hits. k <= 0 means no limit.
func Truncate(hits []Hit, k int) []Hit {
	if k > 0 && len(hits) > k {
		return hits[:k]
	}
	return hits
}

func appendUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}
