package search

import (
	"sort"

	"github.com/kailas-cloud/hybridsearch/internal/domain/document"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/hit"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
)

// rankedList is the output of one retriever that answered, possibly empty.
type rankedList struct {
	source source.Source
	hits   []hit.Hit
}

type candidate struct {
	id       string
	combined float64
	fts, sem *float64
	eligible bool
}

func (c *candidate) setRaw(src source.Source, v float64) {
	switch src {
	case source.Keyword:
		c.fts = result.Float(v)
	case source.Semantic:
		c.sem = result.Float(v)
	}
}

// fuse merges the ranked lists into one deterministic page. A single list
// keeps its raw scores; two lists are combined by the configured strategy.
// The order of lists does not matter.
func fuse(lists []rankedList, cfg FusionConfig, limit int) []result.Fused {
	byID := make(map[string]*candidate)
	for _, l := range lists {
		for _, h := range l.hits {
			c, ok := byID[h.DocID()]
			if !ok {
				c = &candidate{id: h.DocID()}
				byID[h.DocID()] = c
			}
			c.setRaw(l.source, h.RawScore())
		}
	}
	metrics.FusionCandidates.Observe(float64(len(byID)))

	switch {
	case len(lists) == 1:
		for _, h := range lists[0].hits {
			c := byID[h.DocID()]
			c.combined, c.eligible = h.RawScore(), true
		}
	case cfg.Strategy == RRF:
		scoreRRF(lists, byID, newWeights(cfg), cfg.RRFK)
	default:
		scoreLinear(lists, byID, newWeights(cfg))
	}

	out := make([]result.Fused, 0, len(byID))
	for _, c := range byID {
		if c.eligible {
			out = append(out, result.NewFused(c.id, c.combined, c.fts, c.sem))
		}
	}
	sortFused(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// weights are the configured source weights scaled to sum to 1, so only
// their ratio matters and a linear combined score stays in [0,1].
type weights map[source.Source]float64

func newWeights(cfg FusionConfig) weights {
	kw, sw := cfg.KeywordWeight, cfg.SemanticWeight
	if sum := kw + sw; sum > 0 {
		kw, sw = kw/sum, sw/sum
	} else {
		kw, sw = 0.5, 0.5
	}
	return weights{source.Keyword: kw, source.Semantic: sw}
}

// scoreLinear min-max normalizes every list to [0,1] and sums the weighted
// values. Documents missing from a list get 0 for it. Documents seen only in
// zero-weight lists stay ineligible.
func scoreLinear(lists []rankedList, byID map[string]*candidate, w weights) {
	for _, l := range lists {
		if len(l.hits) == 0 {
			continue
		}
		lo, hi := l.hits[0].RawScore(), l.hits[0].RawScore()
		for _, h := range l.hits[1:] {
			lo = min(lo, h.RawScore())
			hi = max(hi, h.RawScore())
		}
		weight := w[l.source]
		for _, h := range l.hits {
			norm := 1.0
			if hi > lo {
				norm = (h.RawScore() - lo) / (hi - lo)
			}
			c := byID[h.DocID()]
			c.combined += weight * norm
			if weight > 0 {
				c.eligible = true
			}
		}
	}
}

// sortFused orders by combined score descending, then natural doc id order.
func sortFused(out []result.Fused) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}
		return document.CompareIDs(out[i].DocID(), out[j].DocID()) < 0
	})
}
