package search

// defaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const defaultRRFK = 60

// scoreRRF merges lists via weighted Reciprocal Rank Fusion:
// score(d) = sum of w_i / (k + rank_i(d)) for each list where d appears,
// with 1-based ranks. Lists arrive sorted by the retrievers.
func scoreRRF(lists []rankedList, byID map[string]*candidate, w weights, k int) {
	if k <= 0 {
		k = defaultRRFK
	}
	for _, l := range lists {
		weight := w[l.source]
		for rank, h := range l.hits {
			c := byID[h.DocID()]
			c.combined += weight / float64(k+rank+1)
			if weight > 0 {
				c.eligible = true
			}
		}
	}
}
