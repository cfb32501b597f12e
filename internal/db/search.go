package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string // ignored by drivers with a single fixed index
	Vector    []float32
	K         int
}

// TextQuery is the input for lexical search. Query is raw user text; each
// driver escapes it for its own query language.
type TextQuery struct {
	IndexName string
	Query     string
	TopK      int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Key is the driver's document key;
// Score is a similarity where higher is better.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Record is a corpus document as stored by a driver.
type Record struct {
	Key    string
	Title  string
	Body   string
	Vector []float32
}
