// Package source names the retrieval signals that feed the fusion engine.
package source

// Source identifies which retriever produced a hit.
type Source string

const (
	// Keyword is the lexical full-text index.
	Keyword Source = "keyword"
	// Semantic is the vector similarity index.
	Semantic Source = "semantic"
)

// IsValid checks if the source is one of the known retrievers.
func (s Source) IsValid() bool {
	return s == Keyword || s == Semantic
}

// String implements fmt.Stringer.
func (s Source) String() string { return string(s) }
