package domain

import (
	"errors"

	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
)

var (
	// ErrInvalidInput signals a malformed query, mode or paging parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRetrievalTimeout signals a sub-query that ran past its deadline.
	ErrRetrievalTimeout = errors.New("retrieval timeout")
	// ErrUpstreamUnavailable signals an unreachable index or metadata store.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEmbeddingFailure signals a failed query embedding.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrNotFound signals a document whose metadata is missing.
	ErrNotFound = errors.New("not found")
)

// RetrievalError attributes a retrieval failure to the source that produced it.
type RetrievalError struct {
	Source source.Source
	Err    error
}

func (e *RetrievalError) Error() string {
	return string(e.Source) + " retrieval: " + e.Err.Error()
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// NewRetrievalError wraps err with its source.
func NewRetrievalError(src source.Source, err error) error {
	return &RetrievalError{Source: src, Err: err}
}

// IsRetryable reports whether err is worth another attempt: unreachable
// upstreams and failed embeddings are, timeouts and invalid input are not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRetrievalTimeout) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrEmbeddingFailure)
}
