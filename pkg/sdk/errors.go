package hybridsearch

import "github.com/kailas-cloud/hybridsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput        = domain.ErrInvalidInput
	ErrEmbeddingFailure    = domain.ErrEmbeddingFailure
	ErrUpstreamUnavailable = domain.ErrUpstreamUnavailable
	ErrRetrievalTimeout    = domain.ErrRetrievalTimeout
	ErrNotFound            = domain.ErrNotFound
)
