package search

import (
	"time"

	"github.com/kailas-cloud/hybridsearch/internal/config"
)

// Strategy selects how ranked lists are combined.
type Strategy string

// Fusion strategies.
const (
	Linear Strategy = config.FusionLinear
	RRF    Strategy = config.FusionRRF
)

// Config tunes retrieval and fusion.
type Config struct {
	KeywordTopK     int
	SemanticTopK    int
	PageSize        int
	MaxPageSize     int
	SubqueryTimeout time.Duration
	MaxQueryLength  int
	Strict          bool
	Retry           RetryPolicy
	Fusion          FusionConfig
}

// RetryPolicy bounds retries of retryable sub-query failures.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// FusionConfig picks the strategy and per-source weights.
type FusionConfig struct {
	Strategy       Strategy
	KeywordWeight  float64
	SemanticWeight float64
	RRFK           int
}

// DefaultConfig returns the values used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		KeywordTopK:     50,
		SemanticTopK:    50,
		PageSize:        20,
		MaxPageSize:     100,
		SubqueryTimeout: 2 * time.Second,
		MaxQueryLength:  1024,
		Retry: RetryPolicy{
			MaxRetries: 1,
			Backoff:    50 * time.Millisecond,
			MaxBackoff: 500 * time.Millisecond,
		},
		Fusion: FusionConfig{
			Strategy:       Linear,
			KeywordWeight:  0.5,
			SemanticWeight: 0.5,
			RRFK:           60,
		},
	}
}

// ConfigFrom converts the loaded search section. The section must have
// defaults applied.
func ConfigFrom(c config.SearchConfig) Config {
	return Config{
		KeywordTopK:     c.KeywordTopK,
		SemanticTopK:    c.SemanticTopK,
		PageSize:        c.PageSize,
		MaxPageSize:     c.MaxPageSize,
		SubqueryTimeout: time.Duration(c.SubqueryTimeoutMs) * time.Millisecond,
		MaxQueryLength:  c.MaxQueryLength,
		Strict:          c.Strict,
		Retry: RetryPolicy{
			MaxRetries: *c.Retry.MaxRetries,
			Backoff:    time.Duration(c.Retry.BackoffMs) * time.Millisecond,
			MaxBackoff: time.Duration(c.Retry.MaxBackoffMs) * time.Millisecond,
		},
		Fusion: FusionConfig{
			Strategy:       Strategy(c.Fusion.Strategy),
			KeywordWeight:  *c.Fusion.KeywordWeight,
			SemanticWeight: *c.Fusion.SemanticWeight,
			RRFK:           c.Fusion.RRFK,
		},
	}
}
