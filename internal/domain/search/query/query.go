// Package query holds the normalized search query.
package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
)

// DefaultMaxLength is the query length limit in runes when none is configured.
const DefaultMaxLength = 1024

// ErrEmpty is returned for text that is empty after trimming. Callers answer
// it with an empty result set rather than an error.
var ErrEmpty = errors.New("empty query")

// Query is a validated search request (immutable value object).
type Query struct {
	text string
	mode mode.Mode
}

// New parses the mode, then trims and validates text. The mode is checked
// first so an unknown mode is rejected even for blank text. maxLen <= 0
// means DefaultMaxLength.
func New(text, rawMode string, maxLen int) (Query, error) {
	m, err := mode.Parse(rawMode)
	if err != nil {
		return Query{}, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Query{}, ErrEmpty
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if n := utf8.RuneCountInString(trimmed); n > maxLen {
		return Query{}, fmt.Errorf("%w: query too long (%d chars, max %d)", domain.ErrInvalidInput, n, maxLen)
	}
	return Query{text: trimmed, mode: m}, nil
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// Mode returns the search mode.
func (q Query) Mode() mode.Mode { return q.mode }
