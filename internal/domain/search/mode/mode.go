package mode

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
)

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid fuses keyword and semantic retrieval.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
)

// Default is used when the caller does not pick a mode.
const Default = Hybrid

// Parse converts a raw mode selector into a Mode. Surrounding whitespace is
// ignored and an empty selector yields Default; anything else unknown fails
// with domain.ErrInvalidInput.
func Parse(raw string) (Mode, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Default, nil
	}
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unknown search mode %q (want keyword, semantic or hybrid)",
			domain.ErrInvalidInput, s)
	}
	return m, nil
}

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}

// Sources lists the retrievers this mode needs, keyword first.
func (m Mode) Sources() []source.Source {
	switch m {
	case Keyword:
		return []source.Source{source.Keyword}
	case Semantic:
		return []source.Source{source.Semantic}
	case Hybrid:
		return []source.Source{source.Keyword, source.Semantic}
	default:
		return nil
	}
}

// Uses reports whether the mode invokes the given retriever.
func (m Mode) Uses(src source.Source) bool {
	for _, s := range m.Sources() {
		if s == src {
			return true
		}
	}
	return false
}
