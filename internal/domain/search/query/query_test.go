package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/mode"
)

func TestNew_Valid(t *testing.T) {
	q, err := New("  unit testing benefits \n", "keyword", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text() != "unit testing benefits" {
		t.Errorf("Text() = %q", q.Text())
	}
	if q.Mode() != mode.Keyword {
		t.Errorf("Mode() = %q", q.Mode())
	}
}

func TestNew_DefaultMode(t *testing.T) {
	q, err := New("solar", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Mode() != mode.Hybrid {
		t.Errorf("Mode() = %q, want hybrid", q.Mode())
	}
}

func TestNew_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := New(text, "hybrid", 0)
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("New(%q): expected ErrEmpty, got %v", text, err)
		}
	}
}

func TestNew_UnknownModeBeatsEmptyText(t *testing.T) {
	_, err := New("", "vector", 0)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNew_TooLong(t *testing.T) {
	_, err := New(strings.Repeat("a", 11), "hybrid", 10)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	// limit counts runes, not bytes
	if _, err := New(strings.Repeat("é", 10), "hybrid", 10); err != nil {
		t.Errorf("10 runes at limit 10: unexpected error %v", err)
	}

	if _, err := New(strings.Repeat("a", DefaultMaxLength+1), "", 0); err == nil {
		t.Error("expected default limit to apply")
	}
}
