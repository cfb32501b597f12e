// Package document holds the corpus document as the search core sees it.
package document

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxIDLength bounds document identifiers.
const MaxIDLength = 256

// Document is a corpus entry (immutable value object). Its embedding lives
// in the vector index, not here.
type Document struct {
	id    string
	title string
	body  string
}

// New validates and creates a Document. The id must be non-empty, free of
// whitespace and at most MaxIDLength bytes.
func New(id, title, body string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return Document{}, fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return Document{}, fmt.Errorf("document ID %q must not contain whitespace", id)
	}
	return Document{id: id, title: title, body: body}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, title, body string) Document {
	return Document{id: id, title: title, body: body}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Title returns the document title.
func (d Document) Title() string { return d.title }

// Body returns the document body.
func (d Document) Body() string { return d.body }

// EmbeddingText is the text embedded for the vector index.
func (d Document) EmbeddingText() string {
	return d.title + " " + d.body
}

// CompareIDs orders ids naturally: two base-10 integers compare numerically,
// an integer sorts before a non-integer, anything else compares
// lexicographically. Returns -1, 0 or +1.
func CompareIDs(a, b string) int {
	an, aNum := parseNumericID(a)
	bn, bNum := parseNumericID(b)
	switch {
	case aNum && bNum:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		// "007" and "7" are distinct ids with equal value
		return strings.Compare(a, b)
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func parseNumericID(id string) (uint64, bool) {
	if id == "" || id[0] == '+' || id[0] == '-' {
		return 0, false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
