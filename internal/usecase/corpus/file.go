// Package corpus loads the demo corpus and writes it, embedded, into every
// configured backend.
package corpus

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
)

type fileEntry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type file struct {
	Documents []fileEntry `yaml:"documents"`
}

// LoadFile reads a corpus YAML file.
func LoadFile(path string) ([]domdoc.Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config/flag
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a corpus. Entries without an id get the next free
// sequential integer id, starting at 1, in file order.
func Parse(data []byte) ([]domdoc.Document, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}

	taken := make(map[string]bool, len(f.Documents))
	for i, e := range f.Documents {
		if e.ID == "" {
			continue
		}
		if taken[e.ID] {
			return nil, fmt.Errorf("%w: corpus entry %d: duplicate id %q", domain.ErrInvalidInput, i, e.ID)
		}
		taken[e.ID] = true
	}

	docs := make([]domdoc.Document, 0, len(f.Documents))
	next := 1
	for i, e := range f.Documents {
		id := e.ID
		if id == "" {
			for taken[strconv.Itoa(next)] {
				next++
			}
			id = strconv.Itoa(next)
			taken[id] = true
		}
		if e.Title == "" && e.Body == "" {
			return nil, fmt.Errorf("%w: corpus entry %d: title and body are empty", domain.ErrInvalidInput, i)
		}
		d, err := domdoc.New(id, e.Title, e.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: corpus entry %d: %w", domain.ErrInvalidInput, i, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
