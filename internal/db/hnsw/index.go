// Package hnsw implements an embedded cosine vector index on coder/hnsw.
// The graph is held in memory; Flush exports it to disk and Open imports it.
package hnsw

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

var (
	_ db.Backend        = (*Index)(nil)
	_ db.VectorSearcher = (*Index)(nil)
	_ db.DocumentWriter = (*Index)(nil)
	_ db.SchemaManager  = (*Index)(nil)
	_ db.Flusher        = (*Index)(nil)
)

// Config tunes the graph. Path may be empty for a purely in-memory index.
type Config struct {
	Path     string
	M        int
	EfSearch int
}

// Index maps string document ids onto uint64 graph keys. Replaced vectors
// are deleted lazily: the old node stays in the graph but loses its id.
type Index struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	path  string
	dim   int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// metadata is persisted next to the exported graph.
type metadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Dim     int
}

// Open creates the index and loads a previous Flush from cfg.Path if one
// exists.
func Open(cfg Config) (*Index, error) {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 20
	}

	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25

	idx := &Index{
		graph:  g,
		path:   cfg.Path,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
	if cfg.Path == "" {
		return idx, nil
	}

	if err := idx.load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return idx, nil
}

// Ping reports whether the index is open.
func (i *Index) Ping(_ context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// Close releases the graph. It does not flush.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.graph = nil
	return nil
}

// Len returns the number of live vectors.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.idMap)
}

// EnsureSchema fixes the vector dimension. A loaded index with a different
// dimension is rejected.
func (i *Index) EnsureSchema(_ context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", dim)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return &db.Error{Op: db.OpSchema, Err: db.ErrClosed}
	}
	if i.dim != 0 && i.dim != dim {
		return &db.Error{Op: db.OpSchema, Err: fmt.Errorf("%w: index has %d, want %d", db.ErrDimMismatch, i.dim, dim)}
	}
	i.dim = dim
	return nil
}

// WriteDocuments inserts the vectors of records. Records without a vector
// are skipped; an existing id is replaced.
func (i *Index) WriteDocuments(_ context.Context, records []db.Record) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return &db.Error{Op: db.OpWrite, Err: db.ErrClosed}
	}

	for _, r := range records {
		if len(r.Vector) == 0 {
			continue
		}
		if i.dim == 0 {
			i.dim = len(r.Vector)
		}
		if len(r.Vector) != i.dim {
			return &db.Error{Op: db.OpWrite, Err: fmt.Errorf("%w: document %s has %d, want %d",
				db.ErrDimMismatch, r.Key, len(r.Vector), i.dim)}
		}

		if old, ok := i.idMap[r.Key]; ok {
			delete(i.keyMap, old)
		}
		key := i.nextKey
		i.nextKey++

		i.graph.Add(hnsw.MakeNode(key, normalize(r.Vector)))
		i.idMap[r.Key] = key
		i.keyMap[key] = r.Key
	}
	return nil
}

// SearchKNN returns the k nearest live vectors with score = cosine
// similarity, ordered by score then id.
func (i *Index) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrClosed}
	}
	if i.dim != 0 && len(q.Vector) != i.dim {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: query has %d, want %d",
			db.ErrDimMismatch, len(q.Vector), i.dim)}
	}
	if i.graph.Len() == 0 {
		return &db.SearchResult{}, nil
	}

	query := normalize(q.Vector)
	orphans := i.graph.Len() - len(i.idMap)
	nodes := i.graph.Search(query, q.K+orphans)

	entries := make([]db.SearchEntry, 0, len(nodes))
	for _, n := range nodes {
		id, ok := i.keyMap[n.Key]
		if !ok {
			continue
		}
		sim := 1 - float64(hnsw.CosineDistance(query, n.Value))
		entries = append(entries, db.SearchEntry{Key: id, Score: sim})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Score != entries[b].Score {
			return entries[a].Score > entries[b].Score
		}
		return entries[a].Key < entries[b].Key
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// Flush exports the graph and id mappings to Path, each through a temp
// file and rename.
func (i *Index) Flush(_ context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return &db.Error{Op: db.OpFlush, Err: db.ErrClosed}
	}
	if i.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(i.path), 0o755); err != nil {
		return &db.Error{Op: db.OpFlush, Err: err}
	}

	if err := writeAtomic(i.path, func(f *os.File) error { return i.graph.Export(f) }); err != nil {
		return &db.Error{Op: db.OpFlush, Err: fmt.Errorf("export graph: %w", err)}
	}

	meta := metadata{IDMap: i.idMap, NextKey: i.nextKey, Dim: i.dim}
	if err := writeAtomic(i.path+".meta", func(f *os.File) error { return gob.NewEncoder(f).Encode(meta) }); err != nil {
		return &db.Error{Op: db.OpFlush, Err: fmt.Errorf("write metadata: %w", err)}
	}
	return nil
}

func (i *Index) load() error {
	mf, err := os.Open(i.path + ".meta")
	if err != nil {
		return err
	}
	defer mf.Close()

	var meta metadata
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	gf, err := os.Open(i.path)
	if err != nil {
		return err
	}
	defer gf.Close()

	// Import needs an io.ByteReader.
	if err := i.graph.Import(bufio.NewReader(gf)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	i.idMap = meta.IDMap
	if i.idMap == nil {
		i.idMap = make(map[string]uint64)
	}
	i.nextKey = meta.NextKey
	i.dim = meta.Dim
	for id, key := range i.idMap {
		i.keyMap[key] = id
	}
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// normalize returns a unit-length copy of v.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(sum))
	for j := range out {
		out[j] *= inv
	}
	return out
}
