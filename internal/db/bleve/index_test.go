package bleve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

var seed = []db.Record{
	{Key: "1", Title: "Benefits of unit testing", Body: "Unit tests catch regressions early."},
	{Key: "2", Title: "Solar energy", Body: "Renewable power from the sun."},
	{Key: "3", Title: "Integration testing", Body: "Unit tests are not enough on their own."},
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.WriteDocuments(context.Background(), seed))
	return idx
}

func TestSearchBM25(t *testing.T) {
	idx := newTestIndex(t)

	res, err := idx.SearchBM25(context.Background(), &db.TextQuery{Query: "unit testing", TopK: 10})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)

	got := []string{res.Entries[0].Key, res.Entries[1].Key}
	assert.ElementsMatch(t, []string{"1", "3"}, got)
	assert.Greater(t, res.Entries[0].Score, 0.0)
	assert.GreaterOrEqual(t, res.Entries[0].Score, res.Entries[1].Score)
}

func TestSearchBM25_Stemming(t *testing.T) {
	idx := newTestIndex(t)

	res, err := idx.SearchBM25(context.Background(), &db.TextQuery{Query: "tested", TopK: 10})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
}

func TestSearchBM25_AllTermsRequired(t *testing.T) {
	idx := newTestIndex(t)

	res, err := idx.SearchBM25(context.Background(), &db.TextQuery{Query: "solar regressions", TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestSearchBM25_TopKAndValidation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	res, err := idx.SearchBM25(ctx, &db.TextQuery{Query: "unit", TopK: 1})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)

	_, err = idx.SearchBM25(ctx, &db.TextQuery{Query: "unit", TopK: 0})
	require.Error(t, err)

	res, err = idx.SearchBM25(ctx, &db.TextQuery{Query: "   ", TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestWriteDocuments_Replaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.WriteDocuments(ctx, []db.Record{{Key: "2", Title: "Wind", Body: "Turbines"}}))

	res, err := idx.SearchBM25(ctx, &db.TextQuery{Query: "solar", TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestClosed(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	require.NoError(t, idx.Ping(context.Background()))
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	assert.True(t, errors.Is(idx.Ping(context.Background()), db.ErrClosed))
	_, err = idx.SearchBM25(context.Background(), &db.TextQuery{Query: "x", TopK: 1})
	assert.True(t, errors.Is(err, db.ErrClosed))
}

func TestOpen_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	ctx := context.Background()

	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.WriteDocuments(ctx, seed))
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	res, err := idx.SearchBM25(ctx, &db.TextQuery{Query: "solar", TopK: 5})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "2", res.Entries[0].Key)
}
