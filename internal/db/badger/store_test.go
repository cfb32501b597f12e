package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDocuments_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureSchema(ctx, 4096))
	require.NoError(t, s.WriteDocuments(ctx, []db.Record{
		{Key: "1", Title: "Unit testing", Body: "Catch regressions.", Vector: []float32{1}},
		{Key: "2", Title: "Solar energy", Body: "Power from the sun."},
	}))

	recs, err := s.ReadDocuments(ctx, []string{"2", "missing", "1", "2"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, db.Record{Key: "2", Title: "Solar energy", Body: "Power from the sun."}, recs[0])
	assert.Equal(t, "1", recs[1].Key)
	assert.Nil(t, recs[1].Vector)
}

func TestDocuments_Overwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteDocuments(ctx, []db.Record{{Key: "1", Title: "old"}}))
	require.NoError(t, s.WriteDocuments(ctx, []db.Record{{Key: "1", Title: "new"}}))

	recs, err := s.ReadDocuments(ctx, []string{"1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "new", recs[0].Title)
}

func TestReadDocuments_Empty(t *testing.T) {
	s := newTestStore(t)
	recs, err := s.ReadDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestKV(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "emb:abc")
	assert.True(t, errors.Is(err, db.ErrKeyNotFound))

	require.NoError(t, s.Set(ctx, "emb:abc", []byte{1, 2, 3}))
	got, err := s.Get(ctx, "emb:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, s.SetWithTTL(ctx, "emb:ttl", []byte("v"), time.Hour))
	got, err = s.Get(ctx, "emb:ttl")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestKV_DoesNotCollideWithDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "doc:1", []byte("not json")))
	recs, err := s.ReadDocuments(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClosed(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.True(t, errors.Is(s.Ping(context.Background()), db.ErrClosed))
	_, err = s.ReadDocuments(context.Background(), []string{"1"})
	assert.True(t, errors.Is(err, db.ErrClosed))
}

func TestFileStore_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.WriteDocuments(ctx, []db.Record{{Key: "7", Title: "Persisted"}}))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close())

	s, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	recs, err := s.ReadDocuments(ctx, []string{"7"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Persisted", recs[0].Title)
}
