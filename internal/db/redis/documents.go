package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

// Hash fields of a document.
const (
	fieldTitle  = "title"
	fieldBody   = "body"
	fieldVector = "vector"
)

// WriteDocuments stores records as hashes in a single DoMulti round-trip.
// A record without a vector keeps only title and body.
func (s *Store) WriteDocuments(ctx context.Context, records []db.Record) error {
	if len(records) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, len(records))
	for i := range records {
		r := &records[i]
		cmd := s.b().Hset().Key(s.docKey(r.Key)).FieldValue().
			FieldValue(fieldTitle, r.Title).
			FieldValue(fieldBody, r.Body)
		if len(r.Vector) > 0 {
			cmd = cmd.FieldValue(fieldVector, vectorToBytes(r.Vector))
		}
		cmds[i] = cmd.Build()
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", records[i].Key, err)}
		}
	}
	return nil
}

// ReadDocuments fetches documents by id with pipelined HGETALL. Ids without
// a hash are omitted.
func (s *Store) ReadDocuments(ctx context.Context, ids []string) ([]db.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, len(ids))
	for i, id := range ids {
		cmds[i] = s.b().Hgetall().Key(s.docKey(id)).Build()
	}

	out := make([]db.Record, 0, len(ids))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", ids[i], err)}
		}
		if len(m) == 0 {
			continue
		}
		rec := db.Record{Key: ids[i], Title: m[fieldTitle], Body: m[fieldBody]}
		if blob, ok := m[fieldVector]; ok {
			v, err := bytesToVector(blob)
			if err != nil {
				return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", ids[i], err)}
			}
			rec.Vector = v
		}
		out = append(out, rec)
	}

	return out, nil
}
