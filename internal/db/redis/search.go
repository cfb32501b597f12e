package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

const vectorScoreField = "__vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH. Entry keys
// are document ids; scores are cosine similarities.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB AS %s]", q.K, vectorScoreField)
	args := []string{
		s.indexFor(q.IndexName), queryStr,
		"RETURN", "1", vectorScoreField,
		"SORTBY", vectorScoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, s.searchErr(err)
	}

	return s.parseKNNResult(raw)
}

// SearchBM25 runs a BM25 text search over title and body via FT.SEARCH.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	// Punctuation-only text leaves nothing to tokenize and FT.SEARCH rejects it.
	if !hasTerm(q.Query) {
		return &db.SearchResult{Entries: []db.SearchEntry{}}, nil
	}

	queryStr := fmt.Sprintf("@title|body:(%s)", escapeQuery(q.Query))
	args := []string{
		s.indexFor(q.IndexName), queryStr,
		"NOCONTENT",
		"WITHSCORES",
		"SCORER", "BM25",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, s.searchErr(err)
	}

	return s.parseBM25Result(raw)
}

func (s *Store) indexFor(name string) string {
	if name != "" {
		return name
	}
	return s.index
}

func (s *Store) searchErr(err error) error {
	if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
		return &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}

// --- Result parsing ---

func (s *Store) parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, ok, err := parseTotal(raw)
	if err != nil || !ok {
		return &db.SearchResult{}, err
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		pairs := parseFieldPairs(fields)
		dist, err := strconv.ParseFloat(pairs[vectorScoreField], 64)
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:   s.docID(key),
			Score: 1.0 - dist, // cosine distance → similarity
		})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func (s *Store) parseBM25Result(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, ok, err := parseTotal(raw)
	if err != nil || !ok {
		return &db.SearchResult{}, err
	}

	entries := make([]db.SearchEntry, 0, total)
	// NOCONTENT WITHSCORES, 2-stride: [total, key1, score1, key2, score2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{Key: s.docID(key), Score: score})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseTotal(raw []rueidis.RedisMessage) (int, bool, error) {
	if len(raw) == 0 {
		return 0, false, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, false, fmt.Errorf("parse total: %w", err)
	}
	return int(total), total > 0, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query helpers ---

// escapeQuery neutralizes query-language syntax so user text is matched as
// plain terms (implicit AND).
func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

func hasTerm(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(b string) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(b[i*4 : i*4+4])))
	}
	return v, nil
}
