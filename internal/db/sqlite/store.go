// Package sqlite implements the keyword index and metadata store on SQLite
// FTS5 using the pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/hybridsearch/internal/db"
)

var (
	_ db.Backend        = (*Store)(nil)
	_ db.TextSearcher   = (*Store)(nil)
	_ db.DocumentReader = (*Store)(nil)
	_ db.DocumentWriter = (*Store)(nil)
	_ db.SchemaManager  = (*Store)(nil)
	_ db.Flusher        = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT ''
);

CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts USING fts5(
	doc_id UNINDEXED,
	title,
	body,
	tokenize='porter unicode61'
);
`

// Store is a SQLite database holding a documents table and its FTS5 index.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens or creates the database at path. ":memory:" or an empty path
// gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	inMemory := path == "" || path == ":memory:"
	dsn := ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
		dsn = path
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	// One connection: a single writer, and an in-memory database is per
	// connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, p); err != nil {
			_ = sqlDB.Close()
			return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("%s: %w", p, err)}
		}
	}

	s := &Store{db: sqlDB}
	if !inMemory {
		s.path = path
	}
	if err := s.EnsureSchema(ctx, 0); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return db.Wrap(db.OpPing, s.db.PingContext(ctx))
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// EnsureSchema creates the tables. The vector dimension is unused: SQLite
// serves the keyword and metadata roles only.
func (s *Store) EnsureSchema(ctx context.Context, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpSchema, Err: db.ErrClosed}
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &db.Error{Op: db.OpSchema, Err: err}
	}
	return nil
}

// Flush checkpoints the write-ahead log into the main database file.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpFlush, Err: db.ErrClosed}
	}
	if s.path == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.Wrap(db.OpFlush, err)
}

// WriteDocuments upserts records into both tables in one transaction.
// FTS5 has no REPLACE, so existing rows are deleted first.
func (s *Store) WriteDocuments(ctx context.Context, records []db.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpWrite, Err: db.ErrClosed}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpWrite, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`INSERT INTO documents(id, title, body) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, body = excluded.body`,
		`DELETE FROM docs_fts WHERE doc_id = ?`,
		`INSERT INTO docs_fts(doc_id, title, body) VALUES (?, ?, ?)`,
	}
	prepared := make([]*sql.Stmt, len(stmts))
	for i, q := range stmts {
		st, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return &db.Error{Op: db.OpWrite, Err: err}
		}
		defer st.Close()
		prepared[i] = st
	}
	upsert, del, insert := prepared[0], prepared[1], prepared[2]

	for i := range records {
		r := &records[i]
		if _, err := upsert.ExecContext(ctx, r.Key, r.Title, r.Body); err != nil {
			return &db.Error{Op: db.OpWrite, Err: fmt.Errorf("document %s: %w", r.Key, err)}
		}
		if _, err := del.ExecContext(ctx, r.Key); err != nil {
			return &db.Error{Op: db.OpWrite, Err: fmt.Errorf("document %s: %w", r.Key, err)}
		}
		if _, err := insert.ExecContext(ctx, r.Key, r.Title, r.Body); err != nil {
			return &db.Error{Op: db.OpWrite, Err: fmt.Errorf("document %s: %w", r.Key, err)}
		}
	}

	return db.Wrap(db.OpWrite, tx.Commit())
}

// SearchBM25 matches every query token against title and body and ranks by
// FTS5 bm25, negated so higher is better.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	match := MatchExpr(q.Query)
	if match == "" {
		return &db.SearchResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrClosed}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, bm25(docs_fts) AS score
		FROM docs_fts
		WHERE docs_fts MATCH ?
		ORDER BY score, doc_id
		LIMIT ?`, match, q.TopK)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer rows.Close()

	var entries []db.SearchEntry
	for rows.Next() {
		var e db.SearchEntry
		if err := rows.Scan(&e.Key, &e.Score); err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		e.Score = -e.Score
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// ReadDocuments loads documents by id in one query, in the order of ids.
func (s *Store) ReadDocuments(ctx context.Context, ids []string) ([]db.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &db.Error{Op: db.OpRead, Err: db.ErrClosed}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, title, body FROM documents WHERE id IN (%s)", placeholders), args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpRead, Err: err}
	}
	defer rows.Close()

	byID := make(map[string]db.Record, len(ids))
	for rows.Next() {
		var r db.Record
		if err := rows.Scan(&r.Key, &r.Title, &r.Body); err != nil {
			return nil, &db.Error{Op: db.OpRead, Err: err}
		}
		byID[r.Key] = r
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpRead, Err: err}
	}

	out := make([]db.Record, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id)
		}
	}
	return out, nil
}

// MatchExpr turns free text into an FTS5 expression of quoted tokens, which
// FTS5 combines with implicit AND. Operators and column filters in the input
// are neutralised. It returns "" when the text has no tokens.
func MatchExpr(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isTokenRune(r)
	})
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + f + `"`
	}
	return strings.Join(quoted, " ")
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
