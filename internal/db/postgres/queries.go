package postgres

import (
	"fmt"
	"strings"
)

const (
	knnSQL = `SELECT id, 1 - (embedding <=> $1::vector) AS score
FROM documents
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1::vector, id
LIMIT $2`

	readSQL = `SELECT id, title, body FROM documents WHERE id = ANY($1)`

	upsertSQL = `INSERT INTO documents (id, title, body, embedding)
VALUES ($1, $2, $3, $4::vector)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	body = EXCLUDED.body,
	embedding = COALESCE(EXCLUDED.embedding, documents.embedding)`
)

// maxIndexedDim is the largest vector column pgvector's HNSW index accepts.
// Wider embeddings (e5-mistral returns 4096) are searched by exact scan.
const maxIndexedDim = 2000

// queries holds statements that embed the text search configuration as a
// literal, so the expression matches the GIN index and the planner uses it.
type queries struct {
	tsConfig string
	text     string
}

func newQueries(tsConfig string) (queries, error) {
	if tsConfig == "" {
		tsConfig = "english"
	}
	if !isRegconfigName(tsConfig) {
		return queries{}, fmt.Errorf("invalid text search config %q", tsConfig)
	}

	doc := tsvectorExpr(tsConfig)
	text := fmt.Sprintf(`SELECT id, ts_rank(%[1]s, plainto_tsquery('%[2]s', $1)) AS score
FROM documents
WHERE %[1]s @@ plainto_tsquery('%[2]s', $1)
ORDER BY score DESC, id
LIMIT $2`, doc, tsConfig)

	return queries{tsConfig: tsConfig, text: text}, nil
}

func (q queries) schema(dim int) []string {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	embedding vector(%d)
)`, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS documents_fts_idx ON documents USING GIN (%s)`,
			tsvectorExpr(q.tsConfig)),
	}
	if dim <= maxIndexedDim {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING hnsw (embedding vector_cosine_ops)`)
	}
	return stmts
}

func tsvectorExpr(tsConfig string) string {
	return fmt.Sprintf(`to_tsvector('%s', title || ' ' || body)`, tsConfig)
}

// isRegconfigName accepts plain or schema-qualified lowercase identifiers.
func isRegconfigName(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
				return false
			}
		}
	}
	return true
}
