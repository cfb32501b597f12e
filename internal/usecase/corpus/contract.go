package corpus

import (
	"context"

	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
)

// Sink is one backend receiving the corpus. A backend serving several
// roles appears once.
type Sink interface {
	Name() string
	EnsureSchema(ctx context.Context, dim int) error
	Save(ctx context.Context, docs []domdoc.Document, vectors [][]float32) error
	Flush(ctx context.Context) error
}
