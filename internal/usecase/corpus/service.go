package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
)

// Config tunes seeding.
type Config struct {
	Dimensions int
	BatchSize  int
	Workers    int
}

// Result summarizes a seed run.
type Result struct {
	Documents int
	Batches   int
	Tokens    int
	Sinks     []string
}

// Service embeds documents and writes them to every sink.
type Service struct {
	embed  domain.Embedder
	sinks  []Sink
	cfg    Config
	logger *zap.Logger
}

// New creates a corpus service. embed is the document-side embedder.
func New(embed domain.Embedder, sinks []Sink, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embed: embed, sinks: sinks, cfg: cfg, logger: logger}
}

// Seed prepares every sink, embeds docs in parallel batches and writes the
// result. Any failed batch aborts the run before anything is written.
func (s *Service) Seed(ctx context.Context, docs []domdoc.Document) (Result, error) {
	start := time.Now()
	res := Result{Documents: len(docs)}

	for _, sink := range s.sinks {
		if err := sink.EnsureSchema(ctx, s.cfg.Dimensions); err != nil {
			return res, fmt.Errorf("ensure schema: %w", err)
		}
		res.Sinks = append(res.Sinks, sink.Name())
	}
	if len(docs) == 0 {
		return res, nil
	}

	vectors, batches, tokens, err := s.embedAll(ctx, docs)
	res.Batches, res.Tokens = batches, tokens
	if err != nil {
		return res, err
	}

	for _, sink := range s.sinks {
		if err := sink.Save(ctx, docs, vectors); err != nil {
			return res, fmt.Errorf("save corpus: %w", err)
		}
	}

	var flushErrs []error
	for _, sink := range s.sinks {
		if err := sink.Flush(ctx); err != nil {
			flushErrs = append(flushErrs, err)
		}
	}
	if err := errors.Join(flushErrs...); err != nil {
		return res, fmt.Errorf("flush: %w", err)
	}

	s.logger.Info("Corpus seeded",
		zap.Int("documents", res.Documents),
		zap.Int("batches", res.Batches),
		zap.Int("tokens", res.Tokens),
		zap.Strings("sinks", res.Sinks),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// embedAll runs one BatchEmbed per chunk on a bounded pool. Vectors come back
// in document order.
func (s *Service) embedAll(ctx context.Context, docs []domdoc.Document) ([][]float32, int, int, error) {
	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	vectors := make([][]float32, len(docs))
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		errs    []error
		tokens  int
		batches int
	)

	for offset := 0; offset < len(docs); offset += s.cfg.BatchSize {
		end := min(offset+s.cfg.BatchSize, len(docs))
		chunk := docs[offset:end]
		batches++

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			n, err := s.embedChunk(ctx, chunk, vectors[offset:end])
			mu.Lock()
			defer mu.Unlock()
			tokens += n
			if err != nil {
				errs = append(errs, fmt.Errorf("batch at %d: %w", offset, err))
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("submit batch at %d: %w", offset, submitErr))
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, batches, tokens, fmt.Errorf("embed corpus: %w", err)
	}
	return vectors, batches, tokens, nil
}

func (s *Service) embedChunk(ctx context.Context, chunk []domdoc.Document, out [][]float32) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	texts := make([]string, len(chunk))
	for i, d := range chunk {
		texts[i] = d.EmbeddingText()
	}

	res, err := domain.BatchEmbed(ctx, s.embed, texts)
	if err != nil {
		return 0, err
	}
	if len(res.Embeddings) != len(chunk) {
		return res.TotalTokens, fmt.Errorf("%w: got %d embeddings for %d documents",
			domain.ErrEmbeddingFailure, len(res.Embeddings), len(chunk))
	}
	for i, v := range res.Embeddings {
		if s.cfg.Dimensions > 0 && len(v) != s.cfg.Dimensions {
			return res.TotalTokens, fmt.Errorf("%w: document %s has %d dimensions, want %d",
				domain.ErrEmbeddingFailure, chunk[i].ID(), len(v), s.cfg.Dimensions)
		}
		out[i] = v
	}

	s.logger.Debug("Embedded corpus batch",
		zap.String("first_id", chunk[0].ID()),
		zap.Int("size", len(chunk)),
		zap.Int("tokens", res.TotalTokens),
	)
	return res.TotalTokens, nil
}
