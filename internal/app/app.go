// Package app is the composition root: it opens the configured backends and
// wires them into the search, health and corpus services.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/config"
	"github.com/kailas-cloud/hybridsearch/internal/db"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/hybridsearch/internal/repository/document"
	"github.com/kailas-cloud/hybridsearch/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/hybridsearch/internal/repository/search"
	openaiEmb "github.com/kailas-cloud/hybridsearch/internal/transport/openai"
	corpusuc "github.com/kailas-cloud/hybridsearch/internal/usecase/corpus"
	embeddinguc "github.com/kailas-cloud/hybridsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/hybridsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/hybridsearch/internal/usecase/search"
)

// App holds the wired services. Close releases the backends.
type App struct {
	Config config.Config
	Search *searchuc.Service
	Health *healthuc.Service
	Corpus *corpusuc.Service

	backends *backends
	logger   *zap.Logger
}

// New wires the application with the OpenAI-compatible provider from
// cfg.Embedding.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	return NewWithEmbedder(ctx, cfg, base, logger)
}

// NewWithEmbedder wires the application around a caller-supplied provider.
// The provider is health-checked when it implements domain.HealthChecker.
func NewWithEmbedder(ctx context.Context, cfg config.Config, base domain.Embedder, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	b, err := openBackends(ctx, &cfg, logger)
	if err != nil {
		return nil, err
	}

	shared, err := buildEmbedder(base, &cfg, b, logger)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	queryEmbedder := withInstruction(shared, cfg.Embedding.QueryInstruction)
	docEmbedder := withInstruction(shared, cfg.Embedding.DocumentInstruction)

	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	searchSvc := searchuc.New(
		searchrepo.NewKeyword(b.keyword),
		searchrepo.NewVector(b.vector),
		queryEmbedder,
		documentrepo.New(b.metadata),
		searchuc.ConfigFrom(cfg.Search),
		logger,
	)

	components := healthuc.Components{
		Keyword:  b.keywordPing,
		Vector:   b.vectorPing,
		Metadata: b.metadataPing,
	}
	// providers without a health check leave Embedding nil
	if hc, ok := base.(domain.HealthChecker); ok {
		components.Embedding = hc
	}
	healthSvc := healthuc.New(components)

	sinks := make([]corpusuc.Sink, 0, len(b.names))
	for _, name := range b.names {
		if w, ok := b.byName[name].(corpusWriterStore); ok {
			sinks = append(sinks, documentrepo.NewWriter(name, w))
		}
	}
	corpusSvc := corpusuc.New(docEmbedder, sinks, corpusuc.Config{
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Corpus.BatchSize,
		Workers:    cfg.Corpus.Workers,
	}, logger)

	return &App{
		Config:   cfg,
		Search:   searchSvc,
		Health:   healthSvc,
		Corpus:   corpusSvc,
		backends: b,
		logger:   logger,
	}, nil
}

// corpusWriterStore is what a driver needs to receive the seed corpus.
type corpusWriterStore interface {
	db.DocumentWriter
	db.SchemaManager
}

// buildEmbedder assembles the shared decorator chain:
// provider -> KV cache -> LRU -> Instrumented. Instructions are applied on
// top per side so that cache keys include them.
func buildEmbedder(
	base domain.Embedder, cfg *config.Config, b *backends, logger *zap.Logger,
) (domain.Embedder, error) {
	embedder := base

	if kv, name := b.kvStore(); kv != nil {
		ttl := time.Duration(cfg.Embedding.CacheTTLSec) * time.Second
		embedder = embcache.New(embedder, kv, ttl, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Embedding KV cache enabled", zap.String("driver", name), zap.Duration("ttl", ttl))
	}

	if cfg.Embedding.CacheSize > 0 {
		l, err := embcache.NewLRU(embedder, cfg.Embedding.CacheSize, metrics.EmbeddingCacheTotal)
		if err != nil {
			return nil, fmt.Errorf("embedding lru: %w", err)
		}
		embedder = l
	}

	return embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	), nil
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// EnsureSchema prepares every backend for the configured dimension.
func (a *App) EnsureSchema(ctx context.Context) error {
	return a.backends.ensureSchema(ctx, a.Config.Embedding.Dimensions)
}

// SeedFile loads a corpus file and writes it to every backend.
func (a *App) SeedFile(ctx context.Context, path string) (corpusuc.Result, error) {
	docs, err := corpusuc.LoadFile(path)
	if err != nil {
		return corpusuc.Result{}, err
	}
	res, err := a.Corpus.Seed(ctx, docs)
	if err != nil {
		return res, fmt.Errorf("seed %s: %w", path, err)
	}
	a.logger.Info("Corpus seeded",
		zap.String("file", path),
		zap.Int("documents", res.Documents),
		zap.Int("batches", res.Batches),
		zap.Int("tokens", res.Tokens),
		zap.Strings("sinks", res.Sinks),
	)
	return res, nil
}

// Drivers lists the opened drivers in open order.
func (a *App) Drivers() []string {
	return append([]string(nil), a.backends.names...)
}

// Close closes every backend.
func (a *App) Close() error {
	return a.backends.Close()
}
