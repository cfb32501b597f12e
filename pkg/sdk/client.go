package hybridsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/app"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	domdoc "github.com/kailas-cloud/hybridsearch/internal/domain/document"
	corpusuc "github.com/kailas-cloud/hybridsearch/internal/usecase/corpus"
)

// Внутренние интерфейсы для подмены в тестах.
type corpusUseCase interface {
	Seed(ctx context.Context, docs []domdoc.Document) (corpusuc.Result, error)
}

type closer interface {
	Close() error
}

// Client is the hybridsearch SDK entry point.
type Client struct {
	app       closer
	searchSvc searchUseCase
	healthSvc healthUseCase
	corpusSvc corpusUseCase
	obs       *observer
}

// New opens the configured backends and prepares their schemas. The
// provided context bounds connecting and schema creation. Without a backend
// option the client keeps every index in memory.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := newClientConfig(opts)
	if err := cc.cfg.ValidateEngine(); err != nil {
		return nil, fmt.Errorf("hybridsearch: %w", err)
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("hybridsearch: %w", err)
	}
	if err := a.EnsureSchema(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("hybridsearch: ensure schema: %w", err)
	}

	return &Client{
		app:       a,
		searchSvc: a.Search,
		healthSvc: a.Health,
		corpusSvc: a.Corpus,
		obs:       obs,
	}, nil
}

func openApp(ctx context.Context, cc *clientConfig) (*app.App, error) {
	logger := cc.zapLogger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cc.useOpenAI {
		return app.New(ctx, cc.cfg, logger)
	}
	// Embedder: noop если не задан (keyword работает, semantic вернёт ошибку)
	var base domain.Embedder = noopEmbedder{}
	if cc.embedder != nil {
		base = adapt(cc.embedder)
	}
	return app.NewWithEmbedder(ctx, cc.cfg, base, logger)
}

// Seed embeds docs and writes them to every backend. IDs are validated
// before anything is embedded; a failed batch aborts the whole call.
func (c *Client) Seed(ctx context.Context, docs []Document) (res SeedResult, err error) {
	defer func(start time.Time) { c.obs.observe("seed", start, err) }(time.Now())

	in := make([]domdoc.Document, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		doc, err := domdoc.New(d.ID, d.Title, d.Body)
		if err != nil {
			return SeedResult{}, fmt.Errorf("%w: document [%d]: %v", ErrInvalidInput, i, err)
		}
		if _, dup := seen[doc.ID()]; dup {
			return SeedResult{}, fmt.Errorf("%w: document [%d]: duplicate id %q", ErrInvalidInput, i, doc.ID())
		}
		seen[doc.ID()] = struct{}{}
		in = append(in, doc)
	}

	r, err := c.corpusSvc.Seed(ctx, in)
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult(r), nil
}

// SeedFile loads a YAML corpus file and seeds it.
func (c *Client) SeedFile(ctx context.Context, path string) (res SeedResult, err error) {
	defer func(start time.Time) { c.obs.observe("seed_file", start, err) }(time.Now())

	docs, err := corpusuc.LoadFile(path)
	if err != nil {
		return SeedResult{}, err
	}
	r, err := c.corpusSvc.Seed(ctx, docs)
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult(r), nil
}

// Close releases every backend. Safe to call on a partially built client.
func (c *Client) Close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	if err != nil {
		return errors.Join(errors.New("hybridsearch: close"), err)
	}
	return nil
}
