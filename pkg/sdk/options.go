package hybridsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/config"
)

// Fusion strategies accepted by WithFusion.
const (
	FusionLinear = config.FusionLinear
	FusionRRF    = config.FusionRRF
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg config.Config

	embedder     Embedder
	useOpenAI    bool
	instructions *[2]string
	logger     *slog.Logger
	zapLogger  *zap.Logger
	metricsReg prometheus.Registerer
}

// newClientConfig starts from in-memory embedded stores and the engine defaults.
func newClientConfig(opts []Option) *clientConfig {
	c := &clientConfig{}
	for _, o := range opts {
		o.apply(c)
	}
	c.cfg.ApplyDefaults()
	// applied after defaults so that "" can switch the query prefix off
	if c.instructions != nil {
		c.cfg.Embedding.QueryInstruction = c.instructions[0]
		c.cfg.Embedding.DocumentInstruction = c.instructions[1]
	}
	return c
}

// WithEmbedded keeps every index in-process: bleve for keyword, HNSW for
// vectors and Badger for metadata. An empty dir keeps them in memory.
func WithEmbedded(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Backends = config.BackendsConfig{
			Keyword:  config.DriverBleve,
			Vector:   config.DriverHNSW,
			Metadata: config.DriverBadger,
		}
		c.cfg.Embedded.Dir = dir
	})
}

// WithRedis serves all three roles from one Redis instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Backends = config.BackendsConfig{
			Keyword:  config.DriverRedis,
			Vector:   config.DriverRedis,
			Metadata: config.DriverRedis,
		}
		c.cfg.Redis.Addrs = []string{addr}
		c.cfg.Redis.Password = password
	})
}

// WithPostgres serves all three roles from Postgres with pgvector.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Backends = config.BackendsConfig{
			Keyword:  config.DriverPostgres,
			Vector:   config.DriverPostgres,
			Metadata: config.DriverPostgres,
		}
		c.cfg.Postgres.DSN = dsn
	})
}

// WithSQLite serves keyword search and metadata from SQLite FTS5.
// Vectors stay in an in-process HNSW graph.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Backends = config.BackendsConfig{
			Keyword:  config.DriverSQLite,
			Vector:   config.DriverHNSW,
			Metadata: config.DriverSQLite,
		}
		c.cfg.SQLite.Path = path
	})
}

// WithBackends picks a driver per role ("redis", "postgres", "sqlite",
// "bleve", "hnsw", "badger"). Connection settings still come from the
// driver options above.
func WithBackends(keyword, vector, metadata string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Backends = config.BackendsConfig{Keyword: keyword, Vector: vector, Metadata: metadata}
	})
}

// WithEmbedder sets the text embedding provider. Its metrics and logs are
// labeled "custom" unless WithEmbedderName follows.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.useOpenAI = false
		c.cfg.Embedding.Provider = "custom"
		c.cfg.Embedding.Model = "custom"
	})
}

// WithEmbedderName labels a custom embedder's metrics and logs.
func WithEmbedderName(provider, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Provider = provider
		c.cfg.Embedding.Model = model
	})
}

// WithOpenAI uses an OpenAI-compatible embeddings endpoint.
func WithOpenAI(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Provider = "openai"
		c.cfg.Embedding.BaseURL = baseURL
		c.cfg.Embedding.APIKey = apiKey
		c.cfg.Embedding.Model = model
		c.embedder = nil
		c.useOpenAI = true
	})
}

// WithVectorDimensions sets the embedding dimension the vector index is built for.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Dimensions = dim
	})
}

// WithInstructions sets the prefixes prepended to query and document text
// before embedding. Defaults: "query: " and none.
func WithInstructions(query, document string) Option {
	return optionFunc(func(c *clientConfig) {
		c.instructions = &[2]string{query, document}
	})
}

// WithEmbeddingCache sets the in-process LRU size for query embeddings.
func WithEmbeddingCache(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.CacheSize = size
	})
}

// WithFusion selects the fusion strategy and source weights.
func WithFusion(strategy string, keywordWeight, semanticWeight float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.Fusion.Strategy = strategy
		c.cfg.Search.Fusion.KeywordWeight = &keywordWeight
		c.cfg.Search.Fusion.SemanticWeight = &semanticWeight
	})
}

// WithStrict fails hybrid queries when either source fails instead of
// degrading to the one that answered.
func WithStrict() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.Strict = true
	})
}

// WithSubqueryTimeout bounds each retriever call.
func WithSubqueryTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.SubqueryTimeoutMs = int(d / time.Millisecond)
	})
}

// WithRetries sets how many times a retryable sub-query failure is retried.
func WithRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.Retry.MaxRetries = &n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithZapLogger routes the engine's own logs (backends, seeding, retrieval)
// to l. Silent by default.
func WithZapLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.zapLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
