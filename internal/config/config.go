package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend driver names.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBleve    = "bleve"
	DriverHNSW     = "hnsw"
	DriverBadger   = "badger"
)

// Fusion strategies.
const (
	FusionLinear = "linear"
	FusionRRF    = "rrf"
)

// Redis vector index algorithms.
const (
	RedisVectorHNSW = "hnsw"
	RedisVectorFlat = "flat"
)

// Config holds the hybridsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Search    SearchConfig    `yaml:"search"`
	Backends  BackendsConfig  `yaml:"backends"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Embedded  EmbeddedConfig  `yaml:"embedded"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys means open access.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	BasePath        string   `yaml:"base_path"` // e.g. "/api"
	CORSOrigins     []string `yaml:"cors_origins"`
}

// SearchConfig holds the retrieval and fusion knobs.
type SearchConfig struct {
	KeywordTopK       int          `yaml:"keyword_top_k"`
	SemanticTopK      int          `yaml:"semantic_top_k"`
	PageSize          int          `yaml:"page_size"`
	MaxPageSize       int          `yaml:"max_page_size"`
	SubqueryTimeoutMs int          `yaml:"subquery_timeout_ms"`
	MaxQueryLength    int          `yaml:"max_query_length"`
	Strict            bool         `yaml:"strict"` // fail instead of degrading hybrid to one source
	Retry             RetryConfig  `yaml:"retry"`
	Fusion            FusionConfig `yaml:"fusion"`
}

// RetryConfig bounds retries of retryable sub-query failures.
type RetryConfig struct {
	MaxRetries   *int `yaml:"max_retries"` // nil = default, 0 = no retries
	BackoffMs    int  `yaml:"backoff_ms"`
	MaxBackoffMs int  `yaml:"max_backoff_ms"`
}

// FusionConfig selects and tunes the fusion strategy.
type FusionConfig struct {
	Strategy       string   `yaml:"strategy"` // linear (default), rrf
	KeywordWeight  *float64 `yaml:"keyword_weight"`
	SemanticWeight *float64 `yaml:"semantic_weight"`
	RRFK           int      `yaml:"rrf_k"`
}

// BackendsConfig picks a storage driver per role.
type BackendsConfig struct {
	Keyword  string `yaml:"keyword"`  // redis, postgres, sqlite, bleve
	Vector   string `yaml:"vector"`   // redis, postgres, hnsw
	Metadata string `yaml:"metadata"` // redis, postgres, sqlite, badger
}

// RedisConfig holds Redis connection and index settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	IndexName        string   `yaml:"index_name"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	VectorAlgorithm  string   `yaml:"vector_algorithm"` // hnsw | flat
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	DSN              string `yaml:"dsn"`
	TextSearchConfig string `yaml:"text_search_config"`
	MaxConns         int    `yaml:"max_conns"`
}

// SQLiteConfig holds the SQLite database location.
type SQLiteConfig struct {
	Path string `yaml:"path"` // ":memory:" for an in-process database
}

// EmbeddedConfig holds settings for the in-process bleve, hnsw and badger stores.
type EmbeddedConfig struct {
	Dir          string `yaml:"dir"` // empty = in-memory only
	HNSWM        int    `yaml:"hnsw_m"`
	HNSWEfSearch int    `yaml:"hnsw_ef_search"`
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai (any OpenAI-compatible endpoint)
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	CacheSize           int    `yaml:"cache_size"`    // in-process LRU entries, 0 = disabled
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // shared KV cache, 0 = no expiry
	TimeoutSec          int    `yaml:"timeout_sec"`
}

// CorpusConfig holds seeding settings.
type CorpusConfig struct {
	Path      string `yaml:"path"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

// Load reads configuration from a YAML file by environment name (local, docker, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, then decodes, defaults and validates it.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.applyHTTPDefaults()
	c.applySearchDefaults()
	c.applyBackendDefaults()
	c.applyEmbeddingDefaults()

	// ${VAR:-} expansions leave empty list entries behind.
	c.Auth.APIKeys = compact(c.Auth.APIKeys)
	c.Redis.Addrs = compact(c.Redis.Addrs)
	c.HTTP.CORSOrigins = compact(c.HTTP.CORSOrigins)

	if c.Corpus.Path == "" {
		c.Corpus.Path = "config/corpus.yaml"
	}
	if c.Corpus.BatchSize <= 0 {
		c.Corpus.BatchSize = 16
	}
	if c.Corpus.Workers <= 0 {
		c.Corpus.Workers = 4
	}
}

func (c *Config) applyHTTPDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	c.HTTP.BasePath = strings.TrimRight(c.HTTP.BasePath, "/")
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.KeywordTopK <= 0 {
		s.KeywordTopK = 50
	}
	if s.SemanticTopK <= 0 {
		s.SemanticTopK = 50
	}
	if s.PageSize <= 0 {
		s.PageSize = 20
	}
	if s.MaxPageSize <= 0 {
		s.MaxPageSize = 100
	}
	if s.SubqueryTimeoutMs <= 0 {
		s.SubqueryTimeoutMs = 2000
	}
	if s.MaxQueryLength <= 0 {
		s.MaxQueryLength = 1024
	}
	if s.Retry.MaxRetries == nil {
		one := 1
		s.Retry.MaxRetries = &one
	}
	if s.Retry.BackoffMs <= 0 {
		s.Retry.BackoffMs = 50
	}
	if s.Retry.MaxBackoffMs <= 0 {
		s.Retry.MaxBackoffMs = 500
	}
	if s.Fusion.Strategy == "" {
		s.Fusion.Strategy = FusionLinear
	}
	if s.Fusion.KeywordWeight == nil {
		w := 0.5
		s.Fusion.KeywordWeight = &w
	}
	if s.Fusion.SemanticWeight == nil {
		w := 0.5
		s.Fusion.SemanticWeight = &w
	}
	if s.Fusion.RRFK <= 0 {
		s.Fusion.RRFK = 60
	}
}

func (c *Config) applyBackendDefaults() {
	if c.Backends.Keyword == "" {
		c.Backends.Keyword = DriverBleve
	}
	if c.Backends.Vector == "" {
		c.Backends.Vector = DriverHNSW
	}
	if c.Backends.Metadata == "" {
		c.Backends.Metadata = DriverBadger
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "hybridsearch:"
	}
	if c.Redis.IndexName == "" {
		c.Redis.IndexName = "hybridsearch_idx"
	}
	if c.Redis.VectorAlgorithm == "" {
		c.Redis.VectorAlgorithm = RedisVectorHNSW
	}
	if c.Redis.HNSWM <= 0 {
		c.Redis.HNSWM = 16
	}
	if c.Redis.HNSWEFConstruct <= 0 {
		c.Redis.HNSWEFConstruct = 200
	}
	if c.Postgres.TextSearchConfig == "" {
		c.Postgres.TextSearchConfig = "english"
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = ":memory:"
	}
	if c.Embedded.HNSWM <= 0 {
		c.Embedded.HNSWM = 16
	}
	if c.Embedded.HNSWEfSearch <= 0 {
		c.Embedded.HNSWEfSearch = 20
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.Model == "" {
		e.Model = "intfloat/e5-mistral-7b-instruct"
	}
	if e.Dimensions <= 0 {
		e.Dimensions = 4096
	}
	if e.QueryInstruction == "" {
		e.QueryInstruction = "query: "
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := c.ValidateEngine(); err != nil {
		return err
	}
	if c.Embedding.Provider != "openai" {
		return fmt.Errorf("embedding.provider must be \"openai\", got %q", c.Embedding.Provider)
	}
	return nil
}

// ValidateEngine checks the search and backend sections. The embedded SDK
// uses it: it has no HTTP server and may bring its own embedder.
func (c *Config) ValidateEngine() error {
	if err := c.validateSearch(); err != nil {
		return err
	}
	return c.validateBackends()
}

func (c *Config) validateSearch() error {
	s := c.Search
	if s.PageSize > s.MaxPageSize {
		return fmt.Errorf("search.page_size (%d) must not exceed search.max_page_size (%d)",
			s.PageSize, s.MaxPageSize)
	}
	if *s.Retry.MaxRetries < 0 {
		return fmt.Errorf("search.retry.max_retries must be >= 0, got %d", *s.Retry.MaxRetries)
	}
	switch s.Fusion.Strategy {
	case FusionLinear, FusionRRF:
	default:
		return fmt.Errorf("search.fusion.strategy must be %q or %q, got %q",
			FusionLinear, FusionRRF, s.Fusion.Strategy)
	}
	kw, sw := *s.Fusion.KeywordWeight, *s.Fusion.SemanticWeight
	if kw < 0 || sw < 0 {
		return fmt.Errorf("search.fusion weights must be >= 0, got %g/%g", kw, sw)
	}
	if kw == 0 && sw == 0 {
		return fmt.Errorf("search.fusion weights must not both be 0")
	}
	return nil
}

func (c *Config) validateBackends() error {
	roles := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"keyword", c.Backends.Keyword, []string{DriverRedis, DriverPostgres, DriverSQLite, DriverBleve}},
		{"vector", c.Backends.Vector, []string{DriverRedis, DriverPostgres, DriverHNSW}},
		{"metadata", c.Backends.Metadata, []string{DriverRedis, DriverPostgres, DriverSQLite, DriverBadger}},
	}
	for _, r := range roles {
		if !contains(r.allowed, r.value) {
			return fmt.Errorf("backends.%s must be one of %s, got %q",
				r.name, strings.Join(r.allowed, ", "), r.value)
		}
	}
	if c.UsesDriver(DriverRedis) && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	if c.Redis.VectorAlgorithm != RedisVectorHNSW && c.Redis.VectorAlgorithm != RedisVectorFlat {
		return fmt.Errorf("redis.vector_algorithm must be %s or %s, got %q",
			RedisVectorHNSW, RedisVectorFlat, c.Redis.VectorAlgorithm)
	}
	if c.UsesDriver(DriverPostgres) && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	return nil
}

// UsesDriver reports whether any role is served by the given driver.
func (c *Config) UsesDriver(driver string) bool {
	return c.Backends.Keyword == driver || c.Backends.Vector == driver || c.Backends.Metadata == driver
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func compact(list []string) []string {
	out := list[:0]
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
