package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Search.KeywordTopK != 50 || cfg.Search.SemanticTopK != 50 {
		t.Errorf("expected top-k 50/50, got %d/%d", cfg.Search.KeywordTopK, cfg.Search.SemanticTopK)
	}
	if cfg.Search.PageSize != 20 {
		t.Errorf("expected PageSize=20, got %d", cfg.Search.PageSize)
	}
	if cfg.Search.SubqueryTimeoutMs != 2000 {
		t.Errorf("expected SubqueryTimeoutMs=2000, got %d", cfg.Search.SubqueryTimeoutMs)
	}
	if cfg.Search.MaxQueryLength != 1024 {
		t.Errorf("expected MaxQueryLength=1024, got %d", cfg.Search.MaxQueryLength)
	}
	if *cfg.Search.Retry.MaxRetries != 1 {
		t.Errorf("expected MaxRetries=1, got %d", *cfg.Search.Retry.MaxRetries)
	}
	if cfg.Search.Fusion.Strategy != FusionLinear {
		t.Errorf("expected linear fusion, got %q", cfg.Search.Fusion.Strategy)
	}
	if *cfg.Search.Fusion.KeywordWeight != 0.5 || *cfg.Search.Fusion.SemanticWeight != 0.5 {
		t.Errorf("expected weights 0.5/0.5")
	}
	if cfg.Search.Fusion.RRFK != 60 {
		t.Errorf("expected RRFK=60, got %d", cfg.Search.Fusion.RRFK)
	}
	if cfg.Backends.Keyword != DriverBleve || cfg.Backends.Vector != DriverHNSW || cfg.Backends.Metadata != DriverBadger {
		t.Errorf("expected embedded backends, got %+v", cfg.Backends)
	}
	if cfg.Redis.KeyPrefix != "hybridsearch:" {
		t.Errorf("expected KeyPrefix='hybridsearch:', got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Embedding.Model != "intfloat/e5-mistral-7b-instruct" || cfg.Embedding.Dimensions != 4096 {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.QueryInstruction != "query: " || cfg.Embedding.DocumentInstruction != "" {
		t.Errorf("unexpected instructions: %q / %q", cfg.Embedding.QueryInstruction, cfg.Embedding.DocumentInstruction)
	}
	if cfg.Corpus.BatchSize != 16 || cfg.Corpus.Workers != 4 {
		t.Errorf("unexpected corpus defaults: %+v", cfg.Corpus)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	zero := 0
	w := 0.0
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, BasePath: "/api/"},
		Search: SearchConfig{PageSize: 5, Retry: RetryConfig{MaxRetries: &zero}},
		Redis:  RedisConfig{KeyPrefix: "custom:"},
	}
	cfg.Search.Fusion.SemanticWeight = &w
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.BasePath != "/api" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.HTTP.BasePath)
	}
	if cfg.Search.PageSize != 5 {
		t.Errorf("expected PageSize=5, got %d", cfg.Search.PageSize)
	}
	if *cfg.Search.Retry.MaxRetries != 0 {
		t.Errorf("explicit max_retries=0 must survive defaults")
	}
	if *cfg.Search.Fusion.SemanticWeight != 0 {
		t.Errorf("explicit semantic_weight=0 must survive defaults")
	}
	if cfg.Redis.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Redis.KeyPrefix)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Backends.Vector = DriverSQLite

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for sqlite vector backend")
	}
	if !strings.Contains(err.Error(), "backends.vector") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Backends.Metadata = DriverRedis

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}

	cfg.Redis.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RedisVectorAlgorithm(t *testing.T) {
	cfg := validConfig()
	if cfg.Redis.VectorAlgorithm != RedisVectorHNSW {
		t.Fatalf("expected default hnsw, got %q", cfg.Redis.VectorAlgorithm)
	}

	cfg.Redis.VectorAlgorithm = RedisVectorFlat
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Redis.VectorAlgorithm = "ivf"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "redis.vector_algorithm") {
		t.Fatalf("expected vector_algorithm error, got %v", err)
	}
}

func TestValidate_MissingPostgresDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Backends.Keyword = DriverPostgres

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing postgres dsn")
	}
}

func TestValidate_Fusion(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown strategy", func(c *Config) { c.Search.Fusion.Strategy = "borda" }},
		{"negative weight", func(c *Config) { w := -0.1; c.Search.Fusion.KeywordWeight = &w }},
		{"both zero", func(c *Config) {
			z1, z2 := 0.0, 0.0
			c.Search.Fusion.KeywordWeight, c.Search.Fusion.SemanticWeight = &z1, &z2
		}},
		{"page over max", func(c *Config) { c.Search.PageSize = 200 }},
		{"negative retries", func(c *Config) { n := -1; c.Search.Retry.MaxRetries = &n }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("HS_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${HS_TEST_KEY}\nb: ${HS_TEST_MISSING:-fallback}\nc: ${HS_TEST_MISSING}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("HS_TEST_PORT", "9090")
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: ${HS_TEST_PORT:-8080}
  base_path: /api
search:
  fusion:
    strategy: rrf
    semantic_weight: 0
backends:
  keyword: sqlite
  vector: hnsw
  metadata: sqlite
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Search.Fusion.Strategy != FusionRRF {
		t.Errorf("expected rrf, got %q", cfg.Search.Fusion.Strategy)
	}
	if *cfg.Search.Fusion.SemanticWeight != 0 || *cfg.Search.Fusion.KeywordWeight != 0.5 {
		t.Errorf("unexpected weights %g/%g", *cfg.Search.Fusion.KeywordWeight, *cfg.Search.Fusion.SemanticWeight)
	}
	if cfg.Backends.Keyword != DriverSQLite {
		t.Errorf("expected sqlite keyword backend, got %q", cfg.Backends.Keyword)
	}
}

func TestApplyDefaults_CompactsLists(t *testing.T) {
	cfg := Config{
		Auth:  AuthConfig{APIKeys: []string{"", "key-1"}},
		Redis: RedisConfig{Addrs: []string{""}},
	}
	cfg.ApplyDefaults()

	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0] != "key-1" {
		t.Errorf("expected [key-1], got %v", cfg.Auth.APIKeys)
	}
	if cfg.Redis.Addrs != nil {
		t.Errorf("expected nil addrs, got %v", cfg.Redis.Addrs)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestUsesDriver(t *testing.T) {
	cfg := validConfig()
	if !cfg.UsesDriver(DriverBleve) || !cfg.UsesDriver(DriverBadger) {
		t.Error("expected embedded drivers in use")
	}
	if cfg.UsesDriver(DriverRedis) {
		t.Error("redis must not be in use by default")
	}
}

func TestLoad_ShippedProfiles(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hybridsearch")
	for _, env := range []string{"local", "docker", "prod"} {
		t.Run(env, func(t *testing.T) {
			cfg, err := Load(env)
			if err != nil {
				t.Fatalf("load %s: %v", env, err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("validate %s: %v", env, err)
			}
			if cfg.HTTP.BasePath != "/api" {
				t.Errorf("expected base path /api, got %q", cfg.HTTP.BasePath)
			}
		})
	}
}
