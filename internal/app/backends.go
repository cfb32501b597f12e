package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/config"
	"github.com/kailas-cloud/hybridsearch/internal/db"
	dbBadger "github.com/kailas-cloud/hybridsearch/internal/db/badger"
	dbBleve "github.com/kailas-cloud/hybridsearch/internal/db/bleve"
	dbHNSW "github.com/kailas-cloud/hybridsearch/internal/db/hnsw"
	dbPostgres "github.com/kailas-cloud/hybridsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/hybridsearch/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/hybridsearch/internal/db/sqlite"
)

// backends holds one open connection per configured driver. A driver named
// by several roles is opened once and shared.
type backends struct {
	keyword  db.TextSearcher
	vector   db.VectorSearcher
	metadata db.DocumentReader

	// per-role handles for health checks
	keywordPing  db.Pinger
	vectorPing   db.Pinger
	metadataPing db.Pinger

	// opened drivers in open order
	names  []string
	byName map[string]db.Backend
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{byName: make(map[string]db.Backend)}

	roles := []struct {
		role   string
		driver string
		bind   func(db.Backend) bool
	}{
		{"keyword", cfg.Backends.Keyword, func(s db.Backend) bool {
			ts, ok := s.(db.TextSearcher)
			b.keyword, b.keywordPing = ts, s
			return ok
		}},
		{"vector", cfg.Backends.Vector, func(s db.Backend) bool {
			vs, ok := s.(db.VectorSearcher)
			b.vector, b.vectorPing = vs, s
			return ok
		}},
		{"metadata", cfg.Backends.Metadata, func(s db.Backend) bool {
			dr, ok := s.(db.DocumentReader)
			b.metadata, b.metadataPing = dr, s
			return ok
		}},
	}

	for _, r := range roles {
		store, err := b.open(ctx, cfg, r.driver, logger)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open %s backend %s: %w", r.role, r.driver, err)
		}
		if !r.bind(store) {
			_ = b.Close()
			return nil, fmt.Errorf("driver %s cannot serve the %s role", r.driver, r.role)
		}
	}
	return b, nil
}

func (b *backends) open(ctx context.Context, cfg *config.Config, driver string, logger *zap.Logger) (db.Backend, error) {
	if s, ok := b.byName[driver]; ok {
		return s, nil
	}

	var (
		s   db.Backend
		err error
	)
	switch driver {
	case config.DriverRedis:
		s, err = openRedis(ctx, cfg)
	case config.DriverPostgres:
		s, err = dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:              cfg.Postgres.DSN,
			TextSearchConfig: cfg.Postgres.TextSearchConfig,
			MaxConns:         int32(cfg.Postgres.MaxConns), //nolint:gosec // validated range
		})
	case config.DriverSQLite:
		s, err = dbSQLite.Open(ctx, cfg.SQLite.Path)
	case config.DriverBleve:
		s, err = dbBleve.Open(embeddedPath(cfg, "keyword.bleve"))
	case config.DriverHNSW:
		s, err = dbHNSW.Open(dbHNSW.Config{
			Path:     embeddedPath(cfg, "vectors.hnsw"),
			M:        cfg.Embedded.HNSWM,
			EfSearch: cfg.Embedded.HNSWEfSearch,
		})
	case config.DriverBadger:
		s, err = dbBadger.Open(dbBadger.Config{
			Dir:    embeddedPath(cfg, "metadata"),
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Backend opened", zap.String("driver", driver))
	b.byName[driver] = s
	b.names = append(b.names, driver)
	return s, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*dbRedis.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:     cfg.Redis.Addrs,
		Password:  cfg.Redis.Password,
		KeyPrefix: cfg.Redis.KeyPrefix,
		IndexName: cfg.Redis.IndexName,
		FlatIndex: cfg.Redis.VectorAlgorithm == config.RedisVectorFlat,
		HNSWM:     cfg.Redis.HNSWM,
		HNSWEF:    cfg.Redis.HNSWEFConstruct,
	})
	if err != nil {
		return nil, err
	}
	if err := s.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// embeddedPath places an embedded store under embedded.dir. An empty dir
// keeps the store in memory.
func embeddedPath(cfg *config.Config, name string) string {
	if cfg.Embedded.Dir == "" {
		return ""
	}
	return filepath.Join(cfg.Embedded.Dir, name)
}

// kvStore returns the first opened driver usable as an embedding cache.
func (b *backends) kvStore() (db.KVStore, string) {
	for _, name := range b.names {
		if kv, ok := b.byName[name].(db.KVStore); ok {
			return kv, name
		}
	}
	return nil, ""
}

// ensureSchema prepares every opened driver for vectors of dimension dim.
func (b *backends) ensureSchema(ctx context.Context, dim int) error {
	for _, name := range b.names {
		sm, ok := b.byName[name].(db.SchemaManager)
		if !ok {
			continue
		}
		if err := sm.EnsureSchema(ctx, dim); err != nil {
			return fmt.Errorf("%s: ensure schema: %w", name, err)
		}
	}
	return nil
}

// Close closes every driver in reverse open order.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.names) - 1; i >= 0; i-- {
		if err := b.byName[b.names[i]].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", b.names[i], err))
		}
	}
	return errors.Join(errs...)
}
