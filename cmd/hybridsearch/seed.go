package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/app"
	"github.com/kailas-cloud/hybridsearch/internal/config"
)

const seedLockName = ".seed.lock"

type seedOptions struct {
	file string
}

func newSeedCmd(global *globalOptions) *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo corpus into every configured backend",
		Long: `Embed the corpus documents and write them to the keyword, vector and
metadata backends. Documents without an id get sequential ids from 1.

Seeding is idempotent: existing documents with the same id are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Corpus YAML file (default corpus.path)")

	return cmd
}

func runSeed(cmd *cobra.Command, global *globalOptions, opts seedOptions) error {
	cfg, err := global.load()
	if err != nil {
		return err
	}
	if opts.file != "" {
		cfg.Corpus.Path = opts.file
	}

	logger, err := global.logger(&cfg, "info")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	unlock, err := lockEmbeddedDir(&cfg)
	if err != nil {
		return err
	}
	defer unlock()

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Error closing backends", zap.Error(err))
		}
	}()

	res, err := a.SeedFile(cmd.Context(), cfg.Corpus.Path)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d documents in %d batches (%d tokens) into %v\n",
		res.Documents, res.Batches, res.Tokens, res.Sinks)
	return err
}

// lockEmbeddedDir serializes seed runs sharing an on-disk embedded store.
func lockEmbeddedDir(cfg *config.Config) (func(), error) {
	noop := func() {}
	if cfg.Embedded.Dir == "" || !usesEmbedded(cfg) {
		return noop, nil
	}
	if err := os.MkdirAll(cfg.Embedded.Dir, 0o755); err != nil {
		return noop, fmt.Errorf("create %s: %w", cfg.Embedded.Dir, err)
	}

	fl := flock.New(filepath.Join(cfg.Embedded.Dir, seedLockName))
	locked, err := fl.TryLock()
	if err != nil {
		return noop, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return noop, fmt.Errorf("another seed is running on %s", cfg.Embedded.Dir)
	}
	return func() { _ = fl.Unlock() }, nil
}

func usesEmbedded(cfg *config.Config) bool {
	return cfg.UsesDriver(config.DriverBleve) ||
		cfg.UsesDriver(config.DriverHNSW) ||
		cfg.UsesDriver(config.DriverBadger)
}
