package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/app"
	chiTransport "github.com/kailas-cloud/hybridsearch/internal/transport/chi"
	"github.com/kailas-cloud/hybridsearch/internal/version"
)

type serveOptions struct {
	port int
	seed bool
}

func newServeCmd(global *globalOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. SIGINT and SIGTERM trigger a graceful
shutdown bounded by http.shutdown_timeout_sec.

Use --seed with the in-memory embedded backends to load the corpus before
the server starts accepting requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, global, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Override http.port")
	cmd.Flags().BoolVar(&opts.seed, "seed", false, "Seed the corpus before serving")

	return cmd
}

func runServe(cmd *cobra.Command, global *globalOptions, opts serveOptions) error {
	cfg, err := global.load()
	if err != nil {
		return err
	}
	if opts.port > 0 {
		cfg.HTTP.Port = opts.port
	}

	logger, err := global.logger(&cfg, "info")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting hybridsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", global.environment()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("base_path", cfg.HTTP.BasePath),
		zap.String("keyword_backend", cfg.Backends.Keyword),
		zap.String("vector_backend", cfg.Backends.Vector),
		zap.String("metadata_backend", cfg.Backends.Metadata),
		zap.String("fusion", cfg.Search.Fusion.Strategy),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Error closing backends", zap.Error(err))
		}
	}()

	if err := a.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to prepare backends", zap.Error(err))
		return err
	}
	if opts.seed {
		if _, err := a.SeedFile(ctx, cfg.Corpus.Path); err != nil {
			logger.Error("Failed to seed corpus", zap.Error(err))
			return err
		}
	}

	handler := chiTransport.NewRouter(
		chiTransport.NewServer(a.Search, a.Health, logger),
		chiTransport.RouterConfig{
			BasePath:    cfg.HTTP.BasePath,
			CORSOrigins: cfg.HTTP.CORSOrigins,
			APIKeys:     cfg.Auth.APIKeys,
		},
		logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		logger.Error("HTTP server error", zap.Error(err))
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
