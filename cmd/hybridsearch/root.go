package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hybridsearch/internal/config"
	logpkg "github.com/kailas-cloud/hybridsearch/internal/logger"
	"github.com/kailas-cloud/hybridsearch/internal/version"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	env        string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "hybridsearch",
		Short: "Hybrid keyword and semantic search API",
		Long: `hybridsearch answers text queries by running a full-text index and a
vector index concurrently and fusing their rankings into one list.

Running it without a subcommand starts the HTTP server.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd, opts, serveOptions{})
		},
	}
	cmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file (overrides --env)")
	cmd.PersistentFlags().StringVarP(&opts.env, "env", "e", "", "Environment profile: local, docker, prod (default $ENV or local)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (o *globalOptions) environment() string {
	if o.env != "" {
		return o.env
	}
	return config.GetEnv()
}

// load reads and validates the configuration selected by the flags.
func (o *globalOptions) load() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(o.environment())
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// logger builds the process logger. fallbackLevel applies when neither the
// flag nor the config sets a level.
func (o *globalOptions) logger(cfg *config.Config, fallbackLevel string) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = fallbackLevel
	}
	if o.logLevel != "" {
		level = o.logLevel
	}
	env := o.environment()
	if env != "prod" && env != "docker" && env != "test" {
		env = "local"
	}
	l, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l, nil
}
