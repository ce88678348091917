package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/yungbote/ballot-consensus-backend/internal/app"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

const programName = "ballot-consensus"

var (
	configFile string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Ballot version attestation and consensus service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "force development logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if debug {
			cfg.LogMode = "development"
		}
		cmd.SetContext(app.WithContext(cmd.Context(), cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(resolveCommand())
	rootCmd.AddCommand(migrateCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}

// setup returns the loaded config and a logger built from it.
func setup(cmd *cobra.Command) (app.Config, *logger.Logger, error) {
	cfg, ok := app.FromContext(cmd.Context())
	if !ok {
		return cfg, nil, fmt.Errorf("no config found in context")
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Info(fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn("could not set GOMAXPROCS", "error", err)
	}
	logEffectiveConfig(log, cfg)
	return cfg, log, nil
}

func logEffectiveConfig(log *logger.Logger, cfg app.Config) {
	log.Debug("effective config",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"resolver_schedule", cfg.ResolverSchedule,
		"resolver_concurrency", cfg.ResolverConcurrency,
		"store_timeout", cfg.StoreTimeout,
		"redis_addr", cfg.RedisAddr,
		"election_timezone", cfg.ElectionTimezone,
		"admin_api_keys", len(cfg.AdminAPIKeys),
		"metrics_enabled", cfg.MetricsEnabled,
		"otel_enabled", cfg.OtelEnabled,
	)
}
