package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Record-Gate/Recordgate/internal/adapter/inbound/http"
	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/memory"
	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/schema"
	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/sqlite"
	"github.com/Record-Gate/Recordgate/internal/config"
	"github.com/Record-Gate/Recordgate/internal/domain/access"
	"github.com/Record-Gate/Recordgate/internal/domain/auth"
	"github.com/Record-Gate/Recordgate/internal/eval"
	"github.com/Record-Gate/Recordgate/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the decision server",
	Long: `Start the Record Gate decision server.

The server loads policies from the configured store (optionally seeded
from a bundle file) and answers access decisions over HTTP.

Examples:
  # Start with config file settings
  record-gate serve

  # Start with a specific config file
  record-gate --config /path/to/config.yaml serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Graceful shutdown on SIGINT/SIGTERM. stop() restores default signal
	// handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}
	logger.Info("record-gate stopped")
	return nil
}

// run wires all components together and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	evaluator, err := eval.New(eval.Config{MaxDepth: cfg.Engine.MaxDepth})
	if err != nil {
		return fmt.Errorf("failed to build evaluator: %w", err)
	}

	store, cleanup, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Bundle.Path != "" {
		validator := schema.NewValidator(evaluator, cfg.Engine.MaxDepth)
		policies, err := schema.LoadBundle(cfg.Bundle.Path, validator)
		if err != nil {
			return fmt.Errorf("failed to load policy bundle: %w", err)
		}
		if err := schema.SeedStore(ctx, store, policies); err != nil {
			return fmt.Errorf("failed to seed policy store: %w", err)
		}
		logger.Info("seeded policies from bundle", "path", cfg.Bundle.Path, "policies", len(policies))
	}

	accessService, err := service.NewAccessService(ctx, store, evaluator, logger,
		service.WithCacheSize(cfg.Engine.CacheSize))
	if err != nil {
		return fmt.Errorf("failed to build access service: %w", err)
	}
	evalService := service.NewEvalService(evaluator, logger)

	opts := []http.Option{
		http.WithAddr(cfg.Server.HTTPAddr),
		http.WithLogger(logger),
		http.WithTimeouts(parseTimeout(cfg.Server.ReadTimeout), parseTimeout(cfg.Server.WriteTimeout)),
	}
	if len(cfg.Auth.APIKeys) > 0 {
		opts = append(opts, http.WithKeyVerifier(auth.NewKeyVerifier(cfg.Auth.APIKeys)))
	} else {
		logger.Warn("no API keys configured, decision API is unauthenticated")
	}

	transport := http.NewTransport(accessService, evalService, opts...)
	return transport.Start(ctx)
}

// openStore builds the configured policy store backend. The returned cleanup
// function closes backend resources.
func openStore(cfg *config.Config, logger *slog.Logger) (access.PolicyStore, func(), error) {
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info("using sqlite policy store", "path", cfg.Store.SQLitePath)
		return s, func() { _ = s.Close() }, nil
	default:
		logger.Info("using in-memory policy store")
		return memory.NewPolicyStore(), func() {}, nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
