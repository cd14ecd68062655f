package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/schemamap/internal/config"
	"github.com/JonMunkholm/schemamap/internal/core"
	"github.com/JonMunkholm/schemamap/internal/logging"
	"github.com/JonMunkholm/schemamap/internal/store"
	"github.com/JonMunkholm/schemamap/internal/web"
)

func newServeCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mapping API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file to load (overwrites existing env vars)")
	return cmd
}

func serve(envFile string) error {
	// Overload overwrites existing env vars
	if err := godotenv.Overload(envFile); err != nil {
		slog.Info("no env file found, using environment variables", "path", envFile)
	} else {
		slog.Info("loaded env file", "path", envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	cleanup := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	defer cleanup()

	slog.Info("configuration loaded",
		"config", cfg.String(),
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"apply_max_concurrent", cfg.Engine.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	opts := core.Options{
		Limiter:    core.NewApplyLimiter(cfg.Engine.MaxConcurrent, cfg.Engine.MaxWaitTime),
		MaxRows:    cfg.Engine.MaxRows,
		MaxColumns: cfg.Engine.MaxColumns,

		ApplyTimeout: cfg.Engine.ApplyTimeout,
	}

	// A nil *store.Store must not reach web.NewServer as a non-nil Pinger.
	var db web.Pinger
	if cfg.Database.Enabled() {
		st, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		if cfg.Database.Migrate {
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			slog.Info("database schema migrated")
		}
		opts.Plans, opts.Runs, db = st, st, st
	} else {
		slog.Warn("no database configured; stored plans and run history are disabled")
	}

	if err := registerPlans(cfg.Engine.PlansDir); err != nil {
		return err
	}

	service := core.NewService(opts)
	server := web.NewServer(service, cfg, db)

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		MaxAge:        cfg.Retention.RunMaxAge,
		CheckInterval: cfg.Retention.CheckInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for applies to complete", "active", status.Active)
			if err := service.WaitForApplies(shutdownCtx); err != nil {
				slog.Warn("applies did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// registerPlans loads the plan directory into the registry. A missing
// directory is not an error.
func registerPlans(dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Info("plans directory not found, skipping", "dir", dir)
		return nil
	}

	n, err := core.RegisterDir(dir)
	if err != nil {
		return fmt.Errorf("register plans: %w", err)
	}
	slog.Info("plans registered", "dir", dir, "count", n)
	for _, p := range core.All() {
		slog.Debug("plan", "name", p.Name, "steps", len(p.Steps))
	}
	return nil
}
