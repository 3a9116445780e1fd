package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/genecheck/internal/config"
	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/JonMunkholm/genecheck/internal/logging"
	"github.com/JonMunkholm/genecheck/internal/report"
	"github.com/JonMunkholm/genecheck/internal/store"
	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/JonMunkholm/genecheck/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"gene_marker", cfg.Validation.Marker,
		"validate_max_concurrent", cfg.Validation.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history", cfg.Database.Enabled(),
	)

	delim, err := cfg.Validation.DelimiterRune()
	if err != nil {
		logger.Error("invalid delimiter", "error", err)
		os.Exit(1)
	}

	svcCfg := core.ServiceConfig{
		Validator: core.NewValidator(core.ValidatorConfig{
			Marker: cfg.Validation.Marker,
			Logger: logger,
			// Server reports go to the log only.
			Reporter: report.NewConsole(report.Options{Logger: logger}),
		}),
		Limiter: core.NewLimiter(cfg.Validation.MaxConcurrent, cfg.Validation.MaxWaitTime),
		Read:    table.ReadOptions{Delimiter: delim, MaxBytes: cfg.Validation.MaxFileSize},
		Logger:  logger,
	}

	ctx := context.Background()
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	var opts web.Options
	opts.Logger = logger

	if cfg.Database.Enabled() {
		pool, err := store.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			logger.Info("connected to database")
		}

		runs := store.NewRunStore(pool)
		if err := runs.Migrate(ctx); err != nil {
			logger.Error("failed to migrate run history", "error", err)
			os.Exit(1)
		}
		svcCfg.Runs = runs
		opts.DB = pool

		go core.StartRetentionScheduler(jobCtx, runs, core.RetentionConfig{
			RetentionDays: cfg.History.RetentionDays,
			CheckInterval: cfg.History.CheckInterval,
		}, logger)
	} else {
		logger.Info("DATABASE_URL not set, run history disabled")
	}

	service := core.NewService(svcCfg)
	server := web.NewServer(service, cfg, opts)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight validations
		if status := service.Limiter().Status(); status.Active > 0 {
			logger.Info("waiting for validations to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				logger.Warn("validations did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
