// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/quote, cmd/quote-worker, and cmd/oauth-init.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"quote/internal/backend"
	"quote/internal/config"
	"quote/internal/core"
	"quote/internal/log"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			"error", err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InitStore creates the document store selected by the configuration.
// Returns the factory result (store plus cleanup) or exits the process
// on failure.
func InitStore(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.Result {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize document store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// BuildCalendar turns the configured schedule bounds into the billing
// calendar. Returns the periods or exits the process on invalid bounds.
func BuildCalendar(logger *slog.Logger, cfg *config.Config) []core.Period {
	start, err := core.ParsePeriodKey(cfg.ScheduleStart)
	if err != nil {
		logger.Error("Invalid schedule start", "error", err, "value", cfg.ScheduleStart)
		os.Exit(1)
	}
	end, err := core.ParsePeriodKey(cfg.ScheduleEnd)
	if err != nil {
		logger.Error("Invalid schedule end", "error", err, "value", cfg.ScheduleEnd)
		os.Exit(1)
	}

	calendar := core.GenerateRange(start.Year, start.Month, end.Year, end.Month)
	if len(calendar) == 0 {
		logger.Error("Empty billing calendar", "start", cfg.ScheduleStart, "end", cfg.ScheduleEnd)
		os.Exit(1)
	}
	return calendar
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// When SIGINT or SIGTERM arrives, cleanup runs with a context bounded
// by timeout, then the returned context is cancelled and done closes.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
