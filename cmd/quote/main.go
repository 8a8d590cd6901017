package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"quote/internal/amqp"
	"quote/internal/auth"
	"quote/internal/cli"
	"quote/internal/core"
	apphttp "quote/internal/http"
	"quote/internal/services"
	"quote/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	result := cli.InitStore(ctx, logger, cfg)
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Store cleanup failed", "error", err)
			}
		}()
	}

	seedAdmins(ctx, logger, result.Store, cfg.AdminEmailList())

	calendar := cli.BuildCalendar(logger, cfg)
	fee := core.Money{Cents: int64(cfg.FeeCents)}

	provider, err := auth.NewGoogleFromEnv()
	if err != nil {
		logger.Error("Failed to initialize Google sign-in", "error", err)
		os.Exit(1)
	}

	gate := auth.NewGate(result.Store)
	gate.Attach(provider)
	defer gate.Close()

	// AMQP is optional: without it mutations still land, the export
	// worker just never hears about them.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	roster := services.NewRoster(result.Store, calendar, fee)
	admin := services.NewAdmin(result.Store, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, gate, provider, roster, admin)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting quote server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"periods", len(calendar),
		"fee", fee.String())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}

// seedAdmins creates the admin allowlist document on first boot so a
// fresh store recognizes the configured administrators. An existing
// document wins over the environment.
func seedAdmins(ctx context.Context, logger *slog.Logger, st store.DocumentStore, emails []string) {
	if len(emails) == 0 {
		return
	}

	_, err := st.Get(ctx, store.CollectionConfig, store.DocAdmins)
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		logger.Error("Failed to read admin allowlist", "error", err)
		return
	}

	doc := store.AdminSetDoc(core.AdminSet{Emails: emails})
	if err := st.Create(ctx, store.CollectionConfig, store.DocAdmins, doc); err != nil {
		logger.Error("Failed to seed admin allowlist", "error", err)
		return
	}
	logger.Info("Seeded admin allowlist", "admins", len(emails))
}
