package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"quote/internal/amqp"
	"quote/internal/cli"
	"quote/internal/core"
	exportgoogle "quote/internal/export/google"
	"quote/internal/services"
	"quote/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting quote-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := cli.InitStore(ctx, logger, cfg)
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Store cleanup failed", "error", err)
			}
		}()
	}

	calendar := cli.BuildCalendar(logger, cfg)
	roster := services.NewRoster(result.Store, calendar, core.Money{Cents: int64(cfg.FeeCents)})

	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the export worker")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	exporter, err := exportgoogle.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(roster, exporter)

	g, gctx := errgroup.WithContext(ctx)

	// Mirror the current store state once before consuming so the
	// spreadsheet never lags changes made while the worker was down.
	g.Go(func() error {
		if err := exportWorker.StartupExport(gctx); err != nil {
			logger.Error("Startup export failed", "error", err)
			// Don't exit - the consume loop will retry on the next change
		}
		return nil
	})

	g.Go(func() error {
		return amqpClient.ConsumeRosterChanged(gctx, func(msg *amqp.RosterChangedMessage) error {
			return exportWorker.HandleRosterChanged(gctx, msg)
		})
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
