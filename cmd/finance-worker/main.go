package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finance/internal/cli"
	"finance/internal/config"
	"finance/internal/log"
	"finance/internal/sheets"
	gsheet "finance/internal/sheets/google"
	mem "finance/internal/sheets/memory"
	"finance/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting finance-worker")

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	if cfg.DataBackend == "memory" {
		logger.Warn("Worker is exporting a private memory store, not the server's data")
	}

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(be.Store, be.Store, exporter,
		worker.ExportWorkerConfig{Interval: cfg.ExportInterval}, logger)

	amqpClient := cli.InitAMQP(logger, cfg)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := exportWorker.Stop(ctx); err != nil {
			logger.Error("Export worker stop error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend close error", log.FieldError, err)
			}
		}
	})

	// Periodic full exports cover events lost while the worker was down.
	if err := exportWorker.Start(runCtx); err != nil {
		logger.Error("Failed to start export worker", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.Consume(runCtx, exportWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP consumption, relying on periodic export only")
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker shutdown complete")
}

func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Exporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		BudgetsSheet:    cfg.GoogleBudgetsSheetName,
		PotsSheet:       cfg.GooglePotsSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
