package main

import (
	"context"
	"errors"
	"os"
	"time"

	"propman/internal/cli"
	"propman/internal/log"
	"propman/internal/services"
	gsheet "propman/internal/sheets/google"
	"propman/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting invoice-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend is private to this process; the worker will not see server writes")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	amqpClient := cli.NewAMQPClient(logger, cfg)
	invoices := services.NewInvoiceService(st, cli.Publisher(amqpClient))
	defer invoices.Close()

	sweeper := services.NewOverdueSweeper(invoices, services.OverdueSweeperConfig{
		Spec:       cfg.OverdueSweepSpec,
		RunOnStart: true,
	})
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start overdue sweeper", log.FieldError, err)
		os.Exit(1)
	}

	// Sheets export needs both a spreadsheet and a broker to hear invoice writes from.
	var sheetsClient *gsheet.Client
	if cfg.SheetsEnabled() {
		var err error
		sheetsClient, err = gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	if sheetsClient != nil && amqpClient != nil {
		exporter := worker.NewExportWorker(st, sheetsClient)
		go func() {
			err := amqpClient.ConsumeInvoiceEvents(ctx, exporter.HandleInvoiceEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Invoice event consumption failed", log.FieldError, err)
			}
			cancel()
		}()
	} else {
		logger.Info("Skipping invoice export - needs both AMQP_URL and GOOGLE_SPREADSHEET_ID")
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := sweeper.Stop(ctx); err != nil {
			logger.Warn("Overdue sweeper did not stop cleanly", log.FieldError, err)
		}
	})

	select {
	case <-shutdownCtx.Done():
		<-done
	case <-ctx.Done():
		logger.Info("Context cancelled")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		_ = sweeper.Stop(stopCtx)
	}
	cancel()
	logger.Info("Worker shutdown complete")
}
