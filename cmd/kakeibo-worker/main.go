package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentWorker)
	logger.Info("Starting kakeibo-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
}

// run owns the application for the worker's lifetime and closes it before returning.
func run(cfg *config.Config, logger *log.Logger) error {
	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close application", log.FieldError, err)
		}
	}()

	if app.AMQP == nil && !cfg.SheetsEnabled() {
		return errNothingToDo
	}

	processor, err := newSyncProcessor(context.Background(), cfg, app, logger)
	if err != nil {
		return err
	}
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if processor == nil {
			return
		}
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Sync processor stop failed", log.FieldError, err)
		}
	})

	if processor != nil {
		if err := processor.Start(ctx); err != nil {
			return fmt.Errorf("start sync processor: %w", err)
		}
	}

	if app.AMQP != nil {
		alerts := worker.NewAlertWorker(app.Finance, app.Queue)
		go func() {
			if err := app.AMQP.ConsumeEvents(ctx, alerts.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Skipping event consumption - AMQP not configured")
	}

	<-done
	return nil
}

var errNothingToDo = errors.New("nothing to do: neither AMQP_URL nor GOOGLE_SPREADSHEET_ID is usable")

// newSyncProcessor returns nil when Sheets or the durable queue is unavailable.
func newSyncProcessor(ctx context.Context, cfg *config.Config, app *cli.App, logger *log.Logger) (*services.SyncProcessor, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	if app.Queue == nil {
		logger.Warn("Report sync needs the sqlite backend", "backend", cfg.DataBackend)
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ReportSheetName:    cfg.GoogleReportSheetName,
		TransactionsSheet:  cfg.GoogleTransactionsSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize google sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	pc := services.DefaultSyncProcessorConfig()
	pc.PollInterval = cfg.SyncInterval
	pc.BatchSize = cfg.SyncBatchSize
	pc.MaxRetries = cfg.SyncMaxRetries
	return services.NewSyncProcessor(app.Queue, app.Finance, client, pc), nil
}
