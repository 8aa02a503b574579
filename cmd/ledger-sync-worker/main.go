package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"poupazap/internal/amqp"
	"poupazap/internal/cli"
	apphttp "poupazap/internal/http"
	"poupazap/internal/log"
	"poupazap/internal/metrics"
	"poupazap/internal/services"
	gsheet "poupazap/internal/sheets/google"
	"poupazap/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	if err := cfg.RequireSheets(); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	logger.InfoContext(ctx, "Starting ledger-sync-worker",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"queue", cfg.AMQPQueue)

	// The worker only reads and marks rows; it never publishes.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	storeCfg.ConversationCacheSize = 0
	b := cli.InitBackend(ctx, logger, &storeCfg)
	defer cli.CloseBackend(context.Background(), logger, b)

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(b.Repository, sheetsClient, m, logger)

	// The sweep covers lost messages and earlier export failures.
	sweeper := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})
	if err := sweeper.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, m, map[string]apphttp.Checker{"storage": b.Repository}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeTransactions(gctx, syncWorker.HandleMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume transactions: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(gctx, "Shutting down worker...", log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WarnContext(shutdownCtx, "Health server shutdown error", log.FieldError, err)
		}
		if err := sweeper.Stop(shutdownCtx); err != nil {
			logger.WarnContext(shutdownCtx, "Sync processor stop error", log.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "ledger-sync-worker stopped with error", log.FieldError, err)
		cli.CloseBackend(context.Background(), logger, b)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete")
}
