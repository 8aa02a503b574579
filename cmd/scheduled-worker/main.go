package main

import (
	"context"
	"os"

	"poupazap/internal/cli"
	"poupazap/internal/log"
	"poupazap/internal/metrics"
	"poupazap/internal/scheduler"
	"poupazap/internal/services"
	"poupazap/internal/telegram"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentScheduler)

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	logger.InfoContext(ctx, "Starting scheduled-worker",
		"spec", cfg.ScheduleCron,
		"timezone", cfg.ScheduleTimezone,
		"backend", cfg.DataBackend)

	b := cli.InitBackend(ctx, logger, cfg)
	defer cli.CloseBackend(context.Background(), logger, b)

	// Reminders need the chat transport; without a token only payments run.
	var notifier services.Notifier
	if cfg.TelegramBotToken != "" {
		api, err := telegram.NewBotAPI(cfg.TelegramBotToken, logger)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize Telegram bot", log.FieldError, err)
			os.Exit(1)
		}
		notifier = telegram.New(api, cfg.TelegramPollTimeout, logger)
	} else {
		logger.InfoContext(ctx, "Telegram disabled - reminders will not be sent")
	}

	sched := scheduler.New(
		services.NewScheduledProcessor(b.Repository, b.Ledger, notifier, metrics.New()),
		scheduler.Config{Spec: cfg.ScheduleCron, Location: cfg.Location()},
		logger,
	)

	// Catch up on anything that came due while the worker was down.
	if run, err := sched.RunNow(ctx); err == nil {
		logger.InfoContext(ctx, "Initial run complete",
			"checked", run.Checked,
			"paid", run.Paid,
			"reminded", run.Reminded,
			"failed", run.Failed)
	}

	if err := sched.Start(); err != nil {
		logger.ErrorContext(ctx, "Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.InfoContext(context.Background(), "Shutting down scheduled-worker", log.FieldOperation, log.OpShutdown)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
	defer shutdownCancel()

	select {
	case <-sched.Stop().Done():
		logger.InfoContext(shutdownCtx, "scheduled-worker shutdown complete")
	case <-shutdownCtx.Done():
		logger.WarnContext(shutdownCtx, "Shutdown timeout reached")
	}
}
