package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"poupazap/internal/cache"
	"poupazap/internal/cli"
	"poupazap/internal/conversation"
	"poupazap/internal/dispatch"
	apphttp "poupazap/internal/http"
	"poupazap/internal/log"
	"poupazap/internal/metrics"
	"poupazap/internal/scheduler"
	"poupazap/internal/services"
	"poupazap/internal/telegram"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	if err := cfg.RequireTelegram(); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	logger.InfoContext(ctx, "Starting poupazap", "backend", cfg.DataBackend, "port", cfg.Port)

	b := cli.InitBackend(ctx, logger, cfg)
	defer cli.CloseBackend(context.Background(), logger, b)

	m := metrics.New()

	api, err := telegram.NewBotAPI(cfg.TelegramBotToken, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize Telegram bot", log.FieldError, err)
		os.Exit(1)
	}
	bot := telegram.New(api, cfg.TelegramPollTimeout, logger)

	machine := conversation.NewMachine(conversation.Deps{
		Ledger:    b.Ledger,
		Cards:     b.Repository,
		Goals:     b.Repository,
		Reports:   b.Repository,
		Schedules: b.Repository,
	})
	// No transcription backend is wired; voice notes get the disabled reply.
	dispatcher := dispatch.New(b.Conversations, machine, bot, nil, m, logger, dispatch.Config{
		IdleTimeout: cfg.UserIdleTimeout,
		PaymentLink: cfg.PaymentLink,
	})

	sched := scheduler.New(
		services.NewScheduledProcessor(b.Repository, b.Ledger, bot, m),
		scheduler.Config{Spec: cfg.ScheduleCron, Location: cfg.Location()},
		logger,
	)
	if err := sched.Start(); err != nil {
		logger.ErrorContext(ctx, "Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	if b.ConversationCache != nil {
		caches.Register(b.ConversationCache)
		caches.StartCleanup(5 * time.Minute)
	}

	srv := apphttp.NewServer(":"+cfg.Port, m, map[string]apphttp.Checker{"storage": b.Repository}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The update stream ending for any reason stops the process.
		defer cancel()
		if err := bot.Run(gctx, dispatcher); err != nil {
			return fmt.Errorf("telegram transport: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.InfoContext(gctx, "Starting health server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(gctx, "Shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WarnContext(shutdownCtx, "Health server shutdown error", log.FieldError, err)
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.WarnContext(shutdownCtx, "Dispatcher did not drain in time", log.FieldError, err)
		}
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			logger.WarnContext(shutdownCtx, "Scheduled run still in progress at shutdown")
		}
		caches.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "poupazap stopped with error", log.FieldError, err)
		cli.CloseBackend(context.Background(), logger, b)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "poupazap stopped gracefully")
}
