package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"iglivez/worker/internal/adapter/telegram"
	"iglivez/worker/internal/app"
	"iglivez/worker/internal/config"
	"iglivez/worker/internal/logger"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()

	tg := telegram.NewClient(cfg.BotToken)

	application, err := app.New(cfg, deps.DB, tg, log)
	if err != nil {
		return err
	}

	// The checker may be down; jobs still flow, only live ingestion pauses.
	consumer, err := app.StartLiveConsumer(cfg, application.LiveConsumer)
	if err != nil {
		slog.Warn("live.status consumer not started", "error", err)
	} else {
		defer consumer.Stop()
		slog.Info("live.status consumer connected")
	}

	return application.Run(ctx)
}
