package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"iglivez/worker/features/broadcast"
	"iglivez/worker/features/job"
	"iglivez/worker/features/notify"
	"iglivez/worker/features/payment"
	"iglivez/worker/features/stream"
	"iglivez/worker/features/user"
	"iglivez/worker/internal/adapter/telegram"
	"iglivez/worker/internal/config"
	"iglivez/worker/internal/middleware"
	"iglivez/worker/internal/ratelimit"
	"iglivez/worker/internal/settings"
	"iglivez/worker/internal/worker"
)

type App struct {
	Handler      http.Handler
	Worker       *worker.Worker
	LiveConsumer *worker.LiveConsumer

	cfg *config.Config
}

func New(cfg *config.Config, db *sql.DB, tg *telegram.Client, logger *slog.Logger) (*App, error) {
	limiter := ratelimit.New(rateLimits(cfg))

	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)

	// Feature: Job
	jobRepo := job.NewPostgresRepo(db, cfg.RetryCeiling)
	jobService := job.NewService(jobRepo, logger)
	jobHandler := job.NewHandler(jobService)

	// Feature: User
	userRepo := user.NewPostgresRepo(db)
	userService := user.NewService(userRepo, tg, user.Config{
		DailyPoints:   cfg.DefaultDailyPoints,
		ReferralBonus: cfg.ReferralBonusPoints,
		BotUsername:   cfg.BotUsername,
	}, logger)

	// Feature: Stream
	streamRepo := stream.NewPostgresRepo(db)
	streamService := stream.NewService(streamRepo, userRepo, tg, limiter, stream.Config{
		PerPage:     cfg.LiveStreamsPerPage,
		DailyPoints: cfg.DefaultDailyPoints,
	}, logger)

	// Feature: Payment
	paymentRepo := payment.NewPostgresRepo(db)
	paymentService := payment.NewService(paymentRepo, userRepo, tg, logger)

	// Feature: Broadcast
	broadcastRepo := broadcast.NewPostgresRepo(db)
	broadcastService := broadcast.NewService(broadcastRepo, jobRepo, streamRepo, settingsService, tg, broadcast.Config{
		Threshold: cfg.AutoBroadcastThreshold,
		Cooldown:  cfg.AutoBroadcastCooldown(),
	}, logger)

	// Feature: Notify
	notifyRepo := notify.NewPostgresRepo(db)
	notifyService := notify.NewService(notifyRepo, userRepo, tg, logger)

	// Dispatcher & Worker
	dispatcher := worker.NewDispatcher(
		userService, streamService, paymentService, broadcastService, notifyService,
		tg, limiter, cfg.IsAdmin, logger)

	wkr := worker.New(jobRepo, dispatcher, broadcastService, worker.Config{
		PollInterval:     cfg.PollingInterval(),
		SlowThreshold:    cfg.SlowJobThreshold(),
		StuckAge:         cfg.StuckJobResetAge(),
		PeriodicInterval: cfg.AutoBroadcastCheckInterval(),
		RunOnce:          cfg.RunOnce,
	}, logger)

	liveConsumer := worker.NewLiveConsumer(streamRepo, jobRepo, logger)

	// Ops routes
	mux := http.NewServeMux()

	mux.Handle("GET /jobs/failed", middleware.CorrelationID(http.HandlerFunc(jobHandler.ListFailed)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(http.HandlerFunc(jobHandler.Retry)))
	mux.Handle("GET /jobs/stats", middleware.CorrelationID(http.HandlerFunc(jobHandler.Stats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:      mux,
		Worker:       wkr,
		LiveConsumer: liveConsumer,
		cfg:          cfg,
	}, nil
}

// Run serves the ops API and runs the job loop until the context is
// cancelled or, in run-once mode, one job has been processed.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	srvErr := make(chan error, 1)
	go func() {
		slog.Info("ops server starting", "port", a.cfg.ServerPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			srvErr <- err
		}
	}()

	workerErr := a.Worker.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("ops server shutdown failed", "error", err)
	}

	select {
	case err := <-srvErr:
		return err
	default:
	}
	return workerErr
}

func rateLimits(cfg *config.Config) map[string]ratelimit.Limit {
	sec := func(s int) time.Duration { return time.Duration(s) * time.Second }
	return map[string]ratelimit.Limit{
		"check_live":       {MaxRequests: cfg.RateCheckLiveMax, Window: sec(cfg.RateCheckLiveWindowSec)},
		"live_check_logic": {MaxRequests: cfg.RateLiveCheckLogicMax, Window: sec(cfg.RateLiveCheckLogicWinSec)},
		"button_click":     {MaxRequests: cfg.RateButtonClickMax, Window: sec(cfg.RateButtonClickWindowSec)},
		"payment":          {MaxRequests: cfg.RatePaymentMax, Window: sec(cfg.RatePaymentWindowSec)},
		"message":          {MaxRequests: cfg.RateMessageMax, Window: sec(cfg.RateMessageWindowSec)},
	}
}
