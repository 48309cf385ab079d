package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restock/internal/config"
	"restock/internal/infra"
	"restock/internal/repository"
	"restock/internal/router"
	"restock/internal/service"
	"restock/internal/worker"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Pretty console logs in development; zerolog's default JSON elsewhere.
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Infrastructure ───────────────────────────────────────────────────────
	gateway := infra.NewGatewayClient(cfg.GatewayURL, cfg.GatewayAPIKey)
	breaker := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg)
	courier := infra.NewPOCourier(mailer, cfg.PDFStoragePath)
	dispatcher := worker.NewDispatcher(rdb)

	// Alert delivery pool — retries with backoff, dead-letters on exhaustion
	handlers := &worker.Handlers{
		Alert: worker.NewAlertWorker(mailer, worker.RedisDeadLetter(rdb)),
	}
	worker.StartWorkerPool(ctx, rdb, handlers, cfg.WorkerPoolSize)

	// ── Sync coordinator ─────────────────────────────────────────────────────
	syncSvc := service.NewSyncService(
		gateway,
		breaker,
		repository.NewInventoryRepository(db),
		repository.NewVendorRepository(db),
		repository.NewSyncLogRepository(db),
		dispatcher,
		cfg,
	)

	// Scheduled reconciliation, disabled when SYNC_CRON is empty
	var scheduler *cron.Cron
	if cfg.SyncCron != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.SyncCron, func() {
			if _, err := syncSvc.Run(ctx, "scheduled"); err != nil {
				log.Error().Err(err).Msg("scheduled sync failed to start")
			}
		}); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.SyncCron).Msg("invalid SYNC_CRON expression")
		}
		scheduler.Start()
		log.Info().Str("spec", cfg.SyncCron).Msg("scheduled sync enabled")
	}

	r := router.New(cfg, db, rdb, breaker, courier, syncSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("restock backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
