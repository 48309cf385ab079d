// Command syncrun executes one reconciliation run and exits. Meant for
// operators and external schedulers; the server has its own cron schedule.
package main

import (
	"context"
	"os"
	"time"

	"restock/internal/config"
	"restock/internal/infra"
	"restock/internal/repository"
	"restock/internal/service"
	"restock/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	syncSvc := service.NewSyncService(
		infra.NewGatewayClient(cfg.GatewayURL, cfg.GatewayAPIKey),
		infra.NewCircuitBreaker(infra.DefaultCBConfig()),
		repository.NewInventoryRepository(db),
		repository.NewVendorRepository(db),
		repository.NewSyncLogRepository(db),
		worker.NewDispatcher(rdb),
		cfg,
	)

	result, err := syncSvc.Run(context.Background(), "manual")
	if err != nil {
		log.Fatal().Err(err).Msg("sync run failed to start")
	}

	log.Info().
		Str("sync_log_id", result.SyncLogID).
		Str("status", result.Status).
		Int("items_synced", result.ItemsSynced).
		Int64("duration_ms", result.DurationMs).
		Int("errors", len(result.Errors)).
		Msg("sync run finished")

	if result.Status != "completed" {
		os.Exit(1)
	}
}
