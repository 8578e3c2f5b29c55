package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"travel_inventory/internal/adapters/content"
	"travel_inventory/internal/adapters/observability"
	redisad "travel_inventory/internal/adapters/redis"
	"travel_inventory/internal/app"
	"travel_inventory/internal/shared"
	"travel_inventory/internal/storage"
)

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids := cfg.ListingIDs
	if len(ids) == 0 {
		log.Fatal().Msg("SYNC_LISTING_IDS is empty; nothing to sync")
	}
	if cfg.ContentKey == "" {
		log.Warn().Msg("CONTENT_API_KEY is empty")
	}
	log.Info().
		Str("base", cfg.ContentBase).
		Int("workers", cfg.SyncWorkers).
		Int("listings", len(ids)).
		Msg("catalog sync starting")

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	defer closeStore()

	client, err := content.New(cfg.ContentBase, cfg.ContentKey, cfg.ContentRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize content client")
	}
	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rdb.Close()
	catalog := app.NewCatalogService(store, redisad.NewCache(rdb), cfg.CacheTTL)
	syncer := app.NewSyncService(client, store, catalog)

	sem := semaphore.NewWeighted(int64(max(cfg.SyncWorkers, 1)))
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("sync interrupted")
			break
		}
		wg.Add(1)
		go func(listingID int64) {
			defer wg.Done()
			defer sem.Release(1)

			if err := syncer.SyncListing(ctx, listingID); err != nil {
				failed.Add(1)
				log.Warn().Int64("listing_id", listingID).Err(err).Msg("sync failed")
				return
			}
			log.Info().Int64("listing_id", listingID).Msg("sync ok")
		}(id)
	}

	wg.Wait()
	log.Info().Int64("failed", failed.Load()).Int("total", len(ids)).Msg("catalog sync completed")
	if failed.Load() > 0 {
		stop()
		closeStore()
		os.Exit(1)
	}
}
