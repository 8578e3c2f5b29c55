package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "travel_inventory/internal/adapters/http_server"
	"travel_inventory/internal/adapters/observability"
	redisad "travel_inventory/internal/adapters/redis"
	"travel_inventory/internal/app"
	"travel_inventory/internal/shared"
	"travel_inventory/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "travel-inventory-api", cfg.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracer init failed")
	}

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.LedgerDriver).Msg("storage init failed")
	}
	defer closeStore()

	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// cache misses and dropped hints are tolerated; bookings never depend on redis
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; continuing without cache hits")
	}
	cache := redisad.NewCache(rdb)
	pubsub := redisad.NewPubSub(rdb)

	// deps
	catalog := app.NewCatalogService(store, cache, cfg.CacheTTL)
	notifier := app.NewNotifier(pubsub, cfg.NotifyBuffer)
	go notifier.Run(ctx)
	ledger := app.NewNotifyingLedger(store, notifier)
	matcher := app.NewMatcher(ledger)
	auditor := observability.NewAuditor(log.Logger)

	handlers := &server.Handlers{
		Bookings: app.NewBookingService(ledger, store, catalog, matcher, pubsub, auditor),
		Calendar: app.NewCalendarService(ledger, store, catalog, auditor),
		Filter:   app.NewListingFilter(catalog, matcher, cfg.FilterWorker),
		Stream:   pubsub,
	}

	// http
	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.LedgerDriver).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := shutdownTracer(sctx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown failed")
	}
}
