package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dfreeman-dev/wheel-ledger/internal/api"
	"github.com/dfreeman-dev/wheel-ledger/internal/config"
	"github.com/dfreeman-dev/wheel-ledger/internal/database"
	"github.com/dfreeman-dev/wheel-ledger/internal/kafka"
	"github.com/dfreeman-dev/wheel-ledger/internal/ledger"
	"github.com/dfreeman-dev/wheel-ledger/internal/legs"
	"github.com/dfreeman-dev/wheel-ledger/internal/marketcache"
	"github.com/dfreeman-dev/wheel-ledger/internal/marketdata"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Raw trade audit archive. The ledger itself is in-memory; the archive
	// only stores the immutable broker stream.
	var db *database.DB
	archive, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Printf("Raw trade archive unavailable, continuing without it: %v", err)
	} else {
		db = archive
		defer db.Close()
		log.Println("Connected to raw trade archive")
	}

	// Warm cache tier. Empty addr keeps the warm tier in process.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	cache := marketcache.New(redisClient)

	ledg := ledger.New()
	reconciler := marketdata.NewReconciler(ledg, marketdata.FilterConfig{
		BasePct:         cfg.MarketData.FilterBasePct,
		IVCoefficient:   cfg.MarketData.FilterIVCoefficient,
		UnknownIVVolPct: cfg.MarketData.FilterUnknownIVVolPct,
		BetaMin:         cfg.MarketData.FilterBetaMin,
		BetaMax:         cfg.MarketData.FilterBetaMax,
	})

	// Leg synchronization needs an upstream bridge; without one the refresh
	// endpoint reports itself unavailable.
	var legSync *legs.Synchronizer
	if cfg.MarketData.BridgeURL != "" {
		bridge := legs.NewBridgeClient(cfg.MarketData.BridgeURL, nil)
		legSync = legs.NewSynchronizer(bridge, cache, cfg.MarketData.LegCacheHotTTL, cfg.MarketData.LegCacheWarmTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MarketDataTopic)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, cfg.Kafka.GroupID, archiveOrNil(db), ledg)
	defer consumer.Close()

	go func() {
		log.Printf("Starting trade consumer on topic %s", cfg.Kafka.TradeTopic)
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Trade consumer stopped: %v", err)
		}
	}()

	handler := api.NewHandler(ledg, reconciler, legSync, db, producer, cfg.MarketData.TargetWinProb, cfg.MarketData.DTEWindow)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// archiveOrNil keeps the consumer's archive interface nil when postgres is
// down, so a typed nil pointer never masquerades as a live archive.
func archiveOrNil(db *database.DB) kafka.RawTradeArchive {
	if db == nil {
		return nil
	}
	return db
}
