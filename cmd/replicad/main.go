package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tablewire/posd/api/controllers"
	"github.com/tablewire/posd/api/routes"
	"github.com/tablewire/posd/internal/reducer"
	"github.com/tablewire/posd/internal/replica"
	replsync "github.com/tablewire/posd/internal/sync"
	"github.com/tablewire/posd/internal/transport/natsfeed"
	"github.com/tablewire/posd/pkg/config"
	"github.com/tablewire/posd/pkg/logger"
	"github.com/tablewire/posd/pkg/metrics"
	"github.com/tablewire/posd/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "replicad"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "replicad",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	mets := metrics.NewReplicaMetrics(prometheus.DefaultRegisterer)
	store := replica.NewStore(reducer.New(logg), logg, mets)
	var pingers []controllers.Pinger

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var warm *replica.WarmCache
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, cfg.Cache.KeyNamespace, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		pingers = append(pingers, redisClient)

		warm, err = replica.NewWarmCache(store, redisClient, cfg.App.ClientID, cfg.Cache.SnapshotTTL, logg)
		if err != nil {
			logg.Error(ctx, "failed to build warm cache", err)
			os.Exit(1)
		}
		if restored, err := warm.Load(ctx); err != nil {
			logg.Error(ctx, "warm cache load failed", err)
		} else if restored {
			logg.Info(ctx, "replica restored from warm cache")
		}
	}

	feed, err := natsfeed.Dial(cfg.NATS, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to nats", err)
		os.Exit(1)
	}
	defer feed.Close()
	pingers = append(pingers, feed)

	syncer := replsync.New(feed, store, cfg.Sync, logg, mets)
	service, err := NewService(ServiceParams{
		Logger: logg,
		Store:  store,
		Syncer: syncer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create replica service", err)
		os.Exit(1)
	}

	if err := feed.Start(natsfeed.Handlers{
		OnEvent:         service.EnqueueEvent,
		OnResyncRequest: service.RequestResync,
		OnDisconnect:    service.NotifyDisconnect,
		OnReconnect:     service.NotifyReconnect,
	}); err != nil {
		logg.Error(ctx, "failed to subscribe to event feed", err)
		os.Exit(1)
	}

	if warm != nil {
		go warm.RunSaver(ctx, cfg.Cache.SaveInterval)
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, store, pingers...),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "http server stopped unexpectedly", err)
			stop()
		}
	}()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"client_id": cfg.App.ClientID,
	})
	logg.Info(ctx, "starting order replica")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "replica stopped unexpectedly", err)
	}

	shutdownCtx := context.Background()
	if warm != nil {
		if err := warm.Save(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "final warm cache save failed", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "http shutdown failed", err)
	}

	logg.Info(shutdownCtx, "replica shut down gracefully")
}
