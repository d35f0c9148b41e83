package main

import (
	"context"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mirrorpit/mirrorpit-backend/internal/archive"
	"github.com/mirrorpit/mirrorpit-backend/internal/config"
	"github.com/mirrorpit/mirrorpit-backend/internal/httpapi"
	"github.com/mirrorpit/mirrorpit-backend/internal/hub"
	"github.com/mirrorpit/mirrorpit-backend/internal/ledger"
	"github.com/mirrorpit/mirrorpit-backend/internal/lobby"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	var led ledger.Ledger
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		led, err = ledger.NewRedis(&ledger.Config{RedisClient: client})
		if err != nil {
			logger.Fatal("ledger init failed", zap.Error(err))
		}
	} else {
		logger.Warn("no REDIS_ADDR set, running with an open ledger (freeplay)")
		led = ledger.NewOpen()
	}

	var rec lobby.Recorder
	if cfg.PostgresDSN != "" {
		store, err := archive.Open(cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("archive init failed", zap.Error(err))
		}
		rec = store
	} else {
		logger.Warn("no DATABASE_URL set, finished games will not be archived")
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, rec, logger)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, led, cfg.Rules, logger)

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
