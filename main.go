package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"docsight/internal/api"
	"docsight/internal/config"
	"docsight/internal/history"
	"docsight/internal/logger"
	"docsight/internal/redis"
	"docsight/internal/service/analyzer"
	"docsight/internal/session"
	"docsight/internal/storage"
)

func main() {
	cfgPath := os.Getenv("DOCSIGHT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog := logger.New(cfg.BasicConfig.LogPath)
	defer zlog.Sync()

	ctx := context.Background()

	var store history.Store
	switch cfg.History.Store {
	case "redis":
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		store = history.NewRedisStore(rdb, cfg.History.Record)
	default:
		db, err := storage.Open(cfg.History.Store, cfg)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		if err := storage.Migrate(db, cfg.History.Store); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		store = history.NewSQLStore(db, cfg.History.Record)
	}

	ledger := history.NewLedger(ctx, store, zlog)

	svc, err := analyzer.NewService(ctx, cfg, zlog)
	if err != nil {
		log.Fatalf("init analyzer service: %v", err)
	}

	sess := session.New(svc, svc, ledger, zlog)
	handlers := api.NewHandler(sess, ledger, cfg.BasicConfig.APIToken, zlog)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	zlog.Infow("server starting", "addr", addr, "history_store", cfg.History.Store)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
