package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/internal/config"
	"github.com/meikuraledutech/workflow/internal/logging"
	"github.com/meikuraledutech/workflow/memory"
	"github.com/meikuraledutech/workflow/postgres"
	"go.uber.org/zap"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default: ./workflow.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(logging.Config{Debug: cfg.Log.Debug, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	var store workflow.Store
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("connect", zap.Error(err))
		}
		defer pool.Close()
		store = postgres.New(pool, postgres.WithEntryID(cfg.EntryNode))
	default:
		store = memory.New(memory.WithEntryID(cfg.EntryNode))
	}

	app := newApp(store, logger, cfg.EntryNode)

	logger.Info("listening", zap.String("addr", cfg.Listen), zap.String("store", cfg.Store))
	if err := app.Listen(cfg.Listen); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}
