package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/showbooking/config"
	"github.com/Domenick1991/showbooking/internal/bootstrap"
	"github.com/Domenick1991/showbooking/internal/logger"
	"github.com/Domenick1991/showbooking/migrations"
	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "drop the schema instead of creating it")
	flag.Parse()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		log.Fatalf("migrations need the %s storage driver", config.StorageDriverPostgres)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.OpenPool(ctx, cfg.Database)
	if err != nil {
		zlog.Fatal("open postgres", zap.Error(err))
	}
	defer pool.Close()

	apply, direction := migrations.Up, "up"
	if *down {
		apply, direction = migrations.Down, "down"
	}
	if err := apply(ctx, pool); err != nil {
		zlog.Fatal("migrate", zap.String("direction", direction), zap.Error(err))
	}
	zlog.Info("migrations applied", zap.String("direction", direction))
}
