package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/showbooking/api"
	"github.com/Domenick1991/showbooking/config"
	"github.com/Domenick1991/showbooking/internal/bootstrap"
	"github.com/Domenick1991/showbooking/internal/kafka"
	"github.com/Domenick1991/showbooking/internal/logger"
	"github.com/Domenick1991/showbooking/internal/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		zlog.Fatal("init telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zlog.Warn("shutdown telemetry", zap.Error(err))
		}
	}()

	repos, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		zlog.Fatal("open storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}
	defer repos.Close()

	checks := map[string]bootstrap.Check{}
	if ping := repos.Ping(); ping != nil {
		checks["postgres"] = ping
	}

	redisCache := bootstrap.OpenCache(cfg)
	if redisCache != nil {
		defer redisCache.Close()
		checks["redis"] = redisCache.Ping
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, zlog)
		defer producer.Close()
		checks["kafka"] = producer.CheckConnection
	}

	services := bootstrap.NewServices(cfg, repos, redisCache, producer, zlog)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Services{
		Catalog:      services.Catalog,
		Showtimes:    services.Showtimes,
		Availability: services.Availability,
		Bookings:     services.Bookings,
		Limiter:      api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}, zlog)

	zlog.Info("starting showbooking", zap.String("storage", cfg.Storage.Driver))
	if err := bootstrap.Run(ctx, cfg, router, checks, zlog); err != nil {
		zlog.Error("server error", zap.Error(err))
	}
}
