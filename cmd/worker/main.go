package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/showbooking/config"
	"github.com/Domenick1991/showbooking/internal/bootstrap"
	"github.com/Domenick1991/showbooking/internal/email"
	"github.com/Domenick1991/showbooking/internal/kafka"
	"github.com/Domenick1991/showbooking/internal/logger"
	"github.com/Domenick1991/showbooking/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
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
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatalf("worker needs kafka.brokers")
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		zlog.Fatal("open storage", zap.Error(err))
	}
	defer repos.Close()

	redisCache := bootstrap.OpenCache(cfg)
	if redisCache != nil {
		defer redisCache.Close()
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, zlog)
	defer producer.Close()

	services := bootstrap.NewServices(cfg, repos, redisCache, producer, zlog)

	payments := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.PaymentResultsTopic, zlog)
	defer payments.Close()
	notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zlog)
	defer notifications.Close()

	sender := email.NewSender(nil, zlog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return payments.Consume(gctx, worker.PaymentResults(services.Bookings, zlog))
	})
	g.Go(func() error {
		return notifications.Consume(gctx, worker.Notifications(sender, zlog))
	})

	zlog.Info("worker started",
		zap.String("payment_results_topic", cfg.Kafka.PaymentResultsTopic),
		zap.String("notifications_topic", cfg.Kafka.NotificationsTopic))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Error("consumer stopped", zap.Error(err))
	}
}
