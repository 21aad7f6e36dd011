package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/showbooking/config"
	"github.com/Domenick1991/showbooking/internal/cache"
	"github.com/Domenick1991/showbooking/internal/kafka"
	"github.com/Domenick1991/showbooking/internal/repository"
	"github.com/Domenick1991/showbooking/internal/repository/memory"
	"github.com/Domenick1991/showbooking/internal/service/availability"
	"github.com/Domenick1991/showbooking/internal/service/booking"
	"github.com/Domenick1991/showbooking/internal/service/catalog"
	"github.com/Domenick1991/showbooking/internal/service/showtime"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Repositories struct {
	Catalog   repository.CatalogRepository
	Showtimes repository.ShowtimeRepository
	Bookings  repository.BookingRepository

	pool *pgxpool.Pool
}

// Ping is nil for the in-memory driver.
func (r *Repositories) Ping() Check {
	if r.pool == nil {
		return nil
	}
	return r.pool.Ping
}

func (r *Repositories) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// OpenStorage connects the configured storage driver.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		store := memory.NewStore()
		return &Repositories{Catalog: store.Catalog(), Showtimes: store.Showtimes(), Bookings: store.Bookings()}, nil
	}

	pool, err := OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Catalog:   repository.NewCatalogRepository(pool),
		Showtimes: repository.NewShowtimeRepository(pool),
		Bookings:  repository.NewBookingRepository(pool),
		pool:      pool,
	}, nil
}

func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// OpenCache returns nil when no Redis address is configured.
func OpenCache(cfg *config.Config) *cache.RedisCache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return cache.NewRedisCache(
		cfg.Redis,
		time.Duration(cfg.Cache.ScheduleTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.FreeSeatsTTLSeconds)*time.Second,
	)
}

type Services struct {
	Catalog      *catalog.CatalogService
	Showtimes    *showtime.ShowtimeService
	Availability *availability.AvailabilityService
	Bookings     *booking.BookingService
}

// NewServices wires the use cases. redis and producer are optional.
func NewServices(cfg *config.Config, repos *Repositories, redis *cache.RedisCache, producer *kafka.Producer, log *zap.Logger) *Services {
	var (
		seatCache     availability.Cache
		scheduleCache showtime.ScheduleCache
	)
	if redis != nil {
		seatCache, scheduleCache = redis, redis
	}

	availabilityService := availability.NewAvailabilityService(repos.Showtimes, repos.Catalog, repos.Bookings, seatCache, log)
	showtimeService := showtime.NewShowtimeService(repos.Showtimes, repos.Catalog, availabilityService, scheduleCache, log)

	opts := []booking.BookingServiceOption{
		booking.WithAvailability(availabilityService),
		booking.WithLogger(log),
	}
	if producer != nil {
		opts = append(opts,
			booking.WithProducer(producer.Retrying(cfg.Kafka.PublishAttempts), cfg.Kafka.BookingEventsTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}

	return &Services{
		Catalog:      catalog.NewCatalogService(repos.Catalog, log),
		Showtimes:    showtimeService,
		Availability: availabilityService,
		Bookings:     booking.NewBookingService(repos.Bookings, repos.Showtimes, repos.Catalog, showtimeService, opts...),
	}
}
