package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/showbooking/config"
	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps advisory read models. Nothing stored here is consulted when
// deciding whether a seat can be reserved.
type RedisCache struct {
	client       *redis.Client
	scheduleTTL  time.Duration
	freeSeatsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, scheduleTTL, freeSeatsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:       redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		scheduleTTL:  scheduleTTL,
		freeSeatsTTL: freeSeatsTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetSchedule(ctx context.Context) ([]domain.MovieSchedule, error) {
	data, err := c.client.Get(ctx, scheduleKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var schedule []domain.MovieSchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (c *RedisCache) SetSchedule(ctx context.Context, schedule []domain.MovieSchedule) error {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(), payload, c.scheduleTTL).Err()
}

func (c *RedisCache) InvalidateSchedule(ctx context.Context) error {
	return c.client.Del(ctx, scheduleKey()).Err()
}

// GetFreeSeats returns the cached free seat ids; ok is false on a miss.
func (c *RedisCache) GetFreeSeats(ctx context.Context, showtimeID int64) ([]int64, bool, error) {
	data, err := c.client.Get(ctx, freeSeatsKey(showtimeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var seats []int64
	if err := json.Unmarshal(data, &seats); err != nil {
		return nil, false, err
	}
	return seats, true, nil
}

func (c *RedisCache) SetFreeSeats(ctx context.Context, showtimeID int64, seats []int64) error {
	payload, err := json.Marshal(seats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, freeSeatsKey(showtimeID), payload, c.freeSeatsTTL).Err()
}

func (c *RedisCache) InvalidateShowtime(ctx context.Context, showtimeID int64) error {
	return c.client.Del(ctx, freeSeatsKey(showtimeID)).Err()
}

func scheduleKey() string {
	return "cache:schedule"
}

func freeSeatsKey(showtimeID int64) string {
	return fmt.Sprintf("cache:showtime:%d:free", showtimeID)
}
