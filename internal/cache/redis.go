package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelora/skybooking/config"
	"github.com/avelora/skybooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

// AcquireSeatHold takes a short-lived hold while a booking attempt is priced
// and committed. The store-level conditional update remains the source of
// truth; this only narrows the race window between concurrent attempts.
func (c *RedisCache) AcquireSeatHold(ctx context.Context, flightID int64, seatID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, seatHoldKey(flightID, seatID), "held", ttl).Result()
}

func (c *RedisCache) ReleaseSeatHold(ctx context.Context, flightID int64, seatID string) error {
	return c.client.Del(ctx, seatHoldKey(flightID, seatID)).Err()
}

// AcquireFlightLock serializes the purge sweep against booking mutations on
// the same flight. Callers that fail to get the lock skip and retry later.
func (c *RedisCache) AcquireFlightLock(ctx context.Context, flightID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, flightLockKey(flightID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseFlightLock(ctx context.Context, flightID int64) error {
	return c.client.Del(ctx, flightLockKey(flightID)).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func seatHoldKey(flightID int64, seatID string) string {
	return fmt.Sprintf("hold:flight:%d:seat:%s", flightID, seatID)
}

func flightLockKey(flightID int64) string {
	return fmt.Sprintf("lock:flight:%d", flightID)
}
