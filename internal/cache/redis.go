// Package cache holds the Redis-backed read-through caches used by the
// pricing and booking lookup paths.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// NewRedisClient creates a Redis client and verifies connectivity
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return client, nil
}

// HealthCheck pings the Redis client and returns nil if healthy
func HealthCheck(ctx context.Context, client redis.UniversalClient) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}

// PriceCache caches route prices in minor units
type PriceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewPriceCache creates a PriceCache
func NewPriceCache(client redis.UniversalClient, ttl time.Duration) *PriceCache {
	return &PriceCache{client: client, ttl: ttl}
}

// Get returns the cached price. ok is false on a miss.
func (c *PriceCache) Get(ctx context.Context, routeID uuid.UUID) (int64, bool, error) {
	val, err := c.client.Get(ctx, priceKey(routeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	price, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached price for %s: %w", routeID, err)
	}
	return price, true, nil
}

func (c *PriceCache) Set(ctx context.Context, routeID uuid.UUID, priceCents int64) error {
	return c.client.Set(ctx, priceKey(routeID), strconv.FormatInt(priceCents, 10), c.ttl).Err()
}

func (c *PriceCache) Invalidate(ctx context.Context, routeID uuid.UUID) error {
	return c.client.Del(ctx, priceKey(routeID)).Err()
}

// LookupCache caches the booking found for a (user, reference) pair.
// Only found lookups are stored, so a pending order is re-read on every poll.
type LookupCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewLookupCache creates a LookupCache
func NewLookupCache(client redis.UniversalClient, ttl time.Duration) *LookupCache {
	return &LookupCache{client: client, ttl: ttl}
}

func (c *LookupCache) Get(ctx context.Context, userID uuid.UUID, reference string) (*models.BookingLookupResponse, error) {
	data, err := c.client.Get(ctx, lookupKey(userID, reference)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var resp models.BookingLookupResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *LookupCache) Set(ctx context.Context, userID uuid.UUID, reference string, resp *models.BookingLookupResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, lookupKey(userID, reference), payload, c.ttl).Err()
}

func (c *LookupCache) Invalidate(ctx context.Context, userID uuid.UUID, reference string) error {
	return c.client.Del(ctx, lookupKey(userID, reference)).Err()
}

func priceKey(routeID uuid.UUID) string {
	return "cache:route:price:" + routeID.String()
}

func lookupKey(userID uuid.UUID, reference string) string {
	return fmt.Sprintf("booking:ref:%s:user:%s", reference, userID)
}
