// cache.go implements the Redis-backed snapshot cache. Snapshots are stored
// as JSON under one key per subject with a TTL; a miss (or any Redis failure)
// simply re-runs normalization from the upstream profile, so the cache never
// affects correctness.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hcm-portal/hcm-portal/internal/config"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache stores bootstrapped session snapshots keyed by subject.
// Get returns (nil, nil) on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, subject string) (*Snapshot, error)
	Set(ctx context.Context, subject string, snap *Snapshot) error
	Delete(ctx context.Context, subject string) error
}

// RedisCache is the Redis implementation of SnapshotCache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a snapshot cache from configuration and verifies
// connectivity with a ping.
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	ttl := cfg.SnapshotTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func snapshotKey(subject string) string {
	return "session:snapshot:" + subject
}

// Get fetches the cached snapshot for a subject, or (nil, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, subject string) (*Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(subject)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot cache get: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, nil
	}
	return &snap, nil
}

// Set replaces the cached snapshot wholesale.
func (c *RedisCache) Set(ctx context.Context, subject string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot cache set: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(subject), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot cache set: %w", err)
	}
	return nil
}

// Delete evicts the cached snapshot. Used by the refresh path and by the
// employee-status webhook so the next bootstrap pass re-runs the redirect
// checks against fresh upstream state.
func (c *RedisCache) Delete(ctx context.Context, subject string) error {
	if err := c.client.Del(ctx, snapshotKey(subject)).Err(); err != nil {
		return fmt.Errorf("snapshot cache delete: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection is still alive.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
