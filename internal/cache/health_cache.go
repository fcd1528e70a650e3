package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthStatus is the last observed state of the generation endpoint
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
}

// HealthCache shares generator health checks between server instances
type HealthCache interface {
	Get(ctx context.Context) (*HealthStatus, error)
	Set(ctx context.Context, status *HealthStatus) error
}

type healthCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHealthCache creates a new health cache
func NewHealthCache(client *redis.Client, ttl time.Duration) HealthCache {
	return &healthCache{
		client: client,
		ttl:    ttl,
	}
}

const healthKey = "generator:health"

func (c *healthCache) Get(ctx context.Context) (*HealthStatus, error) {
	data, err := c.client.Get(ctx, healthKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var status HealthStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *healthCache) Set(ctx context.Context, status *HealthStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, healthKey, data, c.ttl).Err()
}
