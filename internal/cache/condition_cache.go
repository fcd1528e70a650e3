package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConditionCache holds the last known study condition per participant.
// It is a read accelerator only and never authoritative.
type ConditionCache interface {
	Get(ctx context.Context, userID string) (string, bool, error)
	Set(ctx context.Context, userID, condition string) error
	Delete(ctx context.Context, userID string) error
}

type conditionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConditionCache creates a new condition cache
func NewConditionCache(client *redis.Client, ttl time.Duration) ConditionCache {
	return &conditionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *conditionCache) key(userID string) string {
	return fmt.Sprintf("participant:%s:condition", userID)
}

func (c *conditionCache) Get(ctx context.Context, userID string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *conditionCache) Set(ctx context.Context, userID, condition string) error {
	return c.client.Set(ctx, c.key(userID), condition, c.ttl).Err()
}

func (c *conditionCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}
