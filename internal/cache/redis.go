package cache

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Connect creates a Redis client from a redis:// URL or a bare host:port
func Connect(addr string) (*redis.Client, error) {
	if !strings.Contains(addr, "://") {
		return redis.NewClient(&redis.Options{Addr: addr}), nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
