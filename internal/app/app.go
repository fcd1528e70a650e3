package app

import (
	"cfstudy/internal/cache"
	"cfstudy/internal/config"
	"cfstudy/internal/repository"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App holds the store connections shared by the server and the admin CLI
type App struct {
	Config *config.Config

	Mongo *mongo.Client
	DB    *mongo.Database
	Redis *redis.Client

	Counterfactuals repository.CounterfactualRepo
	Participants    repository.ParticipantRepo
	ConditionCache  cache.ConditionCache
	HealthCache     cache.HealthCache
}

// New connects to MongoDB, ensures indexes and builds the repositories
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	slog.Info("connected to MongoDB", "db", cfg.MongoDB)

	db := client.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return &App{
		Config:          cfg,
		Mongo:           client,
		DB:              db,
		Counterfactuals: repository.NewCounterfactualRepo(db),
		Participants:    repository.NewParticipantRepo(db),
	}, nil
}

// ConnectRedis connects the caches. The admin CLI runs without them.
func (a *App) ConnectRedis(ctx context.Context) error {
	rdb, err := cache.Connect(a.Config.RedisURL)
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("connected to Redis")

	a.Redis = rdb
	a.ConditionCache = cache.NewConditionCache(rdb, a.Config.ConditionCacheTTL)
	a.HealthCache = cache.NewHealthCache(rdb, a.Config.Generator.HealthTTL)
	return nil
}

// Close releases every connection
func (a *App) Close(ctx context.Context) {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("close redis", "err", err)
		}
	}
	if err := a.Mongo.Disconnect(ctx); err != nil {
		slog.Warn("disconnect mongo", "err", err)
	}
}
