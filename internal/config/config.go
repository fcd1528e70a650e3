package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" envDefault:"cfstudy"`
	RedisURL string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	StudyCode string        `env:"STUDY_CODE" envDefault:"pilot"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	ConditionCacheTTL   time.Duration `env:"CONDITION_CACHE_TTL" envDefault:"12h"`
	RatingWriteRetries  int           `env:"RATING_WRITE_RETRIES" envDefault:"3"`
	RepairSweepSchedule string        `env:"REPAIR_SWEEP_SCHEDULE"` // Empty disables the sweep

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	Generator GeneratorConfig
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}
	return Parse()
}

// Parse reads configuration from the environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.RatingWriteRetries < 0 {
		return nil, fmt.Errorf("RATING_WRITE_RETRIES must be >= 0, got %d", cfg.RatingWriteRetries)
	}
	if cfg.Generator.RPS <= 0 {
		return nil, fmt.Errorf("GENERATOR_RPS must be > 0, got %v", cfg.Generator.RPS)
	}
	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
