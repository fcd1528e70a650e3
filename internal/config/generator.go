package config

import (
	"strings"
	"time"
)

// GeneratorConfig configures the counterfactual generation endpoint
type GeneratorConfig struct {
	BaseURL   string        `env:"GENERATOR_URL" envDefault:"http://localhost:5001"`
	APIKey    string        `env:"GENERATOR_API_KEY"` // Never logged
	Timeout   time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"45s"`
	RPS       float64       `env:"GENERATOR_RPS" envDefault:"2"`
	Burst     int           `env:"GENERATOR_BURST" envDefault:"4"`
	HealthTTL time.Duration `env:"GENERATOR_HEALTH_TTL" envDefault:"30s"`
}

// Endpoint joins a path onto the base URL
func (c GeneratorConfig) Endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// HasAPIKey returns true if requests should carry a bearer token
func (c GeneratorConfig) HasAPIKey() bool {
	return c.APIKey != ""
}
