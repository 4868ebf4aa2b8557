package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP listen address, e.g. ":8080"
	Address string `env:"ADDRESS" envDefault:":8080"`

	Log struct {
		Level  string `env:"LEVEL" envDefault:"info"`
		Pretty bool   `env:"PRETTY" envDefault:"true"`
	} `envPrefix:"LOG_"`

	Gateway struct {
		// Base URL of the search gateway; empty means every marketplace falls back to demo products.
		URL     string        `env:"URL"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	} `envPrefix:"GATEWAY_"`

	// External marketplace registry; empty means the local registry is used.
	MarketplacesURL string `env:"MARKETPLACES_URL"`

	Search struct {
		PerMarketplace int `env:"PER_MARKETPLACE" envDefault:"10"`
		DisplayBudget  int `env:"DISPLAY_BUDGET" envDefault:"6"`
	} `envPrefix:"SEARCH_"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	Image struct {
		TTL      time.Duration `env:"TTL" envDefault:"1h"`
		MaxBytes int64         `env:"MAX_BYTES" envDefault:"10485760"`
	} `envPrefix:"IMAGE_"`

	Redis struct {
		Addr     string `env:"ADDR"`
		Password string `env:"PASSWORD"`
		DB       int    `env:"DB" envDefault:"0"`
	} `envPrefix:"REDIS_"`

	Kafka struct {
		Brokers []string `env:"BROKERS" envSeparator:","`
		Topic   string   `env:"TOPIC" envDefault:"stylegenie.events"`
	} `envPrefix:"KAFKA_"`

	OpenAI struct {
		APIKey  string `env:"API_KEY"`
		BaseURL string `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
		Model   string `env:"MODEL" envDefault:"gpt-4o-mini"`
	} `envPrefix:"OPENAI_"`
}

// Load loads .env (if present) and parses environment variables into Config.
func Load() (Config, error) {
	// Load .env if available; ignore error if file does not exist
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
