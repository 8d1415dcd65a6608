// Package config loads the application configuration from environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// DefaultBaseCurrency is the currency all converted amounts are expressed in.
const DefaultBaseCurrency = "ILS"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// BotToken is the Discord bot token.
	// Environment variable: DISCORD_BOT_TOKEN
	BotToken string `koanf:"DISCORD_BOT_TOKEN"`

	// DatabaseURL is the PostgreSQL connection string.
	// Environment variable: DATABASE_URL
	DatabaseURL string `koanf:"DATABASE_URL"`

	// ExchangeAPIKey is the exchangerate-api.com v6 API key.
	// Environment variable: EXCHANGE_API_KEY
	ExchangeAPIKey string `koanf:"EXCHANGE_API_KEY"`

	// BaseCurrency is the currency expenses are converted into.
	// Environment variable: BASE_CURRENCY (default "ILS")
	BaseCurrency string `koanf:"BASE_CURRENCY"`

	// AllowedIDsRaw is the comma-separated allow-list of Discord user IDs.
	// Environment variable: ALLOWED_IDS
	AllowedIDsRaw string `koanf:"ALLOWED_IDS"`

	// LogLevel is the minimum log level (DEBUG, INFO, WARN, ERROR).
	// Environment variable: LOG_LEVEL
	LogLevel string `koanf:"LOG_LEVEL"`

	// LogJSON enables JSON log output.
	// Environment variable: LOG_JSON
	LogJSON bool `koanf:"LOG_JSON"`
}

// Load reads configuration from the environment and validates required fields.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.BotToken == "" {
		return Config{}, fmt.Errorf("DISCORD_BOT_TOKEN environment variable is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.ExchangeAPIKey == "" {
		return Config{}, fmt.Errorf("EXCHANGE_API_KEY environment variable is required")
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = DefaultBaseCurrency
	}
	cfg.BaseCurrency = strings.ToUpper(cfg.BaseCurrency)

	return cfg, nil
}

// AllowedIDs parses the comma-separated allow-list into a set.
// An empty ALLOWED_IDS yields an empty set, which rejects everyone.
func (c Config) AllowedIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, id := range strings.Split(c.AllowedIDsRaw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}
