// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all settings for both processes, parsed from environment
// variables. A .env file is loaded beforehand via godotenv's autoload
// import in each main.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis (presence registry)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Gateway listen address / backend dial target
	GatewayAddr string `env:"GATEWAY_ADDR" envDefault:":9190"`
	GatewayURL  string `env:"GATEWAY_URL" envDefault:"ws://localhost:9190/channel"`

	// Shared secret for backend handshake tokens
	ChannelSecret string `env:"CHANNEL_SECRET"`

	// Name this backend instance registers under (backend process only)
	ServerName string `env:"SERVER_NAME"`

	// Friend-added notification suppression window
	NotifyCooldown time.Duration `env:"FRIEND_NOTIFY_COOLDOWN" envDefault:"10s"`

	// How long a GUI page may stay loading before the viewer is told
	PageLoadTimeout time.Duration `env:"FRIEND_PAGE_TIMEOUT" envDefault:"5s"`

	// Worker pool sizing for blocking storage calls
	Workers   int `env:"WORKER_COUNT" envDefault:"8"`
	QueueSize int `env:"WORKER_QUEUE_SIZE" envDefault:"256"`
}

// Load parses environment variables into a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the values both processes cannot run without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.ChannelSecret == "" {
		return fmt.Errorf("CHANNEL_SECRET must be set")
	}
	return nil
}

// ValidateBackend additionally checks backend-only settings.
func (c *Config) ValidateBackend() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ServerName == "" {
		return fmt.Errorf("SERVER_NAME must be set for a backend instance")
	}
	return nil
}
