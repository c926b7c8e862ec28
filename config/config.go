/*
config.go - Server configuration from the environment

PURPOSE:
  One env-tagged struct for everything tunable at startup. cmd/server
  loads a .env file first (godotenv), then Load fills this struct, then
  command-line flags may override individual fields.

VARIABLES:
  PORT                 HTTP listen port          (default 8080)
  ROLLCALL_DB          SQLite database path      (default rollcall.db)
  ROLLCALL_JWT_SECRET  Token signing secret      (default random per boot)
  ROLLCALL_TOKEN_TTL   Token lifetime            (default 24h)
  ROLLCALL_SEED        Seed default accounts     (default true)
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration.
type Config struct {
	Port         int           `env:"PORT" envDefault:"8080"`
	DBPath       string        `env:"ROLLCALL_DB" envDefault:"rollcall.db"`
	JWTSecret    string        `env:"ROLLCALL_JWT_SECRET"`
	TokenTTL     time.Duration `env:"ROLLCALL_TOKEN_TTL" envDefault:"24h"`
	SeedDefaults bool          `env:"ROLLCALL_SEED" envDefault:"true"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
