// Package config loads process configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds settings shared by the server and the terminal client.
type Config struct {
	Port         string        `env:"PORT"          envDefault:"5175"`
	LogLevel     string        `env:"LOG_LEVEL"     envDefault:"info"`
	LogFile      string        `env:"LOG_FILE"`
	Store        string        `env:"STORE"         envDefault:"memory"`
	DBPath       string        `env:"DB_PATH"       envDefault:"./data/flipcard.db"`
	JWTSecret    string        `env:"JWT_SECRET"    envDefault:"dev_secret_change_me"`
	CookieName   string        `env:"COOKIE_NAME"   envDefault:"flipcard_session"`
	SessionTTL   time.Duration `env:"SESSION_TTL"   envDefault:"24h"`
	SweepEvery   time.Duration `env:"SWEEP_EVERY"   envDefault:"10m"`
	ClientOrigin string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	CardsFile    string        `env:"CARDS_FILE"`
	DailySalt    string        `env:"DAILY_SALT"    envDefault:"local_dev_salt"`
	Seed         uint64        `env:"SEED"`
	Env          string        `env:"NODE_ENV"      envDefault:"development"`
}

// Production reports whether cookies should be issued as Secure.
func (c Config) Production() bool { return c.Env == "production" }

// Load reads .env (if any) and parses the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	default:
		return Config{}, fmt.Errorf("parse env: STORE must be %q or %q, got %q", StoreMemory, StoreSQLite, cfg.Store)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("parse env: SESSION_TTL must be positive")
	}
	return cfg, nil
}
