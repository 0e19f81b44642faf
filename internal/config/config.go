// Package config loads process configuration from the environment, after
// merging in an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is everything cmd/main needs to start the server.
type Config struct {
	Port             string
	StoreDriver      string
	Postgres         database.Config
	SQLitePath       string
	HostPasscodeHash string
	JWTSecret        string
	HostTokenTTL     time.Duration
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	ttl, err := time.ParseDuration(getEnv("HOST_TOKEN_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("HOST_TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("HOST_TOKEN_TTL must be positive")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		StoreDriver: getEnv("STORE_DRIVER", DriverPostgres),
		Postgres: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "campusevents"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		SQLitePath:       getEnv("SQLITE_PATH", "campus_events.db"),
		HostPasscodeHash: os.Getenv("HOST_PASSCODE_HASH"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		HostTokenTTL:     ttl,
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("STORE_DRIVER %q is not supported", cfg.StoreDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
