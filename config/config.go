// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings. DatabaseURL selects the backend with a
// postgres://, sqlite:// or memory:// URL.
type Config struct {
	Addr           string
	DatabaseURL    string
	RedisAddr      string
	CountTTL       time.Duration
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AllowedOrigins []string
	Migrate        bool
	LogLevel       slog.Level
}

// Load reads a .env file if one exists and then the HOLOCRON_* environment
// variables.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Addr:        get("HOLOCRON_ADDR", ":8080"),
		DatabaseURL: get("HOLOCRON_DATABASE_URL", "sqlite://holocron.db"),
		RedisAddr:   getenv("HOLOCRON_REDIS_ADDR"),
		JWTSecret:   getenv("HOLOCRON_JWT_SECRET"),
		JWTIssuer:   getenv("HOLOCRON_JWT_ISSUER"),
		JWTAudience: getenv("HOLOCRON_JWT_AUDIENCE"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("HOLOCRON_JWT_SECRET is required")
	}

	for _, o := range strings.Split(getenv("HOLOCRON_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	ttl, err := time.ParseDuration(get("HOLOCRON_COUNT_TTL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("HOLOCRON_COUNT_TTL: %w", err)
	}
	cfg.CountTTL = ttl

	cfg.Migrate, err = strconv.ParseBool(get("HOLOCRON_MIGRATE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("HOLOCRON_MIGRATE: %w", err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("HOLOCRON_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("HOLOCRON_LOG_LEVEL: %w", err)
	}
	return cfg, nil
}
