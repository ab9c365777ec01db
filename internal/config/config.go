// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port int

	// DBPath is the SQLite file used when DatabaseURL is empty.
	DBPath string
	// DatabaseURL selects the Postgres store when set.
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel    string
	CORSOrigins []string

	// Federated sign-in is enabled when FederatedKey is set.
	FederatedProvider string
	FederatedIssuer   string
	FederatedAudience string
	FederatedKey      string
}

// FederatedEnabled reports whether an identity provider is configured.
func (c *Config) FederatedEnabled() bool {
	return c.FederatedKey != ""
}

// Load reads envFiles (missing files are ignored) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL: must be positive")
	}

	cfg := &Config{
		Port:              port,
		DBPath:            getEnv("DB_PATH", "./data/owedup.db"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          ttl,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		FederatedProvider: getEnv("FEDERATED_PROVIDER", "google"),
		FederatedIssuer:   os.Getenv("FEDERATED_ISSUER"),
		FederatedAudience: os.Getenv("FEDERATED_AUDIENCE"),
		FederatedKey:      os.Getenv("FEDERATED_KEY"),
	}

	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
