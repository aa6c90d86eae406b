// Package config loads server configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DBPath is the SQLite database file path.
	DBPath string

	// WebhookURL, when set, is where settlement notifications are
	// posted. Empty means notifications only go to the log.
	WebhookURL string

	// ReminderThreshold is the default pending balance at which a
	// settlement reminder fires, used when a reminder request names no
	// threshold of its own.
	ReminderThreshold decimal.Decimal

	// AllowedOrigins are the CORS origins permitted to call the API.
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present; a missing one is not an
// error.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := &Config{
		Addr:       getEnv("ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "./data/ledger.db"),
		WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
	}

	if raw := os.Getenv("REMINDER_THRESHOLD"); raw != "" {
		threshold, err := decimal.NewFromString(raw)
		if err != nil {
			slog.Warn("Invalid REMINDER_THRESHOLD, defaulting to 0", "value", raw, "error", err)
		} else {
			cfg.ReminderThreshold = threshold
		}
	}

	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
