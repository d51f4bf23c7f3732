// Package config loads the application configuration from environment
// variables once at startup. The result is treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Backend names accepted by SLOWPOST_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBBolt    = "bbolt"
	BackendPostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	// Server
	ServerPort string

	// Storage
	Backend     string
	DataDir     string
	DatabaseURL string

	// Auth
	SkipPin      bool
	CookieSecure bool

	// Mail
	SendGridAPIKey string
	MailFrom       string
}

// Load reads the configuration from the environment. DATABASE_URL is
// required only when the postgres backend is selected.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:     getEnvString("SLOWPOST_PORT", "8080"),
		Backend:        getEnvString("SLOWPOST_BACKEND", BackendBBolt),
		DataDir:        getEnvString("DATA_DIR", "./data"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SkipPin:        getEnvBool("SKIP_PIN", false),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getEnvString("MAIL_FROM", "no-reply@slowpost.org"),
	}

	switch cfg.Backend {
	case BackendMemory, BackendBBolt, BackendPostgres:
	default:
		return nil, fmt.Errorf("unknown SLOWPOST_BACKEND %q", cfg.Backend)
	}
	if cfg.Backend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when SLOWPOST_BACKEND=postgres")
	}
	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
