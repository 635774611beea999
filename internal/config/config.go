// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. Values are read once at
// startup; there is no hot reload.
type Config struct {
	NSWBaseURL    string
	NSWAuthHeader string
	NSWAPIKey     string
	MapboxToken   string
	GeminiAPIKey  string
	HTTPTimeout   time.Duration
	DBPath        string
	Port          string
	LogLevel      string
}

// Load reads configuration from the environment, honouring a local .env
// file when present.
func Load() *Config {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	return &Config{
		NSWBaseURL:    getEnv("NSW_API_BASE_URL", "https://api.onegov.nsw.gov.au"),
		NSWAuthHeader: getEnv("NSW_AUTH_HEADER", ""),
		NSWAPIKey:     getEnv("NSW_API_KEY", ""),
		MapboxToken:   getEnv("MAPBOX_API_KEY", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		HTTPTimeout:   getDurationEnv("HTTP_TIMEOUT_SECONDS", 30) * time.Second,
		DBPath:        getEnv("QUERY_LOG_DB", "fuel_queries.db"),
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks that the credentials needed for fuel price queries are set.
func (c *Config) Validate() error {
	if c.NSWAuthHeader == "" {
		return errors.New("NSW_AUTH_HEADER is required")
	}
	if c.NSWAPIKey == "" {
		return errors.New("NSW_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds)
		}
	}
	return time.Duration(defaultSeconds)
}
