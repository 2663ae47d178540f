// Package config loads runtime settings from the environment (optionally
// seeded from a .env file) and the field lists from an HCL layout file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings. Zero values are never used directly;
// Load fills defaults.
type Config struct {
	WorkDir      string
	IndexURL     string
	DBPath       string
	Port         string
	LogLevel     string
	LogFormat    string
	Workers      int
	LayoutConfig string // optional path to an HCL layout file
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("error loading .env file", "err", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (*Config, error) {
	c := &Config{
		WorkDir:      getenv("CPS_WORKDIR", "cpsbm"),
		IndexURL:     os.Getenv("CPS_INDEX_URL"), // empty defers to the layout file
		DBPath:       getenv("DB_PATH", "cpsdct.db"),
		Port:         getenv("PORT", "8080"),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getenv("LOG_FORMAT", "text")),
		LayoutConfig: os.Getenv("CPS_LAYOUT_CONFIG"),
		Workers:      1,
	}
	if v := os.Getenv("CPS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CPS_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that flags or the environment may have set.
func (c *Config) Validate() error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", c.LogFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid worker count %d: must be at least 1", c.Workers)
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work directory must not be empty")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
