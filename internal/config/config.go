// Package config loads process configuration from FLOWLOGIC_* environment
// variables, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/flowgraph/flowlogic/pkg/validation"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FLOWLOGIC_"

// Artifact store kinds.
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all configuration for the flowlogic binaries
type Config struct {
	Addr            string        `json:"addr" validate:"required,hostname_port"`
	LogLevel        string        `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `json:"log_format" validate:"oneof=json text"`
	Store           string        `json:"store" validate:"oneof=none memory sqlite postgres"`
	SQLitePath      string        `json:"sqlite_path" validate:"required_if=Store sqlite"`
	DatabaseURL     string        `json:"database_url" validate:"required_if=Store postgres"`
	Codec           string        `json:"codec" validate:"oneof=json msgpack"`
	Compression     string        `json:"compression" validate:"oneof=none gzip zstd"`
	Persist         bool          `json:"persist"`
	Strict          bool          `json:"strict"`
	MemoryTTL       time.Duration `json:"memory_ttl" validate:"min=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"min=0"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		Store:           StoreMemory,
		SQLitePath:      "flowlogic.db",
		Codec:           "msgpack",
		Compression:     "zstd",
		Persist:         false,
		Strict:          false,
		MemoryTTL:       0,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the environment after loading the given .env files. With no
// files named it loads ".env" if present; named files must exist.
// Variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if err := loadEnvFiles(files); err != nil {
		return nil, err
	}

	d := Default()
	cfg := &Config{
		Addr:            getEnvWithDefault("ADDR", d.Addr),
		LogLevel:        strings.ToLower(getEnvWithDefault("LOG_LEVEL", d.LogLevel)),
		LogFormat:       strings.ToLower(getEnvWithDefault("LOG_FORMAT", d.LogFormat)),
		Store:           strings.ToLower(getEnvWithDefault("STORE", d.Store)),
		SQLitePath:      getEnvWithDefault("SQLITE_PATH", d.SQLitePath),
		DatabaseURL:     getEnvWithDefault("DATABASE_URL", d.DatabaseURL),
		Codec:           strings.ToLower(getEnvWithDefault("CODEC", d.Codec)),
		Compression:     strings.ToLower(getEnvWithDefault("COMPRESSION", d.Compression)),
		Persist:         getEnvAsBool("PERSIST", d.Persist),
		Strict:          getEnvAsBool("STRICT", d.Strict),
		MemoryTTL:       getEnvAsDuration("MEMORY_TTL", d.MemoryTTL),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", d.ShutdownTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if c.Persist && c.Store == StoreNone {
		return ValidationError("persist", "persistence requires an artifact store")
	}
	return nil
}

// ValidationConfig returns the snapshot validation settings.
func (c *Config) ValidationConfig() *validation.ValidationConfig {
	vc := validation.DefaultValidationConfig()
	vc.StrictMode = c.Strict
	return vc
}

// ValidationError reports one invalid setting.
func ValidationError(field, message string) error {
	return validation.ValidationErrors{{Field: field, Message: message}}
}

// Helper functions for environment variable parsing

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr := os.Getenv(EnvPrefix + key); valueStr != "" {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(EnvPrefix + key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
