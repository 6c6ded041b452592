package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend identifies a storage backend kind.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Storage StorageConfig

	// Redis (snapshot read cache)
	Redis RedisConfig

	// Pipeline
	Cohort  CohortConfig
	Scoring ScoringConfig

	// Validation ruleset applied at the bronze-to-silver boundary
	// (YAML path; empty selects the built-in ruleset)
	SilverRuleset string

	// Logging
	LogLevel  string
	LogFormat string
}

// StorageConfig selects and parameterizes the object store backend.
type StorageConfig struct {
	Backend Backend
	Root    string // local: root directory
	URL     string // remote: postgres connection string
	Bucket  string // remote: logical namespace
	Timeout time.Duration
}

// RedisConfig holds the optional snapshot cache configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// CohortConfig holds cohort-level thresholds.
type CohortConfig struct {
	MinSize int
}

// ScoringConfig holds scoring engine configuration.
type ScoringConfig struct {
	WeightsFile string
	Rescale     string // minmax, percentile
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Storage: StorageConfig{
			Backend: Backend(getEnv("STORAGE_BACKEND", "local")),
			Root:    getEnv("STORAGE_ROOT", "./data"),
			URL:     getEnv("STORAGE_URL", ""),
			Bucket:  getEnv("STORAGE_BUCKET", "goatindex"),
			Timeout: getEnvAsDuration("STORAGE_TIMEOUT", "10s"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Cohort: CohortConfig{
			MinSize: getEnvAsInt("COHORT_MIN_SIZE", 10),
		},

		Scoring: ScoringConfig{
			WeightsFile: getEnv("SCORING_WEIGHTS", ""),
			Rescale:     getEnv("SCORING_RESCALE", "minmax"),
		},

		SilverRuleset: getEnv("SILVER_RULESET", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.Root == "" {
			return fmt.Errorf("STORAGE_ROOT is required for the local backend")
		}
	case BackendRemote:
		if c.Storage.URL == "" {
			return fmt.Errorf("STORAGE_URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: local, remote")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Cohort.MinSize < 1 {
		return fmt.Errorf("COHORT_MIN_SIZE must be at least 1")
	}

	if c.Scoring.Rescale != "minmax" && c.Scoring.Rescale != "percentile" {
		return fmt.Errorf("SCORING_RESCALE must be one of: minmax, percentile")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
