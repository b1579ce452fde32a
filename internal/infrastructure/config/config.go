// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Recon         ReconConfig         `yaml:"recon"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ReconConfig holds reconciliation engine tuning
type ReconConfig struct {
	// MinConfidence is the candidate cutoff; pairs scoring below it are
	// never reported or applied.
	MinConfidence int `yaml:"min_confidence"`
	// ExactDateToleranceDays widens the exact tier beyond same-day.
	ExactDateToleranceDays int `yaml:"exact_date_tolerance_days"`
	// FuzzyWindowDays bounds the date gap for fuzzy candidates.
	FuzzyWindowDays int `yaml:"fuzzy_window_days"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", "recon.db"),
		},
		Server: ServerConfig{
			Port: getEnvInt("RECON_PORT", 8080),
		},
		Recon: ReconConfig{
			MinConfidence:          getEnvInt("RECON_MIN_CONFIDENCE", 0),
			ExactDateToleranceDays: getEnvInt("RECON_EXACT_DATE_TOLERANCE", 0),
			FuzzyWindowDays:        getEnvInt("RECON_FUZZY_WINDOW_DAYS", 0),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("RECON_LOG_LEVEL", "info"),
				Format: getEnv("RECON_LOG_FORMAT", "maven"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries the config file first, then falls back to environment
func LoadOrEnv() *Config {
	if path := os.Getenv("RECON_CONFIG"); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	if cfg, err := Load("config.yaml"); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks required configuration values
func (c *Config) Validate() error {
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is required")
	}
	if c.Recon.MinConfidence < 0 || c.Recon.MinConfidence > 100 {
		return fmt.Errorf("recon.min_confidence must be in [0,100], got %d", c.Recon.MinConfidence)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Recon.MinConfidence == 0 {
		c.Recon.MinConfidence = 60
	}
	if c.Recon.FuzzyWindowDays == 0 {
		c.Recon.FuzzyWindowDays = 14
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
