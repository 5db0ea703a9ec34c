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
//	token := cfg.Platforms.Storefront.APIToken
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Platforms     PlatformsConfig     `yaml:"platforms"`
	Matching      MatchingConfig      `yaml:"matching"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// PlatformsConfig holds per-platform API configuration
type PlatformsConfig struct {
	Storefront PlatformConfig `yaml:"storefront"`
	PayGateway PlatformConfig `yaml:"pay_gateway"`
	OrderMgmt  PlatformConfig `yaml:"order_mgmt"`
}

// PlatformConfig holds the connection settings of one upstream platform
type PlatformConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIToken string `yaml:"api_token"`
	PageSize int    `yaml:"page_size"`
}

// MatchingConfig holds optional overrides for the scoring profiles.
// Zero values fall back to the built-in defaults.
type MatchingConfig struct {
	PayGateway ProfileConfig `yaml:"pay_gateway"`
	OrderMgmt  ProfileConfig `yaml:"order_mgmt"`
}

// ProfileConfig overrides one source's scoring profile
type ProfileConfig struct {
	IdentityWeight  float64 `yaml:"identity_weight"`
	ReferenceWeight float64 `yaml:"reference_weight"`
	AmountWeight    float64 `yaml:"amount_weight"`
	TemporalWeight  float64 `yaml:"temporal_weight"`
	AmountTolerance float64 `yaml:"amount_tolerance"`
	WindowHours     float64 `yaml:"window_hours"`
}

// IsZero reports whether no override was configured for this profile
func (p ProfileConfig) IsZero() bool {
	return p == ProfileConfig{}
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

	// Expand environment variables (e.g., ${STOREFRONT_API_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Address: getEnv("LEDGERLINK_ADDR", ":8080"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("LEDGERLINK_DB_PATH", "ledgerlink.db"),
		},
		Platforms: PlatformsConfig{
			Storefront: PlatformConfig{
				BaseURL:  getEnv("STOREFRONT_BASE_URL", ""),
				APIToken: os.Getenv("STOREFRONT_API_TOKEN"),
				PageSize: getEnvInt("STOREFRONT_PAGE_SIZE", 0),
			},
			PayGateway: PlatformConfig{
				BaseURL:  getEnv("PAY_GATEWAY_BASE_URL", ""),
				APIToken: os.Getenv("PAY_GATEWAY_API_TOKEN"),
				PageSize: getEnvInt("PAY_GATEWAY_PAGE_SIZE", 0),
			},
			OrderMgmt: PlatformConfig{
				BaseURL:  getEnv("ORDER_MGMT_BASE_URL", ""),
				APIToken: os.Getenv("ORDER_MGMT_API_TOKEN"),
				PageSize: getEnvInt("ORDER_MGMT_PAGE_SIZE", 0),
			},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
