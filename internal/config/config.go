// Package config loads the client configuration from config/client.yaml
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	LogLevel  string          `yaml:"log_level"`
}

// APIConfig configures the HTTP client.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	ClientVersion string        `yaml:"client_version"`
	Platform      string        `yaml:"platform"`
	ForceHTTPS    bool          `yaml:"force_https"`
	Harden        bool          `yaml:"harden"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBase     time.Duration `yaml:"retry_base"`
	Timeout       time.Duration `yaml:"timeout"`
}

// RateLimitConfig configures the client-side admission gate.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// RedisConfig optionally backs the durable session scope with Redis.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			ClientVersion: "1.0.0",
			Platform:      "go-sdk",
			MaxRetries:    3,
			RetryBase:     200 * time.Millisecond,
			Timeout:       30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 60,
			Window:      time.Minute,
		},
		LogLevel: "info",
	}
}

// Load reads config/client.yaml relative to the working directory.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "client.yaml"))
}

// LoadFromPath reads and validates a configuration file, then applies
// environment overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration or falls back to defaults plus
// environment overrides when the file is missing.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

// applyEnv overlays environment variables onto the configuration. A
// .env file in the working directory is honored when present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("CRM_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CRM_FORCE_HTTPS"); v != "" {
		c.API.ForceHTTPS = v == "true" || v == "1"
	}
	if v := os.Getenv("CRM_HARDEN"); v != "" {
		c.API.Harden = v == "true" || v == "1"
	}
	if v := os.Getenv("CRM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.API.MaxRetries = n
		}
	}
	if v := os.Getenv("CRM_REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := os.Getenv("CRM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
