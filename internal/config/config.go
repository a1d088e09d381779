// Package config loads the timestored configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultListen        = ":8080"
	DefaultTTL           = 5 * time.Minute
	DefaultMaxValueBytes = 1 << 20
	DefaultLogLevel      = "info"
)

type Config struct {
	// Listen is the address of the HTTP API (host:port).
	Listen string `yaml:"listen"`

	// LogLevel is one of: debug | info | warn | error. It is applied again on hot reload.
	LogLevel string `yaml:"log_level"`

	Store StoreConfig `yaml:"store"`
}

type StoreConfig struct {
	// DefaultTTL is given to keys stored without a ttl. Zero keeps them until deleted.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// MaxTTL caps the ttl a client may request. Zero means no cap.
	MaxTTL time.Duration `yaml:"max_ttl"`

	// ExpireOnShutdown reports every key as expired when the daemon stops.
	ExpireOnShutdown bool `yaml:"expire_on_shutdown"`

	// MaxValueBytes limits the size of a stored value.
	MaxValueBytes int64 `yaml:"max_value_bytes"`
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, filling missing fields with defaults.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Level returns the parsed log level. The config must have been validated.
func (c *Config) Level() slog.Level {
	var l slog.Level
	_ = l.UnmarshalText([]byte(c.LogLevel))
	return l
}

func defaults() *Config {
	return &Config{
		Listen:   DefaultListen,
		LogLevel: DefaultLogLevel,
		Store: StoreConfig{
			DefaultTTL:    DefaultTTL,
			MaxValueBytes: DefaultMaxValueBytes,
		},
	}
}

func validate(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if cfg.Store.DefaultTTL < 0 {
		return fmt.Errorf("store.default_ttl must not be negative")
	}
	if cfg.Store.MaxTTL < 0 {
		return fmt.Errorf("store.max_ttl must not be negative")
	}
	if cfg.Store.MaxTTL > 0 && cfg.Store.DefaultTTL == 0 {
		return fmt.Errorf("store.default_ttl must be set when store.max_ttl is")
	}
	if cfg.Store.MaxTTL > 0 && cfg.Store.DefaultTTL > cfg.Store.MaxTTL {
		return fmt.Errorf("store.default_ttl %v exceeds store.max_ttl %v", cfg.Store.DefaultTTL, cfg.Store.MaxTTL)
	}
	if cfg.Store.MaxValueBytes <= 0 {
		return fmt.Errorf("store.max_value_bytes must be positive")
	}
	return nil
}
