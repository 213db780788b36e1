// Package config loads tracecheck settings from TRACECHECK_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name
const Prefix = "TRACECHECK"

// Config holds all tracecheck configuration.
type Config struct {
	Debug bool `envconfig:"DEBUG" default:"false"`

	Logging   LogConfig       `ignored:"true"`
	Wait      WaitConfig      `ignored:"true"`
	Collector CollectorConfig `ignored:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// WaitConfig holds export waiter configuration.
type WaitConfig struct {
	CollectorEndpoint string        `envconfig:"COLLECTOR_ENDPOINT" default:"http://localhost:4318"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`
	Timeout           time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// CollectorConfig holds test collector configuration.
type CollectorConfig struct {
	HTTPAddr     string `envconfig:"HTTP_ADDR" default:":4318"`
	GRPCAddr     string `envconfig:"GRPC_ADDR" default:":4317"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"16777216"`
}

// Load loads configuration from environment variables.
//
// Sections are processed one by one so that every variable sits directly
// under the TRACECHECK_ prefix.
func Load() (*Config, error) {
	var cfg Config
	sections := []struct {
		name string
		spec any
	}{
		{"root", &cfg},
		{"logging", &cfg.Logging},
		{"wait", &cfg.Wait},
		{"collector", &cfg.Collector},
	}
	for _, s := range sections {
		if err := envconfig.Process(Prefix, s.spec); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level: "info",
		},
		Wait: WaitConfig{
			CollectorEndpoint: "http://localhost:4318",
			PollInterval:      500 * time.Millisecond,
			Timeout:           30 * time.Second,
		},
		Collector: CollectorConfig{
			HTTPAddr:     ":4318",
			GRPCAddr:     ":4317",
			MaxBodyBytes: 16 << 20,
		},
	}
}

// Validate checks the values that cannot be expressed as envconfig defaults.
func (c *Config) Validate() error {
	if err := c.Wait.Validate(); err != nil {
		return err
	}
	if c.Collector.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.Collector.MaxBodyBytes)
	}
	return nil
}

// Validate checks the waiter settings.
func (w WaitConfig) Validate() error {
	switch {
	case w.CollectorEndpoint == "":
		return errors.New("collector endpoint must not be empty")
	case w.PollInterval <= 0:
		return fmt.Errorf("poll interval must be positive, got %s", w.PollInterval)
	case w.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", w.Timeout)
	case w.Timeout < w.PollInterval:
		return fmt.Errorf("timeout %s is shorter than poll interval %s", w.Timeout, w.PollInterval)
	}
	return nil
}
