// Package config loads cache configuration from YAML files.
//
// Durations are YAML strings in Go syntax ("5ms", "1h30m"); an empty
// string keeps the default. Use it where cache settings come from
// deployment files rather than code:
//
//	cfg, err := config.Load("cache.yaml")
//	...
//	opt, err := config.Options[string, []byte](cfg)
//	c, err := cache.New(opt)
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/iamsinghrajat/async-cache/cache"
)

// Config mirrors cache.Options for the file-configurable subset.
type Config struct {
	// Capacity is the entry limit; -1 disables eviction.
	Capacity int `yaml:"capacity"`
	// DefaultTTL expires entries this long after insertion ("" or "0" = never).
	DefaultTTL string `yaml:"default_ttl"`
	// BatchWindow is the batch coalescing window.
	BatchWindow string `yaml:"batch_window"`
	// MaxBatchSize caps a single batch invocation.
	MaxBatchSize int `yaml:"max_batch_size"`
}

// NewDefault returns the documented defaults.
func NewDefault() *Config {
	return &Config{
		Capacity:     cache.DefaultCapacity,
		DefaultTTL:   "0",
		BatchWindow:  cache.DefaultBatchWindow.String(),
		MaxBatchSize: cache.DefaultMaxBatchSize,
	}
}

// Load reads path into a Config on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := NewDefault()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and duration syntax.
func (c *Config) Validate() error {
	if c.Capacity < cache.Unlimited {
		return &cache.ConfigError{Param: "capacity", Reason: "must be positive, 0 (default) or -1 (unlimited)"}
	}
	if c.MaxBatchSize < 0 {
		return &cache.ConfigError{Param: "max_batch_size", Reason: "must not be negative"}
	}
	if d, err := c.defaultTTL(); err != nil {
		return &cache.ConfigError{Param: "default_ttl", Reason: err.Error()}
	} else if d < 0 {
		return &cache.ConfigError{Param: "default_ttl", Reason: "must not be negative"}
	}
	if _, err := c.batchWindow(); err != nil {
		return &cache.ConfigError{Param: "batch_window", Reason: err.Error()}
	}
	return nil
}

// Options converts a validated Config into cache options.
// K and V are chosen by the caller; everything else in cache.Options
// (loader, policy, hooks) is code, not configuration.
func Options[K comparable, V any](c *Config) (cache.Options[K, V], error) {
	var opt cache.Options[K, V]
	if err := c.Validate(); err != nil {
		return opt, err
	}
	ttl, _ := c.defaultTTL()
	window, _ := c.batchWindow()
	opt.Capacity = c.Capacity
	opt.DefaultTTL = ttl
	opt.BatchWindow = window
	opt.MaxBatchSize = c.MaxBatchSize
	return opt, nil
}

func (c *Config) defaultTTL() (time.Duration, error)  { return parseDuration(c.DefaultTTL) }
func (c *Config) batchWindow() (time.Duration, error) { return parseDuration(c.BatchWindow) }

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
