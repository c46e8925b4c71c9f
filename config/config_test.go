package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamsinghrajat/async-cache/cache"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewDefault(t *testing.T) {
	t.Parallel()

	cfg := NewDefault()
	require.NoError(t, cfg.Validate())

	opt, err := Options[string, string](cfg)
	require.NoError(t, err)
	assert.Equal(t, cache.DefaultCapacity, opt.Capacity)
	assert.Equal(t, time.Duration(0), opt.DefaultTTL)
	assert.Equal(t, cache.DefaultBatchWindow, opt.BatchWindow)
	assert.Equal(t, cache.DefaultMaxBatchSize, opt.MaxBatchSize)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
capacity: 512
default_ttl: 90s
batch_window: 2ms
max_batch_size: 25
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	opt, err := Options[string, []byte](cfg)
	require.NoError(t, err)
	assert.Equal(t, 512, opt.Capacity)
	assert.Equal(t, 90*time.Second, opt.DefaultTTL)
	assert.Equal(t, 2*time.Millisecond, opt.BatchWindow)
	assert.Equal(t, 25, opt.MaxBatchSize)

	// The resulting options build a working cache.
	c, err := cache.New(opt)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	c.Set("k", []byte("v"))
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeFile(t, "capacity: 64\n"))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Capacity)
	assert.Equal(t, cache.DefaultMaxBatchSize, cfg.MaxBatchSize)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"capacity below unlimited", func(c *Config) { c.Capacity = -2 }, "capacity"},
		{"negative max batch size", func(c *Config) { c.MaxBatchSize = -1 }, "max_batch_size"},
		{"bad ttl syntax", func(c *Config) { c.DefaultTTL = "soon" }, "default_ttl"},
		{"negative ttl", func(c *Config) { c.DefaultTTL = "-5s" }, "default_ttl"},
		{"bad window syntax", func(c *Config) { c.BatchWindow = "fast" }, "batch_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ce *cache.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.param, ce.Param)
		})
	}

	// Unlimited capacity is valid.
	cfg := NewDefault()
	cfg.Capacity = -1
	assert.NoError(t, cfg.Validate())
}
