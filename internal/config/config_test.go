package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"MOBYGAMES_API_KEY": "abc"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "disk", cfg.CacheBackend)
	assert.Equal(t, "./cache/", cfg.CacheDir)
	assert.Equal(t, "./templates/", cfg.TemplateDir)
	assert.Equal(t, CacheSize{Queries: 512, Covers: 512, Screens: 1024}, cfg.CacheSize)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"MOBYGAMES_API_KEY":  "abc",
		"SERVER_HOST":        "127.0.0.1",
		"SERVER_PORT":        "9000",
		"DEBUG":              "true",
		"CACHE_BACKEND":      "redis",
		"CACHE_SIZE_QUERIES": "64",
		"UPSTREAM_TIMEOUT":   "3s",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.True(t, cfg.Debug)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 64, cfg.CacheSize.Queries)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
}

func TestLoadFromRejectsBadConfig(t *testing.T) {
	_, err := LoadFrom(map[string]string{})
	assert.ErrorContains(t, err, "MOBYGAMES_API_KEY")

	_, err = LoadFrom(map[string]string{"MOBYGAMES_API_KEY": "abc", "CACHE_BACKEND": "s3"})
	assert.ErrorContains(t, err, "CACHE_BACKEND")

	_, err = LoadFrom(map[string]string{"MOBYGAMES_API_KEY": "abc", "SERVER_PORT": "70000"})
	assert.ErrorContains(t, err, "SERVER_PORT")
}
