package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"moby-metaserver/internal/cache"
)

// CacheSize is the intended number of entries per category. Nothing
// enforces it; there is no eviction.
type CacheSize struct {
	Queries int `env:"QUERIES" envDefault:"512"`
	Covers  int `env:"COVERS" envDefault:"512"`
	Screens int `env:"SCREENS" envDefault:"1024"`
}

type Config struct {
	AppName string `env:"APP_NAME" envDefault:"x86Launcher2 Metadata Server"`
	Host    string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port    int    `env:"SERVER_PORT" envDefault:"8080"`
	Debug   bool   `env:"DEBUG" envDefault:"false"`

	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates/"`
	CSSDir      string `env:"CSS_DIR" envDefault:"./css/"`
	JSDir       string `env:"JS_DIR" envDefault:"./js/"`

	CacheBackend string    `env:"CACHE_BACKEND" envDefault:"disk"`
	CacheDir     string    `env:"CACHE_DIR" envDefault:"./cache/"`
	CacheSize    CacheSize `envPrefix:"CACHE_SIZE_"`
	RedisAddr    string    `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPrefix  string    `env:"REDIS_PREFIX" envDefault:"metaserver"`

	MobyAPIKey      string        `env:"MOBYGAMES_API_KEY"`
	MobyBaseURL     string        `env:"MOBYGAMES_BASE_URL" envDefault:"https://api.mobygames.com/v1/"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamRetries int           `env:"UPSTREAM_RETRIES" envDefault:"2"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MobyAPIKey == "" {
		return errors.New("MOBYGAMES_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Port)
	}
	switch c.CacheBackend {
	case cache.BackendDisk, cache.BackendRedis, cache.BackendMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheBackend == cache.BackendDisk && c.CacheDir == "" {
		return errors.New("CACHE_DIR is required for the disk backend")
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
