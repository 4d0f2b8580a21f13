package cache

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	BackendDisk   = "disk"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Backend string
	Dir     string
	Prefix  string
}

func NewStore(cfg Config, redisClient *redis.Client) (Store, error) {
	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, errors.New("cache: redis backend needs a client")
		}
		return NewRedisStore(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		}), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendDisk, "":
		return NewDiskStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
