package cache

import (
	"context"
	"errors"
	"time"

	"moby-metaserver/internal/metrics"
	"moby-metaserver/pkg/logging/logging"

	"go.uber.org/zap"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (c *LoggingStore) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := c.inner.Exists(ctx, key)

	result := "miss"
	switch {
	case err != nil:
		result = "error"
		metrics.CacheErrorsTotal.WithLabelValues("exists").Inc()
	case ok:
		result = "hit"
		metrics.CacheHitsTotal.Inc()
	default:
		metrics.CacheMissesTotal.Inc()
	}

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", sinceMs(start)),
	}
	logger := logging.L(ctx)
	if err != nil {
		logger.Error("cache_exists", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_exists", fields...)
	}
	return ok, err
}

func (c *LoggingStore) Load(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := c.inner.Load(ctx, key)

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Int("bytes", len(value)),
		zap.Float64("latency_ms", sinceMs(start)),
	}
	logger := logging.L(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Debug("cache_load", append(fields, zap.String("cache_result", "miss"))...)
	case err != nil:
		metrics.CacheErrorsTotal.WithLabelValues("load").Inc()
		logger.Warn("cache_load", append(fields, zap.Error(err))...)
	default:
		logger.Debug("cache_load", fields...)
	}
	return value, err
}

func (c *LoggingStore) Store(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := c.inner.Store(ctx, key, value)

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Int("bytes", len(value)),
		zap.Float64("latency_ms", sinceMs(start)),
	}
	logger := logging.L(ctx)
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("store").Inc()
		logger.Error("cache_store", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_store", fields...)
	}
	return err
}

func (c *LoggingStore) Purge(ctx context.Context) PurgeResult {
	start := time.Now()
	res := c.inner.Purge(ctx)
	metrics.CachePurgedTotal.Add(float64(res.Count()))

	fields := []zap.Field{
		zap.Int("removed", res.Count()),
		zap.Float64("latency_ms", sinceMs(start)),
	}
	logger := logging.L(ctx)
	if res.Err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("purge").Inc()
		logger.Warn("cache_purge", append(fields, zap.Error(res.Err))...)
	} else {
		logger.Info("cache_purge", fields...)
	}
	return res
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
