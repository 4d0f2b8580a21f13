package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"moby-metaserver/internal/cache"
	"moby-metaserver/internal/config"
	"moby-metaserver/internal/handlers"
	"moby-metaserver/internal/httpserver"
	"moby-metaserver/internal/metrics"
	"moby-metaserver/internal/moby"
	"moby-metaserver/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("metaserver exited with error: %v", err)
	}
}

func run() error {
	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger := logging.NewLogger(cfg.Debug)
	logging.SetDefault(logger)
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	logger.Info("loaded config",
		zap.String("app_name", cfg.AppName),
		zap.String("addr", cfg.Addr()),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("cache_dir", cfg.CacheDir),
		zap.Int("cache_size_queries", cfg.CacheSize.Queries),
		zap.Int("cache_size_covers", cfg.CacheSize.Covers),
		zap.Int("cache_size_screens", cfg.CacheSize.Screens),
		zap.String("template_dir", cfg.TemplateDir),
		zap.String("mobygames_base_url", cfg.MobyBaseURL),
		zap.Duration("upstream_timeout", cfg.UpstreamTimeout),
		zap.Int("upstream_retries", cfg.UpstreamRetries),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == cache.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer redisClient.Close()
	}

	// ----- Response cache -----
	store, err := cache.NewStore(cache.Config{
		Backend: cfg.CacheBackend,
		Dir:     cfg.CacheDir,
		Prefix:  cfg.RedisPrefix,
	}, redisClient)
	if err != nil {
		return err
	}

	// Fail fast if Redis is misconfigured
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(context.Background()); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}
	store = cache.NewLoggingStore(store)

	// ----- MobyGames client -----
	retries := cfg.UpstreamRetries
	if retries == 0 {
		retries = -1
	}
	mobyClient, err := moby.NewClient(moby.Config{
		BaseURL:         cfg.MobyBaseURL,
		APIKey:          cfg.MobyAPIKey,
		UpstreamTimeout: cfg.UpstreamTimeout,
		MaxRetries:      retries,
	}, store, logger)
	if err != nil {
		return err
	}
	if closer, ok := mobyClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// ----- Handlers -----
	metadataHandler := handlers.NewMetadataHandler(
		mobyClient,
		store,
		handlers.TemplateIndex{Dir: cfg.TemplateDir, AppName: cfg.AppName},
	)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, metadataHandler, httpserver.Options{
		RequestTimeout: cfg.RequestTimeout,
		CSSDir:         cfg.CSSDir,
		JSDir:          cfg.JSDir,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting metaserver",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			serveErr <- err
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
