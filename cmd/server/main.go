package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/model-registry/internal/adapters/cache/memory"
	"github.com/nulzo/model-registry/internal/adapters/cache/redis"
	"github.com/nulzo/model-registry/internal/adapters/providers/factory"
	"github.com/nulzo/model-registry/internal/buildinfo"
	"github.com/nulzo/model-registry/internal/config"
	"github.com/nulzo/model-registry/internal/core/ports"
	"github.com/nulzo/model-registry/internal/core/services/registry"
	"github.com/nulzo/model-registry/internal/platform/logger"
	tracing "github.com/nulzo/model-registry/internal/platform/otel"
	"github.com/nulzo/model-registry/internal/seed"
	"github.com/nulzo/model-registry/internal/server"
	"github.com/nulzo/model-registry/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(logger.FromSettings(cfg.Log.Level, cfg.Log.Format))
	defer logger.Sync()
	log := logger.Get()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     buildinfo.Version,
	}, log, os.Stdout)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	repo, err := store.Open(store.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}, log.Named("store"))
	if err != nil {
		return err
	}
	defer repo.Close()

	if cfg.Seed.File != "" {
		if _, err := seed.Apply(ctx, repo, cfg.Seed.File, log.Named("seed")); err != nil {
			return err
		}
	}

	cache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	adapters := factory.NewProviderFactory(factory.Config{
		Timeout:          cfg.Providers.Timeout,
		OpenAIReferer:    cfg.Providers.OpenAI.Referer,
		OpenAITitle:      cfg.Providers.OpenAI.Title,
		ReplicateBaseURL: cfg.Providers.Replicate.BaseURL,
		Logger:           log.Named("providers"),
	})

	svc := registry.NewService(repo, adapters,
		registry.WithCache(cache, cfg.Redis.TTL),
		registry.WithLogger(log.Named("registry")),
	)

	if cfg.UpdateCheck.Enabled {
		go buildinfo.NewUpdateChecker(cfg.UpdateCheck.Repo, log).Check(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.New(cfg, log.Named("http"), svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("model registry listening",
			zap.String("addr", srv.Addr),
			zap.String("version", buildinfo.Version),
			zap.String("env", cfg.Server.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// openCache prefers redis and falls back to the in-process cache when redis
// is disabled.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (ports.CacheService, func(), error) {
	if !cfg.Redis.Enabled {
		return memory.NewMemoryCache(), func() {}, nil
	}

	c, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info("listing cache backed by redis", zap.String("addr", cfg.Redis.Addr))
	return c, func() { _ = c.Close() }, nil
}
