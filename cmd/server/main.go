package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/fmmtree/backend/internal/api"
	"github.com/onnwee/fmmtree/backend/internal/cache"
	"github.com/onnwee/fmmtree/backend/internal/config"
	"github.com/onnwee/fmmtree/backend/internal/errorreporting"
	"github.com/onnwee/fmmtree/backend/internal/logger"
	"github.com/onnwee/fmmtree/backend/internal/server"
	"github.com/onnwee/fmmtree/backend/internal/service"
	"github.com/onnwee/fmmtree/backend/internal/tracing"
)

func main() {
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, envErr != nil)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. Deferred sentry and tracing flushes
// complete before it returns, so callers may exit right after.
func run(ctx context.Context, noEnvFile bool) error {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")
	if noEnvFile {
		log.Debug("no .env file found, using process environment")
	}

	if err := errorreporting.Init(errorreporting.Settings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.Warn("sentry disabled", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init(tracing.Settings{
		ServiceName: "fmmtree-api",
		Enabled:     cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				log.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	defaults, err := cfg.TreeOptions()
	if err != nil {
		log.Error("invalid tree configuration", "error", err)
		return fmt.Errorf("tree configuration: %w", err)
	}

	var trees cache.Cache
	lru, err := cache.NewLRU(cfg.CacheMaxMB, cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		log.Warn("tree cache disabled", "error", err)
	} else {
		defer lru.Close()
		trees = lru
	}

	svc := service.New(trees, service.Config{
		MaxSources: cfg.MaxSources,
		Timeout:    cfg.BuildTimeout,
		CacheTTL:   cfg.CacheTTL,
	})

	srv := server.New(api.Deps{
		Config:   cfg,
		Builder:  svc,
		Trees:    trees,
		Defaults: defaults,
	})

	if err := srv.ListenAndServe(ctx, ":"+cfg.Port); err != nil {
		log.Error("server stopped", "error", err)
		errorreporting.CaptureError(err)
		return err
	}
	log.Info("server stopped")
	return nil
}
