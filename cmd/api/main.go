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

	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/http/router"
	"crm_backend/internal/leads"
	"crm_backend/internal/leads/archive"
	"crm_backend/internal/leads/cache"
	"crm_backend/internal/leads/store"
	"crm_backend/internal/scheduler"
	"crm_backend/platform/config"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := cfg.RequireJWT(); err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var handle *store.Handle
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		h, err := store.Open(ctx, cfg, store.Options{Migrate: true}, log)
		if err != nil {
			return err
		}
		handle = h
		return nil
	}); err != nil {
		log.Error("failed to open lead store", "error", err)
		panic("failed to open lead store: " + err.Error())
	}
	defer handle.Close()
	log.Info("lead store ready", "driver", handle.Driver)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule, err := leads.NewModule(handle.Repo, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	leadsModule.SetMergeRateLimit(httpkit.NewMergeRateLimiter(log).RateLimit())

	if cfg.IsRedisEnabled() {
		listingCache, redisClient, err := cache.NewFromConfig(ctx, cfg)
		if err != nil {
			log.Warn("lead listing cache disabled", "error", err)
		} else {
			defer func() { _ = redisClient.Close() }()
			leadsModule.SetListingCache(listingCache)
			log.Info("lead listing cache enabled", "ttl", cfg.GetLeadCacheTTL())
		}
	} else {
		log.Warn("REDIS_URL not configured; lead listing cache disabled")
	}

	if closeScheduler := initAsyncInvalidation(cfg, leadsModule, log); closeScheduler != nil {
		defer closeScheduler()
	}

	if cfg.IsMinIOEnabled() {
		writer, err := archive.NewMinIOWriter(cfg)
		if err != nil {
			log.Error("failed to initialize merge archive", "error", err)
			panic("failed to initialize merge archive: " + err.Error())
		}
		bucket := cfg.GetMinioBucketMergeArchive()
		if err := withRetry(ctx, log, "ensure merge archive bucket", 5, 2*time.Second, func() error {
			return writer.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		leadsModule.SetArchiver(archive.New(writer, bucket))
		log.Info("merge archive initialized", "bucket", bucket)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  handle,
		Modules: []apphttp.Module{leadsModule},
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initAsyncInvalidation routes merge cache invalidation through the scheduler
// queue when ASYNC_CACHE_INVALIDATION is on.
func initAsyncInvalidation(cfg *config.Config, leadsModule *leads.Module, log *logger.Logger) func() {
	if !cfg.IsAsyncInvalidationEnabled() {
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client; invalidating inline", "error", err)
		return nil
	}

	leadsModule.SetCacheInvalidator(client)
	log.Info("lead cache invalidation routed through scheduler", "queue", cfg.GetAsynqQueueName())
	return func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
