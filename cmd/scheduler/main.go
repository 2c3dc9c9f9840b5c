package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crm_backend/internal/leads/cache"
	"crm_backend/internal/leads/store"
	"crm_backend/internal/scheduler"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if !cfg.IsRedisEnabled() {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var handle *store.Handle
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		h, err := store.Open(ctx, cfg, store.Options{}, log)
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

	var listingCache *cache.ListingCache
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, client, err := cache.NewFromConfig(ctx, cfg)
		if err != nil {
			return err
		}
		listingCache = c
		go func() {
			<-ctx.Done()
			_ = client.Close()
		}()
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}

	refreshInterval := getDurationEnv("LEAD_LISTING_REFRESH_INTERVAL", 4*time.Minute)
	refresher := scheduler.NewListingRefresher(handle.Repo, listingCache, log, refreshInterval)
	go refresher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, listingCache, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
