package scheduler

import (
	"context"
	"fmt"
	"time"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ListingInvalidator drops cached lead listings.
type ListingInvalidator interface {
	InvalidateLeadListings(ctx context.Context) error
}

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	invalidator ListingInvalidator
	log         *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, invalidator ListingInvalidator, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		invalidator: invalidator,
		log:         log,
	}

	mux.HandleFunc(TaskLeadCacheInvalidate, w.handleLeadCacheInvalidate)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadCacheInvalidate(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadCacheInvalidatePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if w.invalidator == nil {
		return nil
	}
	if err := w.invalidator.InvalidateLeadListings(ctx); err != nil {
		return err
	}

	if !payload.RequestedAt.IsZero() {
		w.log.Info("lead listing cache invalidated", "lag_ms", time.Since(payload.RequestedAt).Milliseconds())
	}
	return nil
}
