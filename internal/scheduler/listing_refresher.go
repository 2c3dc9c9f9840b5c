package scheduler

import (
	"context"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/platform/logger"
)

const defaultListingRefreshInterval = 4 * time.Minute

// LeadLister reads the full listing from the store.
type LeadLister interface {
	ListLeads(ctx context.Context) ([]domain.Lead, error)
}

// ListingWriter stores a listing in the cache.
type ListingWriter interface {
	SetLeads(ctx context.Context, leads []domain.Lead) error
}

// ListingRefresher periodically rewrites the cached lead listing so detection
// requests rarely pay for a full store read.
type ListingRefresher struct {
	store    LeadLister
	cache    ListingWriter
	log      *logger.Logger
	interval time.Duration
}

func NewListingRefresher(store LeadLister, cache ListingWriter, log *logger.Logger, interval time.Duration) *ListingRefresher {
	if interval <= 0 {
		interval = defaultListingRefreshInterval
	}
	return &ListingRefresher{
		store:    store,
		cache:    cache,
		log:      log,
		interval: interval,
	}
}

func (r *ListingRefresher) Run(ctx context.Context) {
	if r == nil || r.store == nil || r.cache == nil {
		return
	}

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *ListingRefresher) refresh(ctx context.Context) {
	leads, err := r.store.ListLeads(ctx)
	if err != nil {
		r.log.Warn("lead listing refresh failed", "error", err)
		return
	}

	if err := r.cache.SetLeads(ctx, leads); err != nil {
		r.log.Warn("lead listing cache write failed", "error", err)
		return
	}

	r.log.Debug("lead listing cache refreshed", "leads", len(leads))
}
