// Package cache keeps the full lead listing in Redis so detection does not
// read the whole store on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// ListingKey holds the JSON-encoded listing.
const ListingKey = "leads:listing:v1"

// DefaultTTL applies when the configured TTL is zero.
const DefaultTTL = 5 * time.Minute

// ListingCache reads and writes the lead listing.
type ListingCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New wraps an existing client.
func New(client redis.Cmdable, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ListingCache{client: client, ttl: ttl}
}

// NewFromConfig dials REDIS_URL. The returned client must be closed by the caller.
func NewFromConfig(ctx context.Context, cfg config.RedisConfig) (*ListingCache, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, cfg.GetLeadCacheTTL()), client, nil
}

// GetLeads returns the cached listing. ok is false on a miss.
func (c *ListingCache) GetLeads(ctx context.Context) (leads []domain.Lead, ok bool, err error) {
	data, err := c.client.Get(ctx, ListingKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, false, fmt.Errorf("decode cached listing: %w", err)
	}
	return leads, true, nil
}

// SetLeads stores the listing for the configured TTL.
func (c *ListingCache) SetLeads(ctx context.Context, leads []domain.Lead) error {
	if leads == nil {
		leads = []domain.Lead{}
	}
	data, err := json.Marshal(leads)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ListingKey, data, c.ttl).Err()
}

// InvalidateLeadListings drops the cached listing.
func (c *ListingCache) InvalidateLeadListings(ctx context.Context) error {
	return c.client.Del(ctx, ListingKey).Err()
}
