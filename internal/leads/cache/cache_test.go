package cache

import (
	"context"
	"testing"
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*ListingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestGetLeadsMiss(t *testing.T) {
	c, _ := newTestCache(t)

	leads, ok, err := c.GetLeads(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || leads != nil {
		t.Fatalf("expected a miss, got ok=%v leads=%v", ok, leads)
	}
}

func TestSetThenGetLeads(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	in := []domain.Lead{
		{ID: "1", Name: "Mario Rossi", Phone: "3331234567", OrderIDs: []string{"o1"}},
		{ID: "2", Name: "Luca Bianchi", Attributes: map[string]string{"email": "l@example.com"}},
	}
	if err := c.SetLeads(ctx, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(ListingKey); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	out, ok, err := c.GetLeads(ctx)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if len(out) != 2 || out[0].Name != "Mario Rossi" || out[1].Email() != "l@example.com" {
		t.Fatalf("unexpected listing: %+v", out)
	}
	if len(out[0].OrderIDs) != 1 || out[0].OrderIDs[0] != "o1" {
		t.Fatalf("expected relations to survive the round trip, got %v", out[0].OrderIDs)
	}
}

func TestEmptyListingIsAHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetLeads(ctx, nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, ok, err := c.GetLeads(ctx)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty listing, got %d", len(out))
	}
}

func TestInvalidateLeadListings(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.SetLeads(ctx, []domain.Lead{{ID: "1"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.InvalidateLeadListings(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(ListingKey) {
		t.Fatalf("expected listing key to be removed")
	}
	// Invalidating an absent key is not an error.
	if err := c.InvalidateLeadListings(ctx); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
}

func TestGetLeadsCorruptPayload(t *testing.T) {
	c, mr := newTestCache(t)
	if err := mr.Set(ListingKey, "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := c.GetLeads(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.SetLeads(ctx, []domain.Lead{{ID: "1"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := c.GetLeads(ctx); ok {
		t.Fatalf("expected listing to expire")
	}
}
