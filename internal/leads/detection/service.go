// Package detection runs duplicate detection over the current lead listing.
package detection

import (
	"context"
	"fmt"
	"math"
	"strings"

	"crm_backend/internal/leads/dedup"
	"crm_backend/internal/leads/domain"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
)

// LeadStore lists every lead, oldest first.
type LeadStore interface {
	ListLeads(ctx context.Context) ([]domain.Lead, error)
}

// ListingCache holds a copy of the listing.
type ListingCache interface {
	GetLeads(ctx context.Context) ([]domain.Lead, bool, error)
	SetLeads(ctx context.Context, leads []domain.Lead) error
}

// HydratedGroup is a dedup.Group with the lead records attached.
type HydratedGroup struct {
	MasterID       string        `json:"masterId"`
	MasterLead     domain.Lead   `json:"masterLead"`
	DuplicateIDs   []string      `json:"duplicateIds"`
	DuplicateLeads []domain.Lead `json:"duplicateLeads"`
	Similarity     float64       `json:"similarity"`
}

// Report is the result of a full scan.
type Report struct {
	Duplicates []HydratedGroup `json:"duplicates"`
	Count      int             `json:"count"`
	TotalLeads int             `json:"totalLeads"`
	CacheHit   bool            `json:"cacheHit"`
}

type Service struct {
	store     LeadStore
	cache     ListingCache
	log       *logger.Logger
	threshold float64
}

func New(store LeadStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log, threshold: dedup.DefaultThreshold}
}

// SetCache wires the listing cache. Without one every scan reads the store.
func (s *Service) SetCache(cache ListingCache) {
	s.cache = cache
}

// SetDefaultThreshold changes the threshold used when callers pass none.
func (s *Service) SetDefaultThreshold(threshold float64) {
	if validThreshold(threshold) {
		s.threshold = threshold
	}
}

// DefaultOptions returns fuzzy matching at the configured threshold.
func (s *Service) DefaultOptions() dedup.Options {
	return dedup.Options{Threshold: s.threshold}
}

// ValidateOptions rejects thresholds outside [0,1], NaN included.
func ValidateOptions(opts dedup.Options) error {
	if !validThreshold(opts.Threshold) {
		return apperr.Validation(fmt.Sprintf("threshold must be between 0 and 1, got %v", opts.Threshold))
	}
	return nil
}

func validThreshold(t float64) bool {
	return !math.IsNaN(t) && t >= 0 && t <= 1
}

// Scan detects duplicate groups across every lead.
func (s *Service) Scan(ctx context.Context, opts dedup.Options) (Report, error) {
	if err := ValidateOptions(opts); err != nil {
		return Report{}, err
	}

	leads, cacheHit, err := s.listing(ctx)
	if err != nil {
		return Report{}, err
	}

	groups := dedup.Detect(leads, opts)
	byID := make(map[string]domain.Lead, len(leads))
	for _, l := range leads {
		byID[l.ID] = l
	}

	hydrated := make([]HydratedGroup, 0, len(groups))
	for _, g := range groups {
		dups := make([]domain.Lead, 0, len(g.DuplicateIDs))
		for _, id := range g.DuplicateIDs {
			dups = append(dups, byID[id])
		}
		hydrated = append(hydrated, HydratedGroup{
			MasterID:       g.MasterID,
			MasterLead:     byID[g.MasterID],
			DuplicateIDs:   g.DuplicateIDs,
			DuplicateLeads: dups,
			Similarity:     g.Similarity,
		})
	}

	s.log.Info("duplicate scan finished",
		"groups", len(hydrated),
		"total_leads", len(leads),
		"threshold", opts.Threshold,
		"exact_only", opts.ExactOnly,
		"cache_hit", cacheHit,
	)

	return Report{
		Duplicates: hydrated,
		Count:      len(hydrated),
		TotalLeads: len(leads),
		CacheHit:   cacheHit,
	}, nil
}

// DuplicatesOf returns the other members of leadID's group.
func (s *Service) DuplicatesOf(ctx context.Context, leadID string, opts dedup.Options) ([]domain.Lead, error) {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return nil, apperr.Validation("lead id is required")
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	leads, _, err := s.listing(ctx)
	if err != nil {
		return nil, err
	}
	if !containsLead(leads, leadID) {
		return nil, apperr.NotFound("lead not found")
	}

	dups := dedup.DuplicatesOf(leadID, leads, opts)
	if dups == nil {
		dups = []domain.Lead{}
	}
	return dups, nil
}

// CheckCandidate finds stored leads resembling a contact that is being entered.
func (s *Service) CheckCandidate(ctx context.Context, c dedup.Candidate) ([]dedup.Match, error) {
	if c.IsEmpty() {
		return nil, apperr.Validation("at least one of name, phone or email is required")
	}

	leads, _, err := s.listing(ctx)
	if err != nil {
		return nil, err
	}

	matches := dedup.MatchCandidate(c, leads)
	if matches == nil {
		matches = []dedup.Match{}
	}
	return matches, nil
}

// listing reads the cache first and falls back to the store. An empty cached
// listing counts as a miss. Cache failures only cost a store read.
func (s *Service) listing(ctx context.Context) ([]domain.Lead, bool, error) {
	if s.cache != nil {
		leads, ok, err := s.cache.GetLeads(ctx)
		if err != nil {
			s.log.Warn("lead listing cache read failed", "error", err)
		} else if ok && len(leads) > 0 {
			return leads, true, nil
		}
	}

	leads, err := s.store.ListLeads(ctx)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	if s.cache != nil {
		if err := s.cache.SetLeads(ctx, leads); err != nil {
			s.log.Warn("lead listing cache write failed", "error", err)
		}
	}
	return leads, false, nil
}

func containsLead(leads []domain.Lead, id string) bool {
	for _, l := range leads {
		if l.ID == id {
			return true
		}
	}
	return false
}
