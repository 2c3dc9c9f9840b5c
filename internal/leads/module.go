// Package leads provides the lead deduplication bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/leads/dedup"
	"crm_backend/internal/leads/detection"
	"crm_backend/internal/leads/handler"
	"crm_backend/internal/leads/merge"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// ListingCache is the lead listing cache: read by detection, dropped by merges.
type ListingCache interface {
	detection.ListingCache
	merge.CacheInvalidator
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo      repository.LeadsRepository
	detection *detection.Service
	merge     *merge.Service
	handler   *handler.Handler
	log       *logger.Logger
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(repo repository.LeadsRepository, eventBus events.Bus, val *validator.Validator, cfg config.DedupConfig, log *logger.Logger) (*Module, error) {
	policy, err := merge.LoadPolicy(cfg.GetMergePolicyPath())
	if err != nil {
		return nil, err
	}

	detectionSvc := detection.New(repo, log)
	detectionSvc.SetDefaultThreshold(cfg.GetDedupThreshold())

	mergeSvc := merge.New(repo, policy, log)
	mergeSvc.SetConcurrency(cfg.GetMergeConcurrency())
	mergeSvc.SetEventBus(eventBus)

	m := &Module{
		repo:      repo,
		detection: detectionSvc,
		merge:     mergeSvc,
		handler:   handler.New(detectionSvc, mergeSvc, repo, val),
		log:       log,
	}

	// Every committed merge lands in the audit log
	eventBus.Subscribe(events.LeadsMerged{}.EventName(), events.HandlerFunc(m.recordMerge))

	return m, nil
}

// SetListingCache wires the Redis listing cache into detection and merge.
func (m *Module) SetListingCache(cache ListingCache) {
	m.detection.SetCache(cache)
	m.merge.SetCacheInvalidator(cache)
}

// SetCacheInvalidator overrides how merges drop the listing cache,
// e.g. through the scheduler queue instead of a direct DEL.
func (m *Module) SetCacheInvalidator(invalidator merge.CacheInvalidator) {
	m.merge.SetCacheInvalidator(invalidator)
}

// SetArchiver wires the duplicate archive.
func (m *Module) SetArchiver(archiver merge.Archiver) {
	m.merge.SetArchiver(archiver)
}

// SetMergeRateLimit puts a limiter in front of POST /leads/merge.
func (m *Module) SetMergeRateLimit(mw gin.HandlerFunc) {
	m.handler.SetMergeRateLimit(mw)
}

// Scan implements Service.
func (m *Module) Scan(ctx context.Context, opts dedup.Options) (detection.Report, error) {
	return m.detection.Scan(ctx, opts)
}

// Merge implements Service.
func (m *Module) Merge(ctx context.Context, req merge.Request) (merge.Outcome, error) {
	return m.merge.Merge(ctx, req)
}

// Preview implements Service.
func (m *Module) Preview(ctx context.Context, req merge.Request) (merge.Preview, error) {
	return m.merge.Preview(ctx, req)
}

// DetectionService returns the detection service for external use.
func (m *Module) DetectionService() *detection.Service {
	return m.detection
}

// Repository returns the lead store the module runs on.
func (m *Module) Repository() repository.LeadsRepository {
	return m.repo
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

func (m *Module) recordMerge(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadsMerged)
	if !ok {
		return nil
	}

	err := m.repo.RecordMerge(ctx, repository.MergeLogEntry{
		ID:              e.EventID(),
		MasterID:        e.MasterID,
		MergedIDs:       e.MergedIDs,
		SkippedIDs:      e.SkippedIDs,
		FailedDeleteIDs: e.FailedDeleteIDs,
		Orders:          e.Orders,
		Activities:      e.Activities,
		ActorID:         e.ActorID,
		CreatedAt:       e.OccurredAt(),
	})
	if err != nil {
		m.log.WithContext(ctx).DatabaseError("record_merge", err)
	}
	return err
}

// Compile-time checks
var (
	_ apphttp.Module = (*Module)(nil)
	_ Service        = (*Module)(nil)
)
