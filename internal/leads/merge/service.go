// Package merge consolidates a group of duplicate leads into one surviving master.
// It is the only part of the dedup workflow that mutates the record store.
package merge

import (
	"context"
	"log/slog"
	"strings"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/domain"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel duplicate fetches and deletes.
const DefaultConcurrency = 4

// LeadStore is the record store as seen by the merge service.
// This is a consumer-driven interface - only what merge needs.
type LeadStore interface {
	GetLead(ctx context.Context, id string) (domain.Lead, error)
	UpdateLead(ctx context.Context, id string, update domain.LeadUpdate) error
	DeleteLead(ctx context.Context, id string) error
}

// CacheInvalidator drops cached lead listings.
type CacheInvalidator interface {
	InvalidateLeadListings(ctx context.Context) error
}

// Archiver keeps a copy of duplicates before they are deleted.
type Archiver interface {
	ArchiveDuplicates(ctx context.Context, masterID string, duplicates []domain.Lead) error
}

// Request names the master and the duplicates to fold into it.
type Request struct {
	MasterID           string
	DuplicateIDs       []string
	SelectedStatus     string
	SelectedAssigneeID string
	ActorID            string
}

// PreservedRelations counts the relation ids the master holds after a merge.
type PreservedRelations struct {
	Orders     int `json:"orders"`
	Activities int `json:"activities"`
}

// Outcome describes what a merge did. Partial results are not errors:
// SkippedIDs were never read and FailedDeleteIDs are still in the store.
type Outcome struct {
	MergedLeadID       string             `json:"mergedLeadId"`
	MergedCount        int                `json:"mergedCount"`
	PreservedRelations PreservedRelations `json:"preservedRelations"`
	Requested          int                `json:"requested"`
	MergedIDs          []string           `json:"mergedIds"`
	SkippedIDs         []string           `json:"skippedIds"`
	FailedDeleteIDs    []string           `json:"failedDeleteIds"`
}

// Service runs merges against a LeadStore.
type Service struct {
	store       LeadStore
	policy      Policy
	log         *logger.Logger
	invalidator CacheInvalidator
	archiver    Archiver
	eventBus    events.Bus
	concurrency int
}

// New creates a merge service. Optional collaborators are attached with the setters.
func New(store LeadStore, policy Policy, log *logger.Logger) *Service {
	return &Service{
		store:       store,
		policy:      policy,
		log:         log,
		concurrency: DefaultConcurrency,
	}
}

// SetCacheInvalidator wires the listing cache collaborator.
func (s *Service) SetCacheInvalidator(invalidator CacheInvalidator) {
	s.invalidator = invalidator
}

// SetArchiver wires the duplicate archive.
func (s *Service) SetArchiver(archiver Archiver) {
	s.archiver = archiver
}

// SetEventBus wires the bus LeadsMerged is published on.
func (s *Service) SetEventBus(bus events.Bus) {
	s.eventBus = bus
}

// SetConcurrency bounds parallel fetches and deletes. Values below 1 are ignored.
func (s *Service) SetConcurrency(n int) {
	if n >= 1 {
		s.concurrency = n
	}
}

// Policy returns the consolidation table in use.
func (s *Service) Policy() Policy {
	return s.policy
}

// group is the working set of a merge after the read phase.
type group struct {
	master     domain.Lead
	duplicates []domain.Lead
	skippedIDs []string
	requested  int
}

// Merge folds req.DuplicateIDs into req.MasterID.
//
// The master is written exactly once. If that write fails nothing is deleted
// and the error is returned. Duplicate fetches and deletes that fail are
// logged and reported in the Outcome instead.
func (s *Service) Merge(ctx context.Context, req Request) (Outcome, error) {
	const op = "merge.Merge"

	req, err := normalizeRequest(req)
	if err != nil {
		return Outcome{}, err.WithOp(op)
	}

	g, err := s.load(ctx, req)
	if err != nil {
		return Outcome{}, err.WithOp(op)
	}
	if err := validateSelection(req, g); err != nil {
		return Outcome{}, err.WithOp(op)
	}

	consolidated := Consolidate(g.master, g.duplicates, s.policy, Selection{
		Status:     req.SelectedStatus,
		AssigneeID: req.SelectedAssigneeID,
	})

	if err := s.store.UpdateLead(ctx, g.master.ID, domain.NewLeadUpdate(consolidated)); err != nil {
		s.log.MergeStep("update_master", g.master.ID, g.master.ID, err)
		return Outcome{}, apperr.Wrap(apperr.KindInternal, "failed to update master lead", err).WithOp(op)
	}
	s.log.MergeStep("update_master", g.master.ID, g.master.ID, nil)

	s.archive(ctx, g)
	mergedIDs, failedIDs := s.deleteDuplicates(ctx, g)
	s.invalidate(ctx)

	outcome := Outcome{
		MergedLeadID: g.master.ID,
		MergedCount:  len(mergedIDs),
		PreservedRelations: PreservedRelations{
			Orders:     len(consolidated.OrderIDs),
			Activities: len(consolidated.ActivityIDs),
		},
		Requested:       g.requested,
		MergedIDs:       mergedIDs,
		SkippedIDs:      g.skippedIDs,
		FailedDeleteIDs: failedIDs,
	}

	s.log.WithContext(ctx).Info("leads merged",
		slog.String("master_id", outcome.MergedLeadID),
		slog.Int("merged", outcome.MergedCount),
		slog.Int("requested", outcome.Requested),
		slog.Int("orders", outcome.PreservedRelations.Orders),
		slog.Int("activities", outcome.PreservedRelations.Activities),
	)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadsMerged{
			BaseEvent:       events.NewBaseEvent(),
			MasterID:        outcome.MergedLeadID,
			MergedIDs:       outcome.MergedIDs,
			SkippedIDs:      outcome.SkippedIDs,
			FailedDeleteIDs: outcome.FailedDeleteIDs,
			Orders:          outcome.PreservedRelations.Orders,
			Activities:      outcome.PreservedRelations.Activities,
			ActorID:         req.ActorID,
		})
	}

	return outcome, nil
}

// normalizeRequest trims ids and collapses repeated duplicates. It never
// touches the store.
func normalizeRequest(req Request) (Request, *apperr.Error) {
	req.MasterID = strings.TrimSpace(req.MasterID)
	if req.MasterID == "" {
		return req, apperr.Validation("masterId is required")
	}

	seen := make(map[string]bool, len(req.DuplicateIDs))
	ids := make([]string, 0, len(req.DuplicateIDs))
	for _, id := range req.DuplicateIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if id == req.MasterID {
			return req, apperr.Validation("masterId cannot be listed as a duplicate").
				WithDetails(map[string]string{"duplicateIds": id})
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return req, apperr.Validation("duplicateIds must contain at least one id")
	}
	req.DuplicateIDs = ids
	req.SelectedStatus = strings.TrimSpace(req.SelectedStatus)
	req.SelectedAssigneeID = strings.TrimSpace(req.SelectedAssigneeID)
	return req, nil
}

// load reads the master, then every duplicate in parallel. Duplicates that
// cannot be read are skipped; the merge continues with the rest.
func (s *Service) load(ctx context.Context, req Request) (group, *apperr.Error) {
	master, err := s.store.GetLead(ctx, req.MasterID)
	if err != nil {
		s.log.MergeStep("fetch_master", req.MasterID, req.MasterID, err)
		return group{}, apperr.Wrap(apperr.KindNotFound, "master lead not found", err)
	}

	fetched := make([]*domain.Lead, len(req.DuplicateIDs))
	var eg errgroup.Group
	eg.SetLimit(s.concurrency)
	for i, id := range req.DuplicateIDs {
		eg.Go(func() error {
			lead, err := s.store.GetLead(ctx, id)
			if err != nil {
				s.log.MergeStep("fetch_duplicate", req.MasterID, id, err)
				return nil
			}
			fetched[i] = &lead
			return nil
		})
	}
	_ = eg.Wait()

	g := group{master: master, requested: len(req.DuplicateIDs), skippedIDs: make([]string, 0)}
	for i, lead := range fetched {
		if lead == nil {
			g.skippedIDs = append(g.skippedIDs, req.DuplicateIDs[i])
			continue
		}
		g.duplicates = append(g.duplicates, *lead)
	}
	if len(g.duplicates) == 0 {
		return group{}, apperr.NotFound("no duplicate leads found").
			WithDetails(map[string][]string{"skippedIds": g.skippedIDs})
	}
	return g, nil
}

// validateSelection accepts only values already present in the group.
func validateSelection(req Request, g group) *apperr.Error {
	if req.SelectedStatus != "" && !containsString(uniqueStates(g.master, g.duplicates), req.SelectedStatus) {
		return apperr.Validation("selected status is not held by any lead in the group").
			WithDetails(map[string]string{"selectedStatus": req.SelectedStatus})
	}
	if req.SelectedAssigneeID != "" && !containsString(uniqueAssignees(g.master, g.duplicates), req.SelectedAssigneeID) {
		return apperr.Validation("selected assignee is not assigned to any lead in the group").
			WithDetails(map[string]string{"selectedAssigneeId": req.SelectedAssigneeID})
	}
	return nil
}

func (s *Service) archive(ctx context.Context, g group) {
	if s.archiver == nil {
		return
	}
	err := s.archiver.ArchiveDuplicates(ctx, g.master.ID, g.duplicates)
	s.log.MergeStep("archive_duplicates", g.master.ID, g.master.ID, err)
}

// deleteDuplicates deletes each duplicate independently. There is no retry
// and no rollback: the master already holds every relation.
func (s *Service) deleteDuplicates(ctx context.Context, g group) (merged, failed []string) {
	errs := make([]error, len(g.duplicates))
	var eg errgroup.Group
	eg.SetLimit(s.concurrency)
	for i, d := range g.duplicates {
		eg.Go(func() error {
			errs[i] = s.store.DeleteLead(ctx, d.ID)
			s.log.MergeStep("delete_duplicate", g.master.ID, d.ID, errs[i])
			return nil
		})
	}
	_ = eg.Wait()

	merged = make([]string, 0, len(g.duplicates))
	failed = make([]string, 0)
	for i, d := range g.duplicates {
		if errs[i] != nil {
			failed = append(failed, d.ID)
			continue
		}
		merged = append(merged, d.ID)
	}
	return merged, failed
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateLeadListings(ctx); err != nil {
		s.log.WithContext(ctx).Warn("lead listing invalidation failed", slog.String("error", err.Error()))
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
