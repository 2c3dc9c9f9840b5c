package repository

import (
	"context"
	"errors"
	"time"

	"crm_backend/internal/leads/domain"
)

// ErrNotFound is returned when a lead id does not exist.
var ErrNotFound = errors.New("lead not found")

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, id string) (domain.Lead, error)
	ListLeads(ctx context.Context) ([]domain.Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	UpdateLead(ctx context.Context, id string, update domain.LeadUpdate) error
	DeleteLead(ctx context.Context, id string) error
}

// MergeLog records completed merges.
type MergeLog interface {
	RecordMerge(ctx context.Context, entry MergeLogEntry) error
	ListMerges(ctx context.Context, limit int) ([]MergeLogEntry, error)
}

// MetricsReader aggregates dedup KPIs.
type MetricsReader interface {
	GetMetrics(ctx context.Context) (MergeMetrics, error)
}

// LeadsRepository is the complete store used by the leads module.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	MergeLog
	MetricsReader
}

// MergeMetrics summarizes the store and its merge history.
// OrphanedRelations counts orders and activities whose lead is gone.
type MergeMetrics struct {
	TotalLeads        int   `json:"totalLeads"`
	Merges            int   `json:"merges"`
	MergedLeads       int64 `json:"mergedLeads"`
	FailedDeletes     int64 `json:"failedDeletes"`
	OrphanedRelations int   `json:"orphanedRelations"`
}

// MergeLogEntry is one row of the merge audit log.
type MergeLogEntry struct {
	ID              string    `json:"id"`
	MasterID        string    `json:"masterId"`
	MergedIDs       []string  `json:"mergedIds"`
	SkippedIDs      []string  `json:"skippedIds"`
	FailedDeleteIDs []string  `json:"failedDeleteIds"`
	Orders          int       `json:"orders"`
	Activities      int       `json:"activities"`
	ActorID         string    `json:"actorId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DefaultMergeLogLimit caps ListMerges when the caller passes no limit.
const DefaultMergeLogLimit = 50

// ClampLimit applies DefaultMergeLogLimit and an upper bound of 500.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultMergeLogLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
