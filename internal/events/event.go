// Package events holds the lead dedup domain events.
// The bus itself lives in platform/events and is aliased here so modules
// import a single package.
package events

import (
	"crm_backend/platform/events"
	"crm_backend/platform/logger"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadsMerged is published after a merge committed its master update,
// whatever happened to the individual duplicate deletes.
type LeadsMerged struct {
	BaseEvent
	MasterID        string   `json:"masterId"`
	MergedIDs       []string `json:"mergedIds"`
	SkippedIDs      []string `json:"skippedIds,omitempty"`
	FailedDeleteIDs []string `json:"failedDeleteIds,omitempty"`
	Orders          int      `json:"orders"`
	Activities      int      `json:"activities"`
	ActorID         string   `json:"actorId,omitempty"`
}

func (e LeadsMerged) EventName() string { return "leads.merged" }
