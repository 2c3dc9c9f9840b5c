// Package leads provides the lead deduplication bounded context.
// This file defines the public API of the context. Other packages (the CLI,
// batch jobs) should depend on Service rather than on the sub-packages.
package leads

import (
	"context"

	"crm_backend/internal/leads/dedup"
	"crm_backend/internal/leads/detection"
	"crm_backend/internal/leads/merge"
)

// Service is the dedup workflow: find groups, fold a group into its master.
type Service interface {
	// Scan detects duplicate groups across every lead.
	Scan(ctx context.Context, opts dedup.Options) (detection.Report, error)
	// Merge folds duplicates into a master and deletes them.
	Merge(ctx context.Context, req merge.Request) (merge.Outcome, error)
	// Preview shows what Merge would write, without writing.
	Preview(ctx context.Context, req merge.Request) (merge.Preview, error)
}
