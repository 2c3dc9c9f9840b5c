package sqlitestore

import (
	"context"

	"crm_backend/internal/leads/repository"
)

// GetMetrics returns dedup KPIs. Id arrays are JSON text, counted with json_array_length.
func (s *Store) GetMetrics(ctx context.Context) (repository.MergeMetrics, error) {
	var metrics repository.MergeMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM leads),
			(SELECT COUNT(*) FROM lead_merge_log),
			COALESCE((SELECT SUM(json_array_length(merged_ids)) FROM lead_merge_log), 0),
			COALESCE((SELECT SUM(json_array_length(failed_delete_ids)) FROM lead_merge_log), 0),
			(SELECT COUNT(*) FROM orders WHERE lead_id IS NULL) +
			(SELECT COUNT(*) FROM activities WHERE lead_id IS NULL)
	`).Scan(
		&metrics.TotalLeads,
		&metrics.Merges,
		&metrics.MergedLeads,
		&metrics.FailedDeletes,
		&metrics.OrphanedRelations,
	)
	if err != nil {
		return repository.MergeMetrics{}, err
	}
	return metrics, nil
}
