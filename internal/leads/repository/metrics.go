package repository

import "context"

// GetMetrics returns dedup KPIs across the store and the merge audit log.
func (r *Repository) GetMetrics(ctx context.Context) (MergeMetrics, error) {
	var metrics MergeMetrics
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM leads) AS total_leads,
			(SELECT COUNT(*) FROM lead_merge_log) AS merges,
			COALESCE((
				SELECT SUM(cardinality(merged_ids))
				FROM lead_merge_log
			), 0) AS merged_leads,
			COALESCE((
				SELECT SUM(cardinality(failed_delete_ids))
				FROM lead_merge_log
			), 0) AS failed_deletes,
			(
				(SELECT COUNT(*) FROM orders WHERE lead_id IS NULL) +
				(SELECT COUNT(*) FROM activities WHERE lead_id IS NULL)
			) AS orphaned_relations
	`).Scan(
		&metrics.TotalLeads,
		&metrics.Merges,
		&metrics.MergedLeads,
		&metrics.FailedDeletes,
		&metrics.OrphanedRelations,
	)
	if err != nil {
		return MergeMetrics{}, err
	}
	return metrics, nil
}
