package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordMerge appends an entry to the merge audit log.
func (r *Repository) RecordMerge(ctx context.Context, entry MergeLogEntry) error {
	masterID, err := uuid.Parse(entry.MasterID)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		id = uuid.New()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_merge_log
			(id, master_id, merged_ids, skipped_ids, failed_delete_ids, orders_count, activities_count, actor_id, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, id, masterID, nonNil(entry.MergedIDs), nonNil(entry.SkippedIDs), nonNil(entry.FailedDeleteIDs),
		entry.Orders, entry.Activities, entry.ActorID, createdAt)
	return err
}

// ListMerges returns the most recent merges first.
func (r *Repository) ListMerges(ctx context.Context, limit int) ([]MergeLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, master_id::text, merged_ids, skipped_ids, failed_delete_ids,
			orders_count, activities_count, actor_id, created_at
		FROM lead_merge_log
		ORDER BY created_at DESC
		LIMIT $1
	`, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]MergeLogEntry, 0)
	for rows.Next() {
		var e MergeLogEntry
		if err := rows.Scan(&e.ID, &e.MasterID, &e.MergedIDs, &e.SkippedIDs, &e.FailedDeleteIDs,
			&e.Orders, &e.Activities, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
