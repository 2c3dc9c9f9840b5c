package sqlitestore

import (
	"context"
	"time"

	"crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// RecordMerge appends an entry to the merge audit log.
func (s *Store) RecordMerge(ctx context.Context, entry repository.MergeLogEntry) error {
	merged, err := encodeIDs(entry.MergedIDs)
	if err != nil {
		return err
	}
	skipped, err := encodeIDs(entry.SkippedIDs)
	if err != nil {
		return err
	}
	failed, err := encodeIDs(entry.FailedDeleteIDs)
	if err != nil {
		return err
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// Redelivered events carry the same id and are dropped.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lead_merge_log
			(id, master_id, merged_ids, skipped_ids, failed_delete_ids, orders_count, activities_count, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, entry.MasterID, merged, skipped, failed, entry.Orders, entry.Activities, entry.ActorID,
		createdAt.UTC().Format(timeLayout))
	return err
}

// ListMerges returns the most recent merges first.
func (s *Store) ListMerges(ctx context.Context, limit int) ([]repository.MergeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, master_id, merged_ids, skipped_ids, failed_delete_ids, orders_count, activities_count, actor_id, created_at
		FROM lead_merge_log
		ORDER BY created_at DESC
		LIMIT ?
	`, repository.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]repository.MergeLogEntry, 0)
	for rows.Next() {
		var (
			e                       repository.MergeLogEntry
			merged, skipped, failed string
			created                 string
		)
		if err := rows.Scan(&e.ID, &e.MasterID, &merged, &skipped, &failed, &e.Orders, &e.Activities, &e.ActorID, &created); err != nil {
			return nil, err
		}
		if e.MergedIDs, err = decodeIDs(merged); err != nil {
			return nil, err
		}
		if e.SkippedIDs, err = decodeIDs(skipped); err != nil {
			return nil, err
		}
		if e.FailedDeleteIDs, err = decodeIDs(failed); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
