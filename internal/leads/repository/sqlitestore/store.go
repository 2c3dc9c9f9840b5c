// Package sqlitestore is the SQLite lead store, for single-node deployments
// and the batch CLI. It mirrors the PostgreSQL repository's behavior.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Store implements repository.LeadsRepository on database/sql with modernc sqlite.
type Store struct {
	db *sql.DB
}

// New wraps an open sqlite handle. Migrations must already be applied.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// timeLayout is fixed-width so TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectLead = `SELECT id, name, phone, attributes, status, assignee_ids, attachments, created_at FROM leads`

// GetLead returns a lead with its order and activity ids.
func (s *Store) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	row := s.db.QueryRowContext(ctx, selectLead+` WHERE id = ?`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lead{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	if lead.OrderIDs, err = s.relationIDs(ctx, "orders", id); err != nil {
		return domain.Lead{}, err
	}
	if lead.ActivityIDs, err = s.relationIDs(ctx, "activities", id); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// ListLeads returns every lead, oldest first.
func (s *Store) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := s.db.QueryContext(ctx, selectLead+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orders, err := s.allRelations(ctx, "orders")
	if err != nil {
		return nil, err
	}
	activities, err := s.allRelations(ctx, "activities")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].OrderIDs = orders[items[i].ID]
		items[i].ActivityIDs = activities[items[i].ID]
	}
	return items, nil
}

// CreateLead inserts a lead and links the listed orders and activities to it.
func (s *Store) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	attrs, attachments, assignees, err := encodeColumns(lead.Attributes, lead.Attachments, lead.AssigneeIDs)
	if err != nil {
		return domain.Lead{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback() }()

	created := lead.CreatedAt.UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leads (id, name, phone, attributes, status, assignee_ids, attachments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lead.ID, lead.Name, lead.Phone, attrs, lead.Status, assignees, attachments, created, created); err != nil {
		return domain.Lead{}, err
	}
	if err := linkRelations(ctx, tx, lead.ID, lead.OrderIDs, lead.ActivityIDs); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// UpdateLead writes the update and re-points every listed order and activity
// at the lead, in one transaction.
func (s *Store) UpdateLead(ctx context.Context, id string, update domain.LeadUpdate) error {
	attrs, attachments, assignees, err := encodeColumns(update.Attributes, update.Attachments, update.AssigneeIDs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE leads
		SET name = ?, phone = ?, attributes = ?, status = ?, assignee_ids = ?, attachments = ?, updated_at = ?
		WHERE id = ?
	`, update.Name, update.Phone, attrs, update.Status, assignees, attachments, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return repository.ErrNotFound
	}

	if err := linkRelations(ctx, tx, id, update.OrderIDs, update.ActivityIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteLead removes a lead. Relations still pointing at it are detached by the schema.
func (s *Store) DeleteLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// relationTables guards the table names interpolated into relation queries.
var relationTables = map[string]bool{"orders": true, "activities": true}

func (s *Store) relationIDs(ctx context.Context, table, leadID string) ([]string, error) {
	if !relationTables[table] {
		return nil, fmt.Errorf("unknown relation table %q", table)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM `+table+` WHERE lead_id = ? ORDER BY id`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) allRelations(ctx context.Context, table string) (map[string][]string, error) {
	if !relationTables[table] {
		return nil, fmt.Errorf("unknown relation table %q", table)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT lead_id, id FROM `+table+` WHERE lead_id IS NOT NULL ORDER BY lead_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var leadID, id string
		if err := rows.Scan(&leadID, &id); err != nil {
			return nil, err
		}
		out[leadID] = append(out[leadID], id)
	}
	return out, rows.Err()
}

func linkRelations(ctx context.Context, tx *sql.Tx, leadID string, orderIDs, activityIDs []string) error {
	for table, ids := range map[string][]string{"orders": orderIDs, "activities": activityIDs} {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO `+table+` (id, lead_id) VALUES (?, ?)
				ON CONFLICT (id) DO UPDATE SET lead_id = excluded.lead_id
			`, id, leadID); err != nil {
				return err
			}
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (domain.Lead, error) {
	var (
		lead        domain.Lead
		attrs       string
		assignees   string
		attachments string
		created     string
	)
	if err := row.Scan(&lead.ID, &lead.Name, &lead.Phone, &attrs, &lead.Status, &assignees, &attachments, &created); err != nil {
		return domain.Lead{}, err
	}
	if err := repository.DecodeJSONColumns([]byte(attrs), []byte(attachments), &lead); err != nil {
		return domain.Lead{}, err
	}
	if strings.TrimSpace(assignees) != "" {
		if err := json.Unmarshal([]byte(assignees), &lead.AssigneeIDs); err != nil {
			return domain.Lead{}, fmt.Errorf("decode assignees of lead %s: %w", lead.ID, err)
		}
	}
	createdAt, err := time.Parse(timeLayout, created)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("decode created_at of lead %s: %w", lead.ID, err)
	}
	lead.CreatedAt = createdAt
	return lead, nil
}

func encodeColumns(attrs map[string]string, attachments []domain.Attachment, assignees []string) (string, string, string, error) {
	attrsJSON, attachmentsJSON, err := repository.EncodeJSONColumns(attrs, attachments)
	if err != nil {
		return "", "", "", err
	}
	assigneesJSON, err := encodeIDs(assignees)
	if err != nil {
		return "", "", "", err
	}
	return string(attrsJSON), string(attachmentsJSON), assigneesJSON, nil
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	return string(data), err
}

func decodeIDs(raw string) ([]string, error) {
	ids := make([]string, 0)
	if strings.TrimSpace(raw) == "" {
		return ids, nil
	}
	err := json.Unmarshal([]byte(raw), &ids)
	return ids, err
}
