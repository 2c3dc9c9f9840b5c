package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL lead store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	l.id::text, l.name, l.phone, l.attributes, l.status, l.assignee_ids, l.attachments, l.created_at,
	ARRAY(SELECT o.id FROM orders o WHERE o.lead_id = l.id ORDER BY o.id),
	ARRAY(SELECT a.id FROM activities a WHERE a.lead_id = l.id ORDER BY a.id)`

// GetLead returns a lead with its order and activity ids.
func (r *Repository) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return domain.Lead{}, ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, leadID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// ListLeads returns every lead, oldest first. Detection depends on this order
// to pick group masters.
func (r *Repository) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads l ORDER BY l.created_at ASC, l.id ASC`)
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
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// CreateLead inserts a lead and links the listed orders and activities to it.
func (r *Repository) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	leadID := uuid.New()
	if lead.ID != "" {
		parsed, err := uuid.Parse(lead.ID)
		if err != nil {
			return domain.Lead{}, fmt.Errorf("invalid lead id %q: %w", lead.ID, err)
		}
		leadID = parsed
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	attrs, attachments, err := EncodeJSONColumns(lead.Attributes, lead.Attachments)
	if err != nil {
		return domain.Lead{}, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO leads (id, name, phone, attributes, status, assignee_ids, attachments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, leadID, lead.Name, lead.Phone, attrs, lead.Status, nonNil(lead.AssigneeIDs), attachments, lead.CreatedAt); err != nil {
		return domain.Lead{}, err
	}
	if err := linkRelations(ctx, tx, leadID, lead.OrderIDs, lead.ActivityIDs); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}

	lead.ID = leadID.String()
	return lead, nil
}

// UpdateLead writes the update and re-points every listed order and activity
// at the lead, in one transaction.
func (r *Repository) UpdateLead(ctx context.Context, id string, update domain.LeadUpdate) error {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	attrs, attachments, err := EncodeJSONColumns(update.Attributes, update.Attachments)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE leads
		SET name = $2, phone = $3, attributes = $4, status = $5, assignee_ids = $6, attachments = $7, updated_at = now()
		WHERE id = $1
	`, leadID, update.Name, update.Phone, attrs, update.Status, nonNil(update.AssigneeIDs), attachments)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := linkRelations(ctx, tx, leadID, update.OrderIDs, update.ActivityIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteLead removes a lead. Relations still pointing at it are detached by the schema.
func (r *Repository) DeleteLead(ctx context.Context, id string) error {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func linkRelations(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, orderIDs, activityIDs []string) error {
	if len(orderIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (id, lead_id)
			SELECT unnest($2::text[]), $1
			ON CONFLICT (id) DO UPDATE SET lead_id = EXCLUDED.lead_id
		`, leadID, orderIDs); err != nil {
			return err
		}
	}
	if len(activityIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO activities (id, lead_id)
			SELECT unnest($2::text[]), $1
			ON CONFLICT (id) DO UPDATE SET lead_id = EXCLUDED.lead_id
		`, leadID, activityIDs); err != nil {
			return err
		}
	}
	return nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead        domain.Lead
		attrs       []byte
		attachments []byte
	)
	if err := row.Scan(
		&lead.ID, &lead.Name, &lead.Phone, &attrs, &lead.Status, &lead.AssigneeIDs, &attachments, &lead.CreatedAt,
		&lead.OrderIDs, &lead.ActivityIDs,
	); err != nil {
		return domain.Lead{}, err
	}
	if err := DecodeJSONColumns(attrs, attachments, &lead); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// EncodeJSONColumns serializes the attributes and attachments columns.
// The sqlite store keeps the same JSON layout.
func EncodeJSONColumns(attrs map[string]string, attachments []domain.Attachment) ([]byte, []byte, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, nil, err
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return nil, nil, err
	}
	return attrsJSON, attachmentsJSON, nil
}

// DecodeJSONColumns fills lead.Attributes and lead.Attachments from their columns.
func DecodeJSONColumns(attrs, attachments []byte, lead *domain.Lead) error {
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &lead.Attributes); err != nil {
			return fmt.Errorf("decode attributes of lead %s: %w", lead.ID, err)
		}
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &lead.Attachments); err != nil {
			return fmt.Errorf("decode attachments of lead %s: %w", lead.ID, err)
		}
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
