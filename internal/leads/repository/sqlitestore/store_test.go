package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/db"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	applied, err := db.RunSQLiteMigrations(ctx, conn)
	require.NoError(t, err)
	require.Equal(t, 2, applied)

	return New(conn)
}

var _ repository.LeadsRepository = (*Store)(nil)

func TestCreateAndGetLead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateLead(ctx, domain.Lead{
		Name:        "Mario Rossi",
		Phone:       "333 1234567",
		Attributes:  map[string]string{"email": "mario@example.com"},
		Status:      "new",
		AssigneeIDs: []string{"u1"},
		Attachments: []domain.Attachment{{URL: "https://files/a.pdf", Filename: "a.pdf"}},
		OrderIDs:    []string{"o1", "o2"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := store.GetLead(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Mario Rossi", got.Name)
	require.Equal(t, "mario@example.com", got.Email())
	require.Equal(t, []string{"u1"}, got.AssigneeIDs)
	require.Len(t, got.Attachments, 1)
	require.Equal(t, []string{"o1", "o2"}, got.OrderIDs)
	require.Empty(t, got.ActivityIDs)
	require.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestGetLeadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetLead(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListLeadsOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"Third", "First", "Second"} {
		offset := []int{3, 1, 2}[i]
		_, err := store.CreateLead(ctx, domain.Lead{
			ID:          name,
			Name:        name,
			CreatedAt:   base.Add(time.Duration(offset) * time.Hour),
			ActivityIDs: []string{"act-" + name},
		})
		require.NoError(t, err)
	}

	leads, err := store.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	require.Equal(t, "First", leads[0].ID)
	require.Equal(t, "Second", leads[1].ID)
	require.Equal(t, "Third", leads[2].ID)
	require.Equal(t, []string{"act-First"}, leads[0].ActivityIDs)
}

func TestUpdateLeadMovesRelations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	master, err := store.CreateLead(ctx, domain.Lead{Name: "Master", OrderIDs: []string{"o1"}})
	require.NoError(t, err)
	dup, err := store.CreateLead(ctx, domain.Lead{Name: "Dup", OrderIDs: []string{"o2"}, ActivityIDs: []string{"a1"}})
	require.NoError(t, err)

	err = store.UpdateLead(ctx, master.ID, domain.LeadUpdate{
		Name:        "Master",
		Phone:       "3331234567",
		Attributes:  map[string]string{"city": "Roma"},
		OrderIDs:    []string{"o1", "o2"},
		ActivityIDs: []string{"a1"},
	})
	require.NoError(t, err)

	got, err := store.GetLead(ctx, master.ID)
	require.NoError(t, err)
	require.Equal(t, "3331234567", got.Phone)
	require.Equal(t, "Roma", got.Attributes["city"])
	require.Equal(t, []string{"o1", "o2"}, got.OrderIDs)
	require.Equal(t, []string{"a1"}, got.ActivityIDs)

	require.NoError(t, store.DeleteLead(ctx, dup.ID))
	_, err = store.GetLead(ctx, dup.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, err = store.GetLead(ctx, master.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"o1", "o2"}, got.OrderIDs)
}

func TestUpdateAndDeleteMissingLead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, store.UpdateLead(ctx, "ghost", domain.LeadUpdate{Name: "x"}), repository.ErrNotFound)
	require.ErrorIs(t, store.DeleteLead(ctx, "ghost"), repository.ErrNotFound)
}

func TestDeleteDetachesRelations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lead, err := store.CreateLead(ctx, domain.Lead{Name: "Solo", OrderIDs: []string{"o9"}})
	require.NoError(t, err)
	require.NoError(t, store.DeleteLead(ctx, lead.ID))

	other, err := store.CreateLead(ctx, domain.Lead{Name: "Other"})
	require.NoError(t, err)
	got, err := store.GetLead(ctx, other.ID)
	require.NoError(t, err)
	require.Empty(t, got.OrderIDs)
}

func TestMergeLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordMerge(ctx, repository.MergeLogEntry{
		MasterID:   "m1",
		MergedIDs:  []string{"d1", "d2"},
		SkippedIDs: []string{"d3"},
		Orders:     2,
		ActorID:    "u1",
	}))
	require.NoError(t, store.RecordMerge(ctx, repository.MergeLogEntry{MasterID: "m2"}))

	entries, err := store.ListMerges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var first repository.MergeLogEntry
	for _, e := range entries {
		if e.MasterID == "m1" {
			first = e
		}
	}
	require.Equal(t, []string{"d1", "d2"}, first.MergedIDs)
	require.Equal(t, []string{"d3"}, first.SkippedIDs)
	require.Empty(t, first.FailedDeleteIDs)
	require.Equal(t, 2, first.Orders)
	require.Equal(t, "u1", first.ActorID)
	require.False(t, first.CreatedAt.IsZero())

	limited, err := store.ListMerges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestGetMetrics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.GetMetrics(ctx)
	require.NoError(t, err)
	require.Equal(t, repository.MergeMetrics{}, empty)

	gone, err := store.CreateLead(ctx, domain.Lead{Name: "Gone", OrderIDs: []string{"o1"}, ActivityIDs: []string{"a1"}})
	require.NoError(t, err)
	_, err = store.CreateLead(ctx, domain.Lead{Name: "Kept"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteLead(ctx, gone.ID))

	require.NoError(t, store.RecordMerge(ctx, repository.MergeLogEntry{
		MasterID:        "m1",
		MergedIDs:       []string{"d1", "d2"},
		FailedDeleteIDs: []string{"d3"},
	}))
	require.NoError(t, store.RecordMerge(ctx, repository.MergeLogEntry{MasterID: "m2", MergedIDs: []string{"d4"}}))

	metrics, err := store.GetMetrics(ctx)
	require.NoError(t, err)
	require.Equal(t, repository.MergeMetrics{
		TotalLeads:        1,
		Merges:            2,
		MergedLeads:       3,
		FailedDeletes:     1,
		OrphanedRelations: 2,
	}, metrics)
}

func TestRecordMergeIgnoresRedelivery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	entry := repository.MergeLogEntry{ID: "evt-1", MasterID: "m1", MergedIDs: []string{"d1"}, CreatedAt: at}
	require.NoError(t, store.RecordMerge(ctx, entry))
	require.NoError(t, store.RecordMerge(ctx, entry))

	entries, err := store.ListMerges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "evt-1", entries[0].ID)
	require.True(t, at.Equal(entries[0].CreatedAt))
}
