package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"crm_backend/internal/leads/domain"
)

type fakeWriter struct {
	bucket      string
	key         string
	contentType string
	body        []byte
	size        int64
	err         error
	calls       int
}

func (f *fakeWriter) PutObject(_ context.Context, bucket, key, contentType string, reader io.Reader, size int64) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.bucket, f.key, f.contentType, f.body, f.size = bucket, key, contentType, data, size
	return nil
}

func TestArchiveDuplicatesWritesSnapshot(t *testing.T) {
	w := &fakeWriter{}
	a := New(w, "lead-merge-archive")
	a.now = func() time.Time { return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC) }

	dups := []domain.Lead{{ID: "d1", Name: "Mario"}, {ID: "d2", Name: "Mario R."}}
	if err := a.ArchiveDuplicates(context.Background(), "m1", dups); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if w.bucket != "lead-merge-archive" || w.contentType != "application/json" {
		t.Fatalf("unexpected target %s (%s)", w.bucket, w.contentType)
	}
	if !strings.HasPrefix(w.key, "merges/m1/20240501T103000Z_") || !strings.HasSuffix(w.key, ".json") {
		t.Fatalf("unexpected key %q", w.key)
	}
	if w.size != int64(len(w.body)) {
		t.Fatalf("size %d does not match body %d", w.size, len(w.body))
	}

	var snap Snapshot
	if err := json.Unmarshal(w.body, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.MasterID != "m1" || len(snap.Duplicates) != 2 || snap.Duplicates[1].ID != "d2" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestArchiveDuplicatesSkipsEmpty(t *testing.T) {
	w := &fakeWriter{}
	if err := New(w, "b").ArchiveDuplicates(context.Background(), "m1", nil); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if w.calls != 0 {
		t.Fatalf("expected no upload, got %d", w.calls)
	}
}

func TestArchiveDuplicatesPropagatesWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("bucket gone")}
	err := New(w, "b").ArchiveDuplicates(context.Background(), "m1", []domain.Lead{{ID: "d1"}})
	if err == nil {
		t.Fatalf("expected error")
	}
}
