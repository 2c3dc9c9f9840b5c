// Package archive keeps a JSON snapshot of every duplicate removed by a merge,
// so a merge can be audited or reverted by hand.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

const contentTypeJSON = "application/json"

// ObjectWriter stores one object in a bucket.
type ObjectWriter interface {
	PutObject(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error
}

// Snapshot is the archived document.
type Snapshot struct {
	MasterID   string        `json:"masterId"`
	ArchivedAt time.Time     `json:"archivedAt"`
	Duplicates []domain.Lead `json:"duplicates"`
}

// Archiver writes merge snapshots to object storage.
type Archiver struct {
	writer ObjectWriter
	bucket string
	now    func() time.Time
}

func New(writer ObjectWriter, bucket string) *Archiver {
	return &Archiver{writer: writer, bucket: bucket, now: time.Now}
}

// ArchiveDuplicates uploads the duplicates about to be deleted in favor of masterID.
func (a *Archiver) ArchiveDuplicates(ctx context.Context, masterID string, duplicates []domain.Lead) error {
	if len(duplicates) == 0 {
		return nil
	}

	snap := Snapshot{
		MasterID:   masterID,
		ArchivedAt: a.now().UTC(),
		Duplicates: duplicates,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode merge snapshot: %w", err)
	}

	key := ObjectKey(masterID, snap.ArchivedAt)
	return a.writer.PutObject(ctx, a.bucket, key, contentTypeJSON, bytes.NewReader(data), int64(len(data)))
}

// ObjectKey places snapshots under merges/<master>/ so listing a prefix shows a lead's merge history.
func ObjectKey(masterID string, at time.Time) string {
	name := fmt.Sprintf("%s_%s.json", at.UTC().Format("20060102T150405Z"), uuid.New().String()[:8])
	return path.Join("merges", masterID, name)
}
