package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crm_backend/internal/leads/detection"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/merge"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against the sqlite file at dbPath and returns stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--driver", "sqlite", "--sqlite", dbPath, "--policy", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeSeed(t *testing.T, dir string) string {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seed := []domain.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "333 123 4567", CreatedAt: base, OrderIDs: []string{"o1"}},
		{ID: "b", Name: "M. Rossi", Phone: "+39 333 123 4567", CreatedAt: base.Add(time.Hour),
			Attributes: map[string]string{"email": "mario@example.com"}, OrderIDs: []string{"o2"}},
		{ID: "c", Name: "Giulia Bianchi", Phone: "347 000 1111", CreatedAt: base.Add(2 * time.Hour)},
	}
	data, err := json.Marshal(seed)
	require.NoError(t, err)
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestImportScanMerge(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "leads.db")

	out, err := run(t, dbPath, "import", "--file", writeSeed(t, dir))
	require.NoError(t, err)
	require.Contains(t, out, "imported 3 lead(s)")

	out, err = run(t, dbPath, "scan", "--json")
	require.NoError(t, err)
	var report detection.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, 3, report.TotalLeads)
	require.Equal(t, 1, report.Count)
	require.Equal(t, "a", report.Duplicates[0].MasterID)
	require.Equal(t, []string{"b"}, report.Duplicates[0].DuplicateIDs)

	out, err = run(t, dbPath, "merge", "--master", "a", "--duplicates", "b", "--dry-run", "--json")
	require.NoError(t, err)
	var preview merge.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	require.Equal(t, "mario@example.com", preview.Master.Attributes["email"])
	require.Equal(t, 2, preview.PreservedRelations.Orders)

	out, err = run(t, dbPath, "merge", "--master", "a", "--duplicates", "b", "--json")
	require.NoError(t, err)
	var outcome merge.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	require.Equal(t, "a", outcome.MergedLeadID)
	require.Equal(t, 1, outcome.MergedCount)

	out, err = run(t, dbPath, "scan")
	require.NoError(t, err)
	require.Contains(t, out, "0 group(s) across 2 lead(s)")

	out, err = run(t, dbPath, "stats")
	require.NoError(t, err)
	require.Contains(t, out, "leads: 2")
	require.Contains(t, out, "merges: 1 (1 lead(s) folded)")
}

func TestScanTextOutput(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "leads.db")
	_, err := run(t, dbPath, "import", "--file", writeSeed(t, dir))
	require.NoError(t, err)

	out, err := run(t, dbPath, "scan", "--threshold", "0.9")
	require.NoError(t, err)
	require.Contains(t, out, "master a")
	require.Contains(t, out, "  - b  M. Rossi / +393331234567")
	require.Contains(t, out, "leaddedup merge --master")
}

func TestMergeRequiresFlags(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "leads.db"), "merge", "--master", "a")
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicates")
}

func TestMergeUnknownMaster(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "leads.db")
	_, err := run(t, dbPath, "migrate")
	require.NoError(t, err)

	_, err = run(t, dbPath, "merge", "--master", "missing", "--duplicates", "x")
	require.Error(t, err)
}

func TestScanRejectsThresholdOutOfRange(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "leads.db")
	_, err := run(t, dbPath, "migrate")
	require.NoError(t, err)

	_, err = run(t, dbPath, "scan", "--threshold", "1.5")
	require.Error(t, err)

	_, err = run(t, dbPath, "scan", "--threshold", "NaN")
	require.Error(t, err)
}

func TestMigrateReportsDriver(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "leads.db"), "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "sqlite store is up to date")
}

func TestImportRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := run(t, filepath.Join(dir, "leads.db"), "import", "--file", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode")
}
