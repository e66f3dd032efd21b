package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lherron/wbmerge/internal/testutil"
	"github.com/lherron/wbmerge/internal/workbook"
)

func TestLoadManifest(t *testing.T) {
	tmpDir := t.TempDir()

	manifestPath := filepath.Join(tmpDir, "manifest.json")
	manifest := `{
		"machine_interface_version": 1,
		"version": "0.1.0",
		"timestamp": "2025-11-20T12:00:00Z",
		"workbooks": [{"name": "plan", "file": "workbooks/plan.json", "rev": "abc"}]
	}`
	if err := os.WriteFile(manifestPath, []byte(manifest), 0644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	m, err := LoadManifest(tmpDir)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.Version != "0.1.0" {
		t.Errorf("Expected version 0.1.0, got %s", m.Version)
	}
	if len(m.Workbooks) != 1 || m.Workbooks[0].Name != "plan" {
		t.Errorf("unexpected workbooks: %+v", m.Workbooks)
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{name: "missing version", manifest: `{"timestamp": "2025-11-20T12:00:00Z"}`, wantErr: "machine_interface_version"},
		{name: "newer version", manifest: `{"machine_interface_version": 9}`, wantErr: "newer"},
		{
			name:     "duplicate entry",
			manifest: `{"machine_interface_version": 1, "workbooks": [{"name": "a", "file": "a.json"}, {"name": "a", "file": "b.json"}]}`,
			wantErr:  "twice",
		},
		{
			name:     "entry without file",
			manifest: `{"machine_interface_version": 1, "workbooks": [{"name": "a"}]}`,
			wantErr:  "missing name or file",
		},
		{name: "malformed", manifest: `{`, wantErr: "failed to parse manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			testutil.WriteFile(t, dir, "manifest.json", tt.manifest)
			_, err := LoadManifest(dir)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := LoadManifest(t.TempDir()); err == nil {
		t.Error("expected error for a directory without manifest")
	}
}

func TestCreateAndLoad(t *testing.T) {
	s, _ := testutil.TempStore(t)
	plan := testutil.NewTree(t, "a", "b")
	other := testutil.NewTree(t, "x")
	for name, wb := range map[string]*workbook.Workbook{"plan": plan, "other": other} {
		if _, err := s.SaveWorkbook(name, wb); err != nil {
			t.Fatal(err)
		}
	}

	dir := filepath.Join(t.TempDir(), "out")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	created, err := Create(dir, s, CreateOptions{Pattern: "pl*", Version: "1.2.3", Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Manifest.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamp %s", created.Manifest.Timestamp)
	}

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(created.Manifest, b.Manifest); diff != "" {
		t.Errorf("manifest mismatch (-created +loaded):\n%s", diff)
	}
	if len(b.Manifest.Workbooks) != 1 {
		t.Fatalf("pattern should select one workbook, got %+v", b.Manifest.Workbooks)
	}

	entry, ok := b.Entry("plan")
	if !ok {
		t.Fatal("expected entry for plan")
	}
	if entry.File != "workbooks/plan.json" {
		t.Errorf("unexpected file %s", entry.File)
	}
	wb, err := b.Workbook(entry)
	if err != nil {
		t.Fatalf("Workbook failed: %v", err)
	}
	if diff := cmp.Diff(plan, wb); diff != "" {
		t.Errorf("exported workbook differs (-stored +exported):\n%s", diff)
	}
	if _, ok := b.Entry("other"); ok {
		t.Error("other should not be exported")
	}
}

func TestWorkbookRevMismatch(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "plan.json", testutil.NewTree(t, "a"))
	b := &Bundle{Dir: dir, Manifest: &Manifest{MachineInterfaceVersion: 1}}

	if _, err := b.Workbook(Entry{Name: "plan", File: "plan.json", Rev: "stale"}); err == nil {
		t.Error("expected rev mismatch error")
	}
	if _, err := b.Workbook(Entry{Name: "plan", File: "plan.json"}); err != nil {
		t.Errorf("entry without rev should load: %v", err)
	}
}
