// Package bundle exports stored workbooks to a directory and reads them back.
//
// A bundle directory holds manifest.json and one canonical JSON file per
// workbook under workbooks/.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lherron/wbmerge/internal/store"
	"github.com/lherron/wbmerge/internal/workbook"
)

// MachineInterfaceVersion is the manifest format written by Create.
const MachineInterfaceVersion = 1

// Manifest represents the bundle manifest.json structure
type Manifest struct {
	MachineInterfaceVersion int     `json:"machine_interface_version"`
	Version                 string  `json:"version,omitempty"`
	Timestamp               string  `json:"timestamp"`
	Pattern                 string  `json:"pattern,omitempty"`
	Workbooks               []Entry `json:"workbooks"`
}

// Entry is one workbook of a bundle. File is relative to the bundle
// directory.
type Entry struct {
	Name string `json:"name"`
	File string `json:"file"`
	Rev  string `json:"rev"`
}

// Bundle is a loaded bundle directory.
type Bundle struct {
	Dir      string
	Manifest *Manifest
}

// Source provides the workbooks to export.
type Source interface {
	List(pattern string) ([]store.Entry, error)
	LoadWorkbook(name string) (*workbook.Workbook, error)
}

// CreateOptions configures bundle creation.
type CreateOptions struct {
	Pattern string // glob of workbook names; empty exports all
	Version string
	Now     func() time.Time
}

// Create writes every workbook of src matching opts.Pattern to dir.
func Create(dir string, src Source, opts CreateOptions) (*Bundle, error) {
	entries, err := src.List(opts.Pattern)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	manifest := &Manifest{
		MachineInterfaceVersion: MachineInterfaceVersion,
		Version:                 opts.Version,
		Timestamp:               now().UTC().Format(time.RFC3339),
		Pattern:                 opts.Pattern,
		Workbooks:               make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		wb, err := src.LoadWorkbook(e.Name)
		if err != nil {
			return nil, err
		}
		rev, err := workbook.Rev(wb)
		if err != nil {
			return nil, err
		}
		rel := filepath.Join("workbooks", e.Name+".json")
		if err := wb.Save(filepath.Join(dir, rel)); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", e.Name, err)
		}
		manifest.Workbooks = append(manifest.Workbooks, Entry{Name: e.Name, File: filepath.ToSlash(rel), Rev: rev})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bundle directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return &Bundle{Dir: dir, Manifest: manifest}, nil
}

// LoadManifest reads and checks manifest.json of a bundle directory.
func LoadManifest(bundleDir string) (*Manifest, error) {
	manifestPath := filepath.Join(bundleDir, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	// Validate machine interface version
	if manifest.MachineInterfaceVersion == 0 {
		return nil, fmt.Errorf("manifest missing machine_interface_version")
	}
	if manifest.MachineInterfaceVersion > MachineInterfaceVersion {
		return nil, fmt.Errorf("manifest version %d is newer than supported version %d",
			manifest.MachineInterfaceVersion, MachineInterfaceVersion)
	}
	seen := make(map[string]bool, len(manifest.Workbooks))
	for _, e := range manifest.Workbooks {
		if e.Name == "" || e.File == "" {
			return nil, fmt.Errorf("manifest entry missing name or file")
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("manifest lists %s twice", e.Name)
		}
		seen[e.Name] = true
	}

	return &manifest, nil
}

// Load opens a bundle directory.
func Load(bundleDir string) (*Bundle, error) {
	manifest, err := LoadManifest(bundleDir)
	if err != nil {
		return nil, err
	}
	return &Bundle{Dir: bundleDir, Manifest: manifest}, nil
}

// Entry returns the manifest entry named name.
func (b *Bundle) Entry(name string) (Entry, bool) {
	for _, e := range b.Manifest.Workbooks {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Workbook loads the workbook of e and checks it still has the exported
// revision.
func (b *Bundle) Workbook(e Entry) (*workbook.Workbook, error) {
	wb, err := workbook.Load(filepath.Join(b.Dir, filepath.FromSlash(e.File)))
	if err != nil {
		return nil, err
	}
	if e.Rev == "" {
		return wb, nil
	}
	rev, err := workbook.Rev(wb)
	if err != nil {
		return nil, err
	}
	if rev != e.Rev {
		return nil, fmt.Errorf("%s: content rev %s does not match manifest rev %s", e.File, rev, e.Rev)
	}
	return wb, nil
}
