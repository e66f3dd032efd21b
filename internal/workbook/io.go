package workbook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lherron/wbmerge/internal/id"
	"github.com/lherron/wbmerge/internal/parse"
)

// Clone creates a deep copy of the workbook by a save/load round-trip.
func (w *Workbook) Clone() (*Workbook, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}
	return Parse(data)
}

// Parse decodes a workbook from JSON. It does not validate.
func Parse(data []byte) (*Workbook, error) {
	var w Workbook
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}
	w.init()
	return &w, nil
}

// Load reads, parses and validates a workbook file. The file may be JSON or
// YAML; the extension decides, and the content when the extension is unknown.
func Load(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	data, err = parse.ToJSON(data, parse.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}
	w, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workbook %s: %w", path, err)
	}
	return w, nil
}

// Save writes the workbook's canonical JSON to path.
func (w *Workbook) Save(path string) error {
	data, err := CanonicalJSON(w)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExtractSheet returns a one-sheet workbook holding a copy of the sheet and
// the styles it uses. It is the content of a sheet revision.
func (w *Workbook) ExtractSheet(sheetID string) (*Workbook, error) {
	s := w.Sheets[sheetID]
	if s == nil {
		return nil, fmt.Errorf("sheet %s: %w", sheetID, ErrNotFound)
	}
	out := New()
	out.ID = w.ID
	if _, err := out.ImportSheet(w, s); err != nil {
		return nil, err
	}
	if err := out.AppendSheet(sheetID); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks the workbook's structural invariants.
func (w *Workbook) Validate() error {
	if errs := w.Check(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// Check returns every broken structural invariant.
func (w *Workbook) Check() []ValidationError {
	var errs []ValidationError
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// 1. Ids are well formed, match their key and are unique across kinds
	seen := make(map[string]id.Kind)
	claim := func(kind id.Kind, key, elementID string) {
		path := "/" + string(kind) + "/" + key
		if err := id.Validate(key); err != nil {
			add(path, "%v", err)
		}
		if key != elementID {
			add(path, "key does not match id %q", elementID)
		}
		if other, ok := seen[key]; ok {
			add(path, "id also used by a %s", other)
		}
		seen[key] = kind
	}
	for k, s := range w.Sheets {
		claim(id.KindSheet, k, s.ID)
	}
	for k, t := range w.Topics {
		claim(id.KindTopic, k, t.ID)
	}
	for k, s := range w.Summaries {
		claim(id.KindSummary, k, s.ID)
	}
	for k, b := range w.Boundaries {
		claim(id.KindBoundary, k, b.ID)
	}
	for k, r := range w.Relationships {
		claim(id.KindRelationship, k, r.ID)
	}
	for k, s := range w.StyleSheet.Styles {
		claim(id.KindStyle, k, s.ID)
	}

	// 2. Sheets and their roots
	for _, sid := range w.SheetOrder {
		if w.Sheets[sid] == nil {
			add("/sheet_order", "unknown sheet %s", sid)
		}
	}
	for sid, s := range w.Sheets {
		root := w.Topics[s.RootTopicID]
		switch {
		case root == nil:
			add("/sheet/"+sid, "unknown root topic %s", s.RootTopicID)
		case root.ParentID != "":
			add("/sheet/"+sid, "root topic %s has parent %s", root.ID, root.ParentID)
		case root.SheetID != sid:
			add("/sheet/"+sid, "root topic %s belongs to sheet %s", root.ID, root.SheetID)
		}
		for _, rid := range s.RelationshipIDs {
			if r := w.Relationships[rid]; r == nil || r.SheetID != sid {
				add("/sheet/"+sid, "relationship %s not owned by sheet", rid)
			}
		}
	}

	// 3. Parent/child agreement
	for tid, t := range w.Topics {
		path := "/topic/" + tid
		if w.Sheets[t.SheetID] == nil {
			add(path, "unknown sheet %s", t.SheetID)
		}
		if t.ParentID != "" {
			parent := w.Topics[t.ParentID]
			if parent == nil {
				add(path, "unknown parent %s", t.ParentID)
			} else if !contains(parent.ChildIDs, tid) {
				add(path, "parent %s does not list topic as child", t.ParentID)
			}
		}
		for _, cid := range t.ChildIDs {
			if c := w.Topics[cid]; c == nil || c.ParentID != tid {
				add(path, "child %s does not point back to topic", cid)
			}
		}
	}

	// 4. Annotations
	for sid, s := range w.Summaries {
		path := "/summary/" + sid
		parent := w.Topics[s.ParentID]
		if parent == nil || !contains(parent.SummaryIDs, sid) {
			add(path, "not attached to parent %s", s.ParentID)
			continue
		}
		if head := w.Topics[s.TopicID]; head == nil || head.ParentID != s.ParentID || head.Type != TopicSummary {
			add(path, "heading topic %s is not a summary child of %s", s.TopicID, s.ParentID)
		}
		checkSpan(w, s.ParentID, s.StartIndex, s.EndIndex, path, add)
	}
	for bid, b := range w.Boundaries {
		path := "/boundary/" + bid
		parent := w.Topics[b.ParentID]
		if parent == nil || !contains(parent.BoundaryIDs, bid) {
			add(path, "not attached to parent %s", b.ParentID)
			continue
		}
		checkSpan(w, b.ParentID, b.StartIndex, b.EndIndex, path, add)
	}

	// 5. Style groups
	for group, ids := range w.StyleSheet.Groups {
		if !validGroup(group) {
			add("/style_sheet/groups/"+group, "unknown style group")
		}
		for _, sid := range ids {
			if w.StyleSheet.Styles[sid] == nil {
				add("/style_sheet/groups/"+group, "unknown style %s", sid)
			}
		}
	}

	return errs
}

func checkSpan(w *Workbook, parentID string, start, end int, path string, add func(string, string, ...interface{})) {
	n := len(w.ChildrenOfType(parentID, TopicAttached))
	if start < 0 || end < start || end >= n {
		add(path, "range [%d, %d] out of bounds for %d children", start, end, n)
	}
}

func contains(ids []string, want string) bool {
	for _, v := range ids {
		if v == want {
			return true
		}
	}
	return false
}
