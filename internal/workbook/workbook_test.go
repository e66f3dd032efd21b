package workbook

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// buildTree creates a workbook with one sheet: root -> a, b, c; a -> a1.
func buildTree(t *testing.T) (*Workbook, *Sheet, map[string]*Topic) {
	t.Helper()
	w := New()
	s := w.AddSheet("Sheet 1")
	root := w.RootTopic(s.ID)
	topics := map[string]*Topic{"root": root}
	for _, title := range []string{"a", "b", "c"} {
		tp, err := w.AddTopic(root.ID, title)
		if err != nil {
			t.Fatalf("AddTopic(%s) failed: %v", title, err)
		}
		topics[title] = tp
	}
	a1, err := w.AddTopic(topics["a"].ID, "a1")
	if err != nil {
		t.Fatalf("AddTopic(a1) failed: %v", err)
	}
	topics["a1"] = a1
	return w, s, topics
}

func TestAddSheetAndTopics(t *testing.T) {
	w, s, topics := buildTree(t)

	if len(w.SheetList()) != 1 {
		t.Fatalf("expected 1 sheet, got %d", len(w.SheetList()))
	}
	root := w.RootTopic(s.ID)
	if root.Type != TopicRoot {
		t.Errorf("expected root type, got %q", root.Type)
	}
	children := w.Children(root.ID)
	var titles []string
	for _, c := range children {
		titles = append(titles, c.Title)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, titles); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if got := w.SiblingIndex(topics["c"].ID); got != 2 {
		t.Errorf("SiblingIndex(c) = %d, want 2", got)
	}
	if got := w.SiblingIndex(root.ID); got != -1 {
		t.Errorf("SiblingIndex(root) = %d, want -1", got)
	}
	if w.FindTopic(topics["a1"].ID, s.ID) == nil {
		t.Error("FindTopic(a1) returned nil")
	}
	if w.FindTopic(topics["a1"].ID, "other-sheet") != nil {
		t.Error("FindTopic should not find a topic of another sheet")
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestTouchMarksSheet(t *testing.T) {
	w, s, topics := buildTree(t)
	before := s.ModifiedTime
	topicBefore := topics["b"].ModifiedTime

	if err := w.Touch(topics["b"].ID); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if topics["b"].ModifiedTime <= topicBefore {
		t.Error("topic modified time did not advance")
	}
	if s.ModifiedTime <= before {
		t.Error("sheet modified time did not advance")
	}
	if err := w.Touch("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Touch(missing) = %v, want ErrNotFound", err)
	}
}

func TestSummaryIndexesIgnoreHeadingTopics(t *testing.T) {
	w, _, topics := buildTree(t)
	root := topics["root"]

	sum, err := w.AddSummary(root.ID, 0, 1, "a+b")
	if err != nil {
		t.Fatalf("AddSummary failed: %v", err)
	}
	// A topic added after the heading is still index 3 among attached children.
	d, err := w.AddTopic(root.ID, "d")
	if err != nil {
		t.Fatal(err)
	}
	if got := w.SiblingIndex(d.ID); got != 3 {
		t.Errorf("SiblingIndex(d) = %d, want 3", got)
	}
	if got := w.SiblingIndex(sum.TopicID); got != 0 {
		t.Errorf("SiblingIndex(heading) = %d, want 0", got)
	}
	enclosed := w.SummaryTopics(sum)
	if len(enclosed) != 2 || enclosed[0].ID != topics["a"].ID || enclosed[1].ID != topics["b"].ID {
		t.Errorf("unexpected enclosing topics: %v", enclosed)
	}
	if _, err := w.AddBoundary(root.ID, 2, 9); err == nil {
		t.Error("expected out of range boundary to fail")
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestImportTopicCarriesStubChildren(t *testing.T) {
	src, _, topics := buildTree(t)
	dst := New()
	ds := dst.AddSheet("dst")

	imported, err := dst.ImportTopic(src, topics["a"])
	if err != nil {
		t.Fatalf("ImportTopic failed: %v", err)
	}
	if imported.ID != topics["a"].ID {
		t.Errorf("import changed id: %s", imported.ID)
	}
	if imported.ParentID != "" {
		t.Errorf("imported topic should be detached, parent = %s", imported.ParentID)
	}
	if len(dst.Children(imported.ID)) != 1 {
		t.Fatalf("expected stub child to be imported, got %d children", len(dst.Children(imported.ID)))
	}

	if err := dst.AttachChild(dst.RootTopic(ds.ID).ID, imported.ID); err != nil {
		t.Fatalf("AttachChild failed: %v", err)
	}
	if dst.Topic(topics["a1"].ID).SheetID != ds.ID {
		t.Error("AttachChild did not move subtree to destination sheet")
	}
	if err := dst.RemoveChildren(imported.ID); err != nil {
		t.Fatalf("RemoveChildren failed: %v", err)
	}
	if len(dst.Children(imported.ID)) != 0 || dst.Topic(topics["a1"].ID) != nil {
		t.Error("RemoveChildren left children behind")
	}
	if err := dst.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if _, err := dst.ImportTopic(src, topics["a"]); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("second import = %v, want ErrDuplicateID", err)
	}
}

func TestImportTopicCopiesStyles(t *testing.T) {
	src, _, topics := buildTree(t)
	style := &Style{ID: "style-1", Name: "bold", Properties: map[string]string{"fo:font-weight": "bold"}}
	if err := src.AddStyle(AutomaticStyles, style); err != nil {
		t.Fatal(err)
	}
	topics["b"].StyleID = style.ID

	dst := New()
	if _, err := dst.ImportTopic(src, topics["b"]); err != nil {
		t.Fatal(err)
	}
	got := dst.FindStyle("style-1")
	if got == nil {
		t.Fatal("style was not imported")
	}
	if group, _ := dst.StyleGroup("style-1"); group != AutomaticStyles {
		t.Errorf("style imported into %q, want %q", group, AutomaticStyles)
	}
	got.Properties["fo:font-weight"] = "normal"
	if style.Properties["fo:font-weight"] != "bold" {
		t.Error("imported style shares its property map with the source")
	}
}

func TestImportSheet(t *testing.T) {
	src, s, topics := buildTree(t)
	if _, err := src.AddSummary(topics["root"].ID, 1, 2, "b+c"); err != nil {
		t.Fatal(err)
	}
	if _, err := src.AddBoundary(topics["a"].ID, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := src.AddRelationship(s.ID, topics["a1"].ID, topics["c"].ID); err != nil {
		t.Fatal(err)
	}

	dst := New()
	imported, err := dst.ImportSheet(src, s)
	if err != nil {
		t.Fatalf("ImportSheet failed: %v", err)
	}
	if err := dst.AppendSheet(imported.ID); err != nil {
		t.Fatal(err)
	}
	if len(dst.Topics) != len(src.Topics) {
		t.Errorf("expected %d topics, got %d", len(src.Topics), len(dst.Topics))
	}
	if len(dst.Summaries) != 1 || len(dst.Boundaries) != 1 || len(dst.Relationships) != 1 {
		t.Errorf("annotations not copied: %d summaries, %d boundaries, %d relationships",
			len(dst.Summaries), len(dst.Boundaries), len(dst.Relationships))
	}
	if err := dst.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	w, _, topics := buildTree(t)
	topics["a"].Notes = &Notes{
		Plain: "hello",
		Paragraphs: []Paragraph{{Spans: Spans{
			TextSpan{Text: "hello "},
			HyperlinkSpan{Href: "https://example.com", Spans: Spans{TextSpan{Text: "link"}}},
			ImageSpan{Source: "xap:attachments/1.png"},
		}}},
	}

	c, err := w.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if diff := cmp.Diff(w, c); diff != "" {
		t.Errorf("clone differs (-orig +clone):\n%s", diff)
	}
	c.Topic(topics["a"].ID).Title = "changed"
	if topics["a"].Title != "a" {
		t.Error("mutating the clone changed the original")
	}
}

func TestSpansUnknownKind(t *testing.T) {
	var s Spans
	if err := s.UnmarshalJSON([]byte(`[{"kind":"video"}]`)); err == nil {
		t.Error("expected error for unknown span kind")
	}
}

func TestCheckFindsBrokenLinks(t *testing.T) {
	w, _, topics := buildTree(t)
	topics["a1"].ParentID = "missing"
	w.SheetOrder = append(w.SheetOrder, "ghost")

	errs := w.Check()
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 errors, got %v", errs)
	}
	if err := w.Validate(); err == nil {
		t.Error("Validate() should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	w, _, _ := buildTree(t)
	path := filepath.Join(t.TempDir(), "wb.json")
	if err := w.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rev1, err := Rev(w)
	if err != nil {
		t.Fatal(err)
	}
	rev2, err := Rev(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if rev1 != rev2 {
		t.Errorf("revision changed across save/load: %s vs %s", rev1, rev2)
	}
}

func TestLoadYAML(t *testing.T) {
	w, _, topics := buildTree(t)
	topics["a"].Labels = []string{"x", "y"}
	data, err := CanonicalJSON(w)
	if err != nil {
		t.Fatal(err)
	}
	// JSON is YAML; re-encode it in block style.
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	yamlData, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	for _, name := range []string{"wb.yaml", "wb.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, yamlData, 0644); err != nil {
			t.Fatal(err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", name, err)
		}
		if diff := cmp.Diff(w, loaded); diff != "" {
			t.Errorf("%s: loaded workbook differs (-want +got):\n%s", name, diff)
		}
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("- not\n- a workbook\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for a YAML list")
	}
}

func TestCanonicalJSONSortsLabels(t *testing.T) {
	w, _, topics := buildTree(t)
	topics["a"].Labels = []string{"z", "a"}
	data1, err := CanonicalJSON(w)
	if err != nil {
		t.Fatal(err)
	}
	topics["a"].Labels = []string{"a", "z"}
	data2, err := CanonicalJSON(w)
	if err != nil {
		t.Fatal(err)
	}
	if ComputeRev(data1) != ComputeRev(data2) {
		t.Error("label order should not affect the canonical form")
	}
}

func TestExtractSheet(t *testing.T) {
	w, s, _ := buildTree(t)
	other := w.AddSheet("Sheet 2")

	extracted, err := w.ExtractSheet(s.ID)
	if err != nil {
		t.Fatalf("ExtractSheet failed: %v", err)
	}
	if len(extracted.SheetOrder) != 1 || extracted.SheetOrder[0] != s.ID {
		t.Errorf("unexpected sheets: %v", extracted.SheetOrder)
	}
	if extracted.Sheet(other.ID) != nil {
		t.Error("other sheet leaked into extraction")
	}
	if extracted.ID != w.ID {
		t.Errorf("extracted workbook id = %s, want %s", extracted.ID, w.ID)
	}
}
