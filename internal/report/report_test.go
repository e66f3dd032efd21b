package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lherron/wbmerge/internal/merge"
	"github.com/lherron/wbmerge/internal/testutil"
	"github.com/lherron/wbmerge/internal/workbook"
)

func buildConflicted(t *testing.T) *Report {
	t.Helper()
	base := testutil.NewTree(t, "a", "b")
	if err := base.AddStyle(workbook.MasterStyles, &workbook.Style{ID: "m1", Name: "map"}); err != nil {
		t.Fatal(err)
	}
	source, target := testutil.Fork(t, base), testutil.Fork(t, base)

	a := testutil.Topic(t, source, "a")
	a.Title = "alpha\nfrom source"
	a.Notes = &workbook.Notes{Plain: "note"}
	testutil.AssertNoError(t, source.Touch(a.ID))
	ta := target.Topic(a.ID)
	ta.Title = "alpha\nfrom target"
	testutil.AssertNoError(t, target.Touch(ta.ID))
	source.FindStyle("m1").Name = "renamed"

	m, err := merge.New(source, target)
	testutil.AssertNoError(t, err)
	sheets, err := m.MergeSheets()
	testutil.AssertNoError(t, err)
	styles, err := m.MergeStyles()
	testutil.AssertNoError(t, err)

	r, err := Build(m, sheets, styles)
	testutil.AssertNoError(t, err)
	return r
}

func TestBuild(t *testing.T) {
	r := buildConflicted(t)

	want := Counts{Sheets: 1, Topics: 1, Styles: 1}
	if diff := cmp.Diff(want, r.Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(r.RunID, "run-") {
		t.Errorf("unexpected run id %q", r.RunID)
	}
	if !strings.HasPrefix(r.ResultRev, "sha256:") {
		t.Errorf("unexpected result rev %q", r.ResultRev)
	}

	tc := r.Sheets[0].Topics[0]
	if diff := cmp.Diff([]string{"title", "notes"}, tc.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	testutil.AssertStringContains(t, tc.TitleDiff, "-from source")
	testutil.AssertStringContains(t, tc.TitleDiff, "+from target")
	testutil.AssertStringContains(t, tc.NotesDiff, "-note")

	if diff := cmp.Diff([]StyleConflict{{Group: workbook.MasterStyles, ID: "m1", SourceName: "renamed", TargetName: "map"}}, r.Styles); diff != "" {
		t.Errorf("styles mismatch (-want +got):\n%s", diff)
	}
}

func TestRows(t *testing.T) {
	r := buildConflicted(t)
	headers, rows := r.Rows()
	if len(headers) != 4 {
		t.Fatalf("unexpected headers %v", headers)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][1] != "topic" || rows[0][3] != "title,notes" {
		t.Errorf("unexpected topic row %v", rows[0])
	}
	if rows[1][1] != "style" || rows[1][3] != workbook.MasterStyles {
		t.Errorf("unexpected style row %v", rows[1])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	testutil.AssertNoError(t, buildConflicted(t).WriteText(&buf))
	out := buf.String()
	testutil.AssertStringContains(t, out, "topic conflicts: 1")
	testutil.AssertStringContains(t, out, "style conflicts: 1")
	testutil.AssertStringContains(t, out, "    +from target")

	empty := &Report{RunID: "run-x", Counts: Counts{Sheets: 2}}
	buf.Reset()
	testutil.AssertNoError(t, empty.WriteText(&buf))
	testutil.AssertStringContains(t, buf.String(), "no conflicts (2 sheets merged)")
}

func TestUnifiedDiffEqualTexts(t *testing.T) {
	if d := unifiedDiff("same", "same"); d != "" {
		t.Errorf("expected empty diff, got %q", d)
	}
}
