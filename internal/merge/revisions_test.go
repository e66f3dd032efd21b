package merge

import (
	"testing"

	"github.com/lherron/wbmerge/internal/testutil"
	"github.com/lherron/wbmerge/internal/workbook"
)

func revision(t *testing.T, w *workbook.Workbook) *Revision {
	t.Helper()
	sheet := testutil.FirstSheet(t, w)
	content, err := w.ExtractSheet(sheet.ID)
	if err != nil {
		t.Fatalf("ExtractSheet failed: %v", err)
	}
	r, err := NewRevision(content, sheet.ID)
	if err != nil {
		t.Fatalf("NewRevision failed: %v", err)
	}
	return r
}

func TestPairRevisions(t *testing.T) {
	w := testutil.NewTree(t, "a")
	r1 := revision(t, w)
	testutil.Topic(t, w, "a").Title = "a2"
	if err := w.Touch(testutil.Topic(t, w, "a2").ID); err != nil {
		t.Fatal(err)
	}
	r2 := revision(t, w)
	shared := revision(t, testutil.Fork(t, w))

	pairs := PairRevisions([]*Revision{r2, r1}, []*Revision{shared})
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Source() != r1 || pairs[0].HasTarget() {
		t.Errorf("first pair should hold only r1")
	}
	if pairs[1].Source() != r2 || pairs[1].Target() != shared {
		t.Errorf("second pair should join r2 with the target copy")
	}
}

func TestCompareRevisions(t *testing.T) {
	base := testutil.NewTree(t, "a", "b")
	sheet := testutil.FirstSheet(t, base)
	r, err := base.AddRelationship(sheet.ID, testutil.Topic(t, base, "a").ID, testutil.Topic(t, base, "b").ID)
	if err != nil {
		t.Fatal(err)
	}
	other := testutil.Fork(t, base)
	// Same sheet edit, but the relationship title diverged without a touch.
	other.Relationships[r.ID].Title = "renamed"
	other.Relationships[r.ID].ModifiedTime++

	results := CompareRevisions([]*Revision{revision(t, base)}, []*Revision{revision(t, other)})
	if len(results) != 1 {
		t.Fatalf("expected 1 comparison, got %d", len(results))
	}
	got := results[0]
	if got.ModifiedTime != sheet.ModifiedTime {
		t.Errorf("ModifiedTime = %d, want %d", got.ModifiedTime, sheet.ModifiedTime)
	}
	if len(got.Relationships) != 1 || got.Relationships[0].Source().ID != r.ID {
		t.Errorf("expected relationship %s to differ, got %v", r.ID, got.Relationships)
	}

	same := CompareRevisions([]*Revision{revision(t, base)}, []*Revision{revision(t, testutil.Fork(t, base))})
	if len(same) != 1 || len(same[0].Relationships) != 0 {
		t.Errorf("identical revisions should not differ: %+v", same)
	}
}
