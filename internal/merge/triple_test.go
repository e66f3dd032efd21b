package merge

import (
	"testing"

	"github.com/lherron/wbmerge/internal/workbook"
)

func TestCorrespond(t *testing.T) {
	s := func(id string) *workbook.Style { return &workbook.Style{ID: id} }
	srcA, srcB := s("a"), s("b")
	tgtB, tgtC := s("b"), s("c")
	resB, resD := s("b"), s("d")

	triples := Correspond(styleID, []*workbook.Style{srcA, srcB, nil}, []*workbook.Style{tgtB, tgtC}, []*workbook.Style{resB, resD})

	want := []struct {
		source, target, result *workbook.Style
	}{
		{srcA, nil, nil},
		{srcB, tgtB, resB},
		{nil, tgtC, nil},
		{nil, nil, resD},
	}
	if len(triples) != len(want) {
		t.Fatalf("expected %d triples, got %d", len(want), len(triples))
	}
	for i, w := range want {
		got := triples[i]
		if got.Source() != w.source || got.Target() != w.target || got.Result() != w.result {
			t.Errorf("triple %d = (%v, %v, %v), want (%v, %v, %v)",
				i, got.Source(), got.Target(), got.Result(), w.source, w.target, w.result)
		}
	}
	if !triples[1].Full() || triples[0].Full() || triples[2].Full() {
		t.Error("Full() reports the wrong triples")
	}
}

func TestCorrespondWithoutResult(t *testing.T) {
	r := &workbook.Relationship{ID: "r1"}
	triples := Correspond(relationshipID, []*workbook.Relationship{r}, nil, nil)
	if len(triples) != 1 || triples[0].Source() != r || triples[0].HasTarget() || triples[0].HasResult() {
		t.Errorf("unexpected triples: %+v", triples)
	}
	if got := Correspond(relationshipID, nil, nil, nil); len(got) != 0 {
		t.Errorf("expected no triples, got %d", len(got))
	}
}
