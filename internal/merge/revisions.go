package merge

import (
	"fmt"
	"sort"

	"github.com/lherron/wbmerge/internal/workbook"
)

// Revision is a saved copy of one sheet: a one-sheet workbook as produced by
// workbook.ExtractSheet.
type Revision struct {
	Content *workbook.Workbook
	SheetID string
}

// NewRevision wraps a one-sheet workbook holding sheetID.
func NewRevision(content *workbook.Workbook, sheetID string) (*Revision, error) {
	if content == nil || content.Sheet(sheetID) == nil {
		return nil, fmt.Errorf("revision of sheet %s: %w", sheetID, workbook.ErrNotFound)
	}
	return &Revision{Content: content, SheetID: sheetID}, nil
}

// Sheet returns the revised sheet.
func (r *Revision) Sheet() *workbook.Sheet {
	return r.Content.Sheet(r.SheetID)
}

// ModifiedTime identifies the revision: two revisions with the same sheet
// modified time hold the same edit.
func (r *Revision) ModifiedTime() int64 {
	return r.Sheet().ModifiedTime
}

// PairRevisions joins two revision histories of a sheet by modified time.
// Pairs are ordered by modified time.
func PairRevisions(source, target []*Revision) []Triple[*Revision] {
	byTime := make(map[int64]*Triple[*Revision])
	slot := func(r *Revision) *Triple[*Revision] {
		t, ok := byTime[r.ModifiedTime()]
		if !ok {
			t = &Triple[*Revision]{}
			byTime[r.ModifiedTime()] = t
		}
		return t
	}
	for _, r := range source {
		if r != nil {
			slot(r).source = r
		}
	}
	for _, r := range target {
		if r != nil {
			slot(r).target = r
		}
	}

	times := make([]int64, 0, len(byTime))
	for mt := range byTime {
		times = append(times, mt)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	pairs := make([]Triple[*Revision], 0, len(times))
	for _, mt := range times {
		pairs = append(pairs, *byTime[mt])
	}
	return pairs
}

// RevisionComparison is the outcome of comparing one pair of revisions.
type RevisionComparison struct {
	ModifiedTime int64
	Pair         Triple[*Revision]
	// Relationships lists relationships missing from one side or differing
	// between the two. It is empty for unpaired revisions.
	Relationships []Triple[*workbook.Relationship]
}

// CompareRevisions pairs two revision histories and reports, for each pair,
// the relationships that differ.
func CompareRevisions(source, target []*Revision) []RevisionComparison {
	var out []RevisionComparison
	for _, pair := range PairRevisions(source, target) {
		c := RevisionComparison{Pair: pair}
		if pair.HasSource() {
			c.ModifiedTime = pair.Source().ModifiedTime()
		} else {
			c.ModifiedTime = pair.Target().ModifiedTime()
		}
		if pair.Full() {
			src, tgt := pair.Source(), pair.Target()
			triples := Correspond(relationshipID,
				src.Content.SheetRelationships(src.SheetID),
				tgt.Content.SheetRelationships(tgt.SheetID),
				nil)
			for _, t := range triples {
				if !RelationshipsEqual(t.Source(), t.Target()) {
					c.Relationships = append(c.Relationships, t)
				}
			}
		}
		out = append(out, c)
	}
	return out
}
