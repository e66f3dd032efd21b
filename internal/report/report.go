// Package report turns the output of a merge into a serialisable summary of
// everything left for a person to resolve.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lherron/wbmerge/internal/id"
	"github.com/lherron/wbmerge/internal/merge"
	"github.com/lherron/wbmerge/internal/workbook"
)

// Report summarises one merge run.
type Report struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	SourceID      string          `json:"source_id" yaml:"source_id"`
	TargetID      string          `json:"target_id" yaml:"target_id"`
	ResultRev     string          `json:"result_rev" yaml:"result_rev"`
	Counts        Counts          `json:"counts" yaml:"counts"`
	Sheets        []SheetReport   `json:"sheets,omitempty" yaml:"sheets,omitempty"`
	Styles        []StyleConflict `json:"styles,omitempty" yaml:"styles,omitempty"`
	SkippedSheets []string        `json:"skipped_sheets,omitempty" yaml:"skipped_sheets,omitempty"`
}

// Counts tracks conflicts by element kind.
type Counts struct {
	Sheets        int `json:"sheets" yaml:"sheets"`
	Topics        int `json:"topics" yaml:"topics"`
	Relationships int `json:"relationships" yaml:"relationships"`
	Summaries     int `json:"summaries" yaml:"summaries"`
	Boundaries    int `json:"boundaries" yaml:"boundaries"`
	Uncopiable    int `json:"uncopiable" yaml:"uncopiable"`
	Styles        int `json:"styles" yaml:"styles"`
}

// Total is the number of items needing attention.
func (c Counts) Total() int {
	return c.Topics + c.Relationships + c.Summaries + c.Boundaries + c.Uncopiable + c.Styles
}

// SheetReport lists the conflicts of one merged sheet.
type SheetReport struct {
	SheetID       string                 `json:"sheet_id" yaml:"sheet_id"`
	Title         string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Topics        []TopicConflict        `json:"topics,omitempty" yaml:"topics,omitempty"`
	Relationships []RelationshipConflict `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Summaries     []RangeConflict        `json:"summaries,omitempty" yaml:"summaries,omitempty"`
	Boundaries    []RangeConflict        `json:"boundaries,omitempty" yaml:"boundaries,omitempty"`
	Uncopiable    []Uncopiable           `json:"uncopiable,omitempty" yaml:"uncopiable,omitempty"`
}

// TopicConflict describes a topic changed differently on both sides.
type TopicConflict struct {
	TopicID     string   `json:"topic_id" yaml:"topic_id"`
	SourceTitle string   `json:"source_title,omitempty" yaml:"source_title,omitempty"`
	TargetTitle string   `json:"target_title,omitempty" yaml:"target_title,omitempty"`
	Fields      []string `json:"fields" yaml:"fields"`
	TitleDiff   string   `json:"title_diff,omitempty" yaml:"title_diff,omitempty"`
	NotesDiff   string   `json:"notes_diff,omitempty" yaml:"notes_diff,omitempty"`
}

// RelationshipConflict describes a relationship present on both sides.
// Identical is set when the two copies hold the same edit.
type RelationshipConflict struct {
	ID        string `json:"id" yaml:"id"`
	End1ID    string `json:"end1_id" yaml:"end1_id"`
	End2ID    string `json:"end2_id" yaml:"end2_id"`
	Identical bool   `json:"identical" yaml:"identical"`
}

// RangeConflict describes a summary or boundary present on both sides.
type RangeConflict struct {
	ID          string `json:"id" yaml:"id"`
	SourceRange string `json:"source_range" yaml:"source_range"`
	TargetRange string `json:"target_range" yaml:"target_range"`
}

// Uncopiable is a source-only summary or boundary that was dropped.
type Uncopiable struct {
	Kind  string `json:"kind" yaml:"kind"`
	ID    string `json:"id" yaml:"id"`
	Range string `json:"range" yaml:"range"`
}

// StyleConflict describes a style changed differently on both sides.
type StyleConflict struct {
	Group      string `json:"group" yaml:"group"`
	ID         string `json:"id" yaml:"id"`
	SourceName string `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	TargetName string `json:"target_name,omitempty" yaml:"target_name,omitempty"`
}

// Build summarises the sheet mergers and style conflicts of m.
func Build(m *merge.WorkbookMerger, sheets []*merge.SheetMerger, styles map[string][]merge.Triple[*workbook.Style]) (*Report, error) {
	rev, err := workbook.Rev(m.Result())
	if err != nil {
		return nil, fmt.Errorf("failed to compute result revision: %w", err)
	}
	r := &Report{
		RunID:         id.NewRun(),
		SourceID:      m.Source().ID,
		TargetID:      m.Target().ID,
		ResultRev:     rev,
		SkippedSheets: m.SkippedSheets(),
	}

	for _, sm := range sheets {
		sr := buildSheet(sm)
		r.Counts.Sheets++
		r.Counts.Topics += len(sr.Topics)
		r.Counts.Relationships += len(sr.Relationships)
		r.Counts.Summaries += len(sr.Summaries)
		r.Counts.Boundaries += len(sr.Boundaries)
		r.Counts.Uncopiable += len(sr.Uncopiable)
		r.Sheets = append(r.Sheets, sr)
	}

	for _, group := range workbook.StyleGroups {
		for _, t := range styles[group] {
			r.Styles = append(r.Styles, StyleConflict{
				Group:      group,
				ID:         t.Source().ID,
				SourceName: t.Source().Name,
				TargetName: t.Target().Name,
			})
		}
	}
	r.Counts.Styles = len(r.Styles)
	return r, nil
}

func buildSheet(sm *merge.SheetMerger) SheetReport {
	sr := SheetReport{SheetID: sm.Source().ID, Title: sm.Source().Title}

	for _, c := range sm.TopicConflicts() {
		tc := TopicConflict{
			TopicID:     c.Source().ID,
			SourceTitle: c.Source().Title,
			TargetTitle: c.Target().Title,
		}
		for _, f := range c.Differences() {
			tc.Fields = append(tc.Fields, string(f))
		}
		if c.Differs(merge.FieldTitle) {
			tc.TitleDiff = unifiedDiff(c.Source().Title, c.Target().Title)
		}
		if c.Differs(merge.FieldNotes) {
			tc.NotesDiff = unifiedDiff(plainNotes(c.Source()), plainNotes(c.Target()))
		}
		sr.Topics = append(sr.Topics, tc)
	}

	for _, t := range sm.RelationshipConflicts() {
		sr.Relationships = append(sr.Relationships, RelationshipConflict{
			ID:        t.Source().ID,
			End1ID:    t.Source().End1ID,
			End2ID:    t.Source().End2ID,
			Identical: merge.RelationshipsEqual(t.Source(), t.Target()),
		})
	}
	for _, t := range sm.SummaryConflicts() {
		sr.Summaries = append(sr.Summaries, RangeConflict{
			ID:          t.Source().ID,
			SourceRange: formatRange(t.Source().StartIndex, t.Source().EndIndex),
			TargetRange: formatRange(t.Target().StartIndex, t.Target().EndIndex),
		})
	}
	for _, t := range sm.BoundaryConflicts() {
		sr.Boundaries = append(sr.Boundaries, RangeConflict{
			ID:          t.Source().ID,
			SourceRange: formatRange(t.Source().StartIndex, t.Source().EndIndex),
			TargetRange: formatRange(t.Target().StartIndex, t.Target().EndIndex),
		})
	}
	for _, s := range sm.UncopiableSummaries() {
		sr.Uncopiable = append(sr.Uncopiable, Uncopiable{Kind: "summary", ID: s.ID, Range: formatRange(s.StartIndex, s.EndIndex)})
	}
	for _, b := range sm.UncopiableBoundaries() {
		sr.Uncopiable = append(sr.Uncopiable, Uncopiable{Kind: "boundary", ID: b.ID, Range: formatRange(b.StartIndex, b.EndIndex)})
	}
	return sr
}

func plainNotes(t *workbook.Topic) string {
	if t.Notes == nil {
		return ""
	}
	return t.Notes.Plain
}

func formatRange(start, end int) string {
	return fmt.Sprintf("%d-%d", start, end)
}

// unifiedDiff renders a source-to-target line diff. It returns "" when the
// texts are equal line by line.
func unifiedDiff(source, target string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(source),
		B:        difflib.SplitLines(target),
		FromFile: "source",
		ToFile:   "target",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// Rows flattens the report into one row per conflict for tabular output.
func (r *Report) Rows() ([]string, [][]string) {
	headers := []string{"sheet", "kind", "id", "detail"}
	var rows [][]string
	for _, s := range r.Sheets {
		for _, t := range s.Topics {
			rows = append(rows, []string{s.SheetID, "topic", t.TopicID, strings.Join(t.Fields, ",")})
		}
		for _, rel := range s.Relationships {
			detail := "changed"
			if rel.Identical {
				detail = "identical"
			}
			rows = append(rows, []string{s.SheetID, "relationship", rel.ID, detail})
		}
		for _, c := range s.Summaries {
			rows = append(rows, []string{s.SheetID, "summary", c.ID, c.SourceRange + " vs " + c.TargetRange})
		}
		for _, c := range s.Boundaries {
			rows = append(rows, []string{s.SheetID, "boundary", c.ID, c.SourceRange + " vs " + c.TargetRange})
		}
		for _, u := range s.Uncopiable {
			rows = append(rows, []string{s.SheetID, "uncopiable-" + u.Kind, u.ID, u.Range})
		}
	}
	for _, st := range r.Styles {
		rows = append(rows, []string{"", "style", st.ID, st.Group})
	}
	for _, sid := range r.SkippedSheets {
		rows = append(rows, []string{sid, "skipped-sheet", sid, "root topic replaced"})
	}
	return headers, rows
}

// WriteText writes a human-readable summary.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Merge %s\n", r.RunID)
	fmt.Fprintf(&b, "  result: %s\n", r.ResultRev)
	if r.Counts.Total() == 0 && len(r.SkippedSheets) == 0 {
		fmt.Fprintf(&b, "  no conflicts (%d sheets merged)\n", r.Counts.Sheets)
		_, err := io.WriteString(w, b.String())
		return err
	}

	type line struct {
		label string
		n     int
	}
	for _, l := range []line{
		{"topic conflicts", r.Counts.Topics},
		{"relationship conflicts", r.Counts.Relationships},
		{"summary conflicts", r.Counts.Summaries},
		{"boundary conflicts", r.Counts.Boundaries},
		{"uncopiable annotations", r.Counts.Uncopiable},
		{"style conflicts", r.Counts.Styles},
	} {
		if l.n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", l.label, l.n)
		}
	}

	for _, s := range r.Sheets {
		if len(s.Topics) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\nSheet %q (%s)\n", s.Title, s.SheetID)
		topics := append([]TopicConflict(nil), s.Topics...)
		sort.SliceStable(topics, func(i, j int) bool { return topics[i].TopicID < topics[j].TopicID })
		for _, t := range topics {
			fmt.Fprintf(&b, "  topic %s: %s\n", t.TopicID, strings.Join(t.Fields, ", "))
			for _, d := range []string{t.TitleDiff, t.NotesDiff} {
				if d != "" {
					b.WriteString(indent(d, "    "))
				}
			}
		}
	}
	if len(r.SkippedSheets) > 0 {
		fmt.Fprintf(&b, "\nSkipped sheets (root topic replaced): %s\n", strings.Join(r.SkippedSheets, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
