package workbook

import (
	"fmt"
)

// ImportTopic copies a topic of src into w, keeping its id. The copy is
// detached (no parent, no summaries or boundaries). Descendant children whose
// ids are free in w are copied along with it; callers that rebuild the tree
// child by child should strip them with RemoveChildren.
func (w *Workbook) ImportTopic(src *Workbook, t *Topic) (*Topic, error) {
	if w.Has(t.ID) {
		return nil, fmt.Errorf("import topic %s: %w", t.ID, ErrDuplicateID)
	}
	cp := copyTopic(t)
	cp.ParentID = ""
	cp.ChildIDs = nil
	cp.SummaryIDs = nil
	cp.BoundaryIDs = nil
	w.Topics[cp.ID] = cp
	w.importTopicStyles(src, t)

	for _, cid := range t.ChildIDs {
		child := src.Topics[cid]
		if child == nil || w.Has(cid) {
			continue
		}
		imported, err := w.ImportTopic(src, child)
		if err != nil {
			return nil, err
		}
		imported.ParentID = cp.ID
		cp.ChildIDs = append(cp.ChildIDs, imported.ID)
	}
	return cp, nil
}

// ImportSummary copies a summary of src into w, detached from any parent.
// The heading topic is not imported.
func (w *Workbook) ImportSummary(src *Workbook, s *Summary) (*Summary, error) {
	if w.Has(s.ID) {
		return nil, fmt.Errorf("import summary %s: %w", s.ID, ErrDuplicateID)
	}
	cp := *s
	cp.ParentID = ""
	w.Summaries[cp.ID] = &cp
	w.importStyleRef(src, s.StyleID)
	return &cp, nil
}

// ImportBoundary copies a boundary of src into w, detached from any parent.
func (w *Workbook) ImportBoundary(src *Workbook, b *Boundary) (*Boundary, error) {
	if w.Has(b.ID) {
		return nil, fmt.Errorf("import boundary %s: %w", b.ID, ErrDuplicateID)
	}
	cp := *b
	cp.ParentID = ""
	w.Boundaries[cp.ID] = &cp
	w.importStyleRef(src, b.StyleID)
	return &cp, nil
}

// ImportRelationship copies a relationship of src into w. It is not yet
// part of any sheet.
func (w *Workbook) ImportRelationship(src *Workbook, r *Relationship) (*Relationship, error) {
	if w.Has(r.ID) {
		return nil, fmt.Errorf("import relationship %s: %w", r.ID, ErrDuplicateID)
	}
	cp := *r
	cp.SheetID = ""
	w.Relationships[cp.ID] = &cp
	w.importStyleRef(src, r.StyleID)
	return &cp, nil
}

// ImportStyle returns a deep copy of a style, ready for AddStyle.
func ImportStyle(s *Style) *Style {
	cp := *s
	cp.Properties = copyStringMap(s.Properties)
	cp.Defaults = copyStringMap(s.Defaults)
	return &cp
}

// ImportSheet copies a whole sheet of src into w: its tree, summaries,
// boundaries and relationships. The sheet is not added to the sheet order.
func (w *Workbook) ImportSheet(src *Workbook, s *Sheet) (*Sheet, error) {
	if w.Has(s.ID) {
		return nil, fmt.Errorf("import sheet %s: %w", s.ID, ErrDuplicateID)
	}
	if src.Topics[s.RootTopicID] == nil {
		return nil, fmt.Errorf("import sheet %s: root topic %s: %w", s.ID, s.RootTopicID, ErrNotFound)
	}
	cp := *s
	cp.RelationshipIDs = nil
	w.Sheets[cp.ID] = &cp
	w.importStyleRef(src, s.StyleID)

	if err := w.importTree(src, src.Topics[s.RootTopicID], ""); err != nil {
		return nil, fmt.Errorf("import sheet %s: %w", s.ID, err)
	}
	for _, rid := range s.RelationshipIDs {
		r := src.Relationships[rid]
		if r == nil {
			continue
		}
		if _, err := w.ImportRelationship(src, r); err != nil {
			return nil, fmt.Errorf("import sheet %s: %w", s.ID, err)
		}
		if err := w.AddSheetRelationship(cp.ID, rid); err != nil {
			return nil, err
		}
	}
	return &cp, nil
}

// importTree copies a topic with its full subtree and annotations.
func (w *Workbook) importTree(src *Workbook, t *Topic, parentID string) error {
	if w.Has(t.ID) {
		return fmt.Errorf("topic %s: %w", t.ID, ErrDuplicateID)
	}
	cp := copyTopic(t)
	cp.ParentID = parentID
	cp.ChildIDs = nil
	cp.SummaryIDs = nil
	cp.BoundaryIDs = nil
	w.Topics[cp.ID] = cp
	w.importTopicStyles(src, t)

	for _, cid := range t.ChildIDs {
		child := src.Topics[cid]
		if child == nil {
			continue
		}
		if err := w.importTree(src, child, cp.ID); err != nil {
			return err
		}
		cp.ChildIDs = append(cp.ChildIDs, cid)
	}
	for _, s := range src.TopicSummaries(t.ID) {
		if _, err := w.ImportSummary(src, s); err != nil {
			return err
		}
		if err := w.AttachSummary(cp.ID, s.ID); err != nil {
			return err
		}
	}
	for _, b := range src.TopicBoundaries(t.ID) {
		if _, err := w.ImportBoundary(src, b); err != nil {
			return err
		}
		if err := w.AttachBoundary(cp.ID, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// importTopicStyles copies every style a topic refers to, including the
// styles of its rich-text notes.
func (w *Workbook) importTopicStyles(src *Workbook, t *Topic) {
	w.importStyleRef(src, t.StyleID)
	if t.Notes == nil {
		return
	}
	for _, p := range t.Notes.Paragraphs {
		w.importStyleRef(src, p.StyleID)
		w.importSpanStyles(src, p.Spans)
	}
}

func (w *Workbook) importSpanStyles(src *Workbook, spans Spans) {
	for _, span := range spans {
		w.importStyleRef(src, span.Style())
		if h, ok := span.(HyperlinkSpan); ok {
			w.importSpanStyles(src, h.Spans)
		}
	}
}

// importStyleRef copies a referenced style from src when w lacks it.
func (w *Workbook) importStyleRef(src *Workbook, styleID string) {
	if styleID == "" || w.FindStyle(styleID) != nil {
		return
	}
	s := src.FindStyle(styleID)
	if s == nil {
		return
	}
	group, ok := src.StyleGroup(styleID)
	if !ok {
		group = NormalStyles
	}
	// The id is known to be free, AddStyle cannot fail here.
	_ = w.AddStyle(group, ImportStyle(s))
}

func copyTopic(t *Topic) *Topic {
	cp := *t
	cp.ChildIDs = append([]string(nil), t.ChildIDs...)
	cp.SummaryIDs = append([]string(nil), t.SummaryIDs...)
	cp.BoundaryIDs = append([]string(nil), t.BoundaryIDs...)
	cp.Labels = append([]string(nil), t.Labels...)
	cp.Markers = copyStringMap(t.Markers)
	if t.Position != nil {
		p := *t.Position
		cp.Position = &p
	}
	if t.Image != nil {
		img := *t.Image
		if t.Image.Width != nil {
			v := *t.Image.Width
			img.Width = &v
		}
		if t.Image.Height != nil {
			v := *t.Image.Height
			img.Height = &v
		}
		cp.Image = &img
	}
	if t.Notes != nil {
		n := Notes{Plain: t.Notes.Plain}
		for _, p := range t.Notes.Paragraphs {
			n.Paragraphs = append(n.Paragraphs, Paragraph{StyleID: p.StyleID, Spans: copySpans(p.Spans)})
		}
		cp.Notes = &n
	}
	return &cp
}

func copySpans(spans Spans) Spans {
	if spans == nil {
		return nil
	}
	out := make(Spans, 0, len(spans))
	for _, span := range spans {
		if h, ok := span.(HyperlinkSpan); ok {
			h.Spans = copySpans(h.Spans)
			out = append(out, h)
			continue
		}
		out = append(out, span)
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
