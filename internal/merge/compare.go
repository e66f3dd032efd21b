package merge

import (
	"github.com/lherron/wbmerge/internal/workbook"
)

// Field names a comparable property of a topic.
type Field string

const (
	FieldHyperlink      Field = "hyperlink"
	FieldStructureClass Field = "structure_class"
	FieldTitle          Field = "title"
	FieldTitleWidth     Field = "title_width"
	FieldType           Field = "type"
	FieldAttached       Field = "attached"
	FieldPosition       Field = "position"
	FieldImage          Field = "image"
	FieldLabels         Field = "labels"
	FieldMarkers        Field = "markers"
	FieldNotes          Field = "notes"
	FieldNumbering      Field = "numbering"
	FieldStyle          Field = "style"
)

// Fields lists every compared topic field in report order.
var Fields = []Field{
	FieldTitle, FieldTitleWidth, FieldHyperlink, FieldStructureClass, FieldType,
	FieldAttached, FieldPosition, FieldImage, FieldLabels, FieldMarkers,
	FieldNotes, FieldNumbering, FieldStyle,
}

// Comparator compares elements of two workbooks. Style ids are resolved in
// the workbook each element belongs to: left for the first argument, right
// for the second.
type Comparator struct {
	left  *workbook.Workbook
	right *workbook.Workbook
}

// NewComparator returns a comparator for elements of left and right.
func NewComparator(left, right *workbook.Workbook) Comparator {
	return Comparator{left: left, right: right}
}

// TopicsEqual reports whether two topics agree on every compared field.
func (c Comparator) TopicsEqual(a, b *workbook.Topic) bool {
	if a == nil || b == nil {
		return a == b
	}
	return len(c.topicDifferences(a, b)) == 0
}

// topicDifferences returns the fields on which a and b differ, in Fields
// order. Both topics must be non-nil.
func (c Comparator) topicDifferences(a, b *workbook.Topic) []Field {
	same := map[Field]bool{
		FieldHyperlink:      a.Hyperlink == b.Hyperlink,
		FieldStructureClass: a.StructureClass == b.StructureClass,
		FieldTitle:          a.Title == b.Title,
		FieldTitleWidth:     a.TitleWidth == b.TitleWidth,
		FieldType:           a.Type == b.Type,
		FieldAttached:       a.Attached == b.Attached,
		FieldPosition:       positionsEqual(a.Position, b.Position),
		FieldImage:          imagesEqual(a.Image, b.Image),
		FieldLabels:         labelsEqual(a.Labels, b.Labels),
		FieldMarkers:        markersEqual(a.Markers, b.Markers),
		FieldNotes:          c.NotesEqual(a.Notes, b.Notes),
		FieldNumbering:      a.Numbering == b.Numbering,
		FieldStyle:          c.styleRefsEqual(a.StyleID, b.StyleID),
	}
	var diffs []Field
	for _, f := range Fields {
		if !same[f] {
			diffs = append(diffs, f)
		}
	}
	return diffs
}

// NotesEqual compares notes by plain text and by rich-text paragraphs.
func (c Comparator) NotesEqual(a, b *workbook.Notes) bool {
	aEmpty, bEmpty := a.IsEmpty(), b.IsEmpty()
	if aEmpty || bEmpty {
		return aEmpty == bEmpty
	}
	if a.Plain != b.Plain || len(a.Paragraphs) != len(b.Paragraphs) {
		return false
	}
	for i := range a.Paragraphs {
		pa, pb := a.Paragraphs[i], b.Paragraphs[i]
		if !c.styleRefsEqual(pa.StyleID, pb.StyleID) || !c.spansEqual(pa.Spans, pb.Spans) {
			return false
		}
	}
	return true
}

func (c Comparator) spansEqual(a, b workbook.Spans) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !c.spanEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (c Comparator) spanEqual(a, b workbook.Span) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() || !c.styleRefsEqual(a.Style(), b.Style()) {
		return false
	}
	switch va := a.(type) {
	case workbook.TextSpan:
		return va.Text == b.(workbook.TextSpan).Text
	case workbook.HyperlinkSpan:
		vb := b.(workbook.HyperlinkSpan)
		return va.Href == vb.Href && c.spansEqual(va.Spans, vb.Spans)
	case workbook.ImageSpan:
		return va.Source == b.(workbook.ImageSpan).Source
	}
	return false
}

// styleRefsEqual resolves each style id in its own workbook and compares the
// styles found.
func (c Comparator) styleRefsEqual(a, b string) bool {
	return StylesEqual(c.left.FindStyle(a), c.right.FindStyle(b))
}

// StylesEqual reports whether two styles have the same id, type, name,
// defaults and properties. Two missing styles are equal.
func StylesEqual(a, b *workbook.Style) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID &&
		a.Type == b.Type &&
		a.Name == b.Name &&
		propertiesEqual(a.Defaults, b.Defaults) &&
		propertiesEqual(a.Properties, b.Properties)
}

// RelationshipsEqual reports whether two relationships are the same edit:
// equal modified times, or equal endpoints, style and title.
func RelationshipsEqual(a, b *workbook.Relationship) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.ModifiedTime == b.ModifiedTime {
		return true
	}
	return a.End1ID == b.End1ID &&
		a.End2ID == b.End2ID &&
		a.StyleID == b.StyleID &&
		a.Title == b.Title
}

func propertiesEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || va != vb {
			return false
		}
	}
	return true
}

func positionsEqual(a, b *workbook.Point) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func imagesEqual(a, b *workbook.Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Source == b.Source &&
		a.Alignment == b.Alignment &&
		intPtrsEqual(a.Width, b.Width) &&
		intPtrsEqual(a.Height, b.Height)
}

func intPtrsEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// labelsEqual compares labels as sets.
func labelsEqual(a, b []string) bool {
	as, bs := toSet(a), toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for l := range as {
		if !bs[l] {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func markersEqual(a, b map[string]string) bool {
	return propertiesEqual(a, b)
}
