package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lherron/wbmerge/internal/workbook"
)

func intPtr(v int) *int { return &v }

func richTopic() *workbook.Topic {
	return &workbook.Topic{
		ID:             "t1",
		Type:           workbook.TopicAttached,
		Title:          "Plan",
		TitleWidth:     120,
		Hyperlink:      "https://example.com",
		StructureClass: "org.xmind.ui.map.clockwise",
		Attached:       true,
		Position:       &workbook.Point{X: 10, Y: -4},
		Image:          &workbook.Image{Source: "xap:attachments/a.png", Width: intPtr(32), Alignment: "left"},
		Labels:         []string{"x", "y"},
		Markers:        map[string]string{"priority-1": "Priority 1"},
		Notes: &workbook.Notes{
			Plain: "see link",
			Paragraphs: []workbook.Paragraph{{Spans: workbook.Spans{
				workbook.TextSpan{Text: "see "},
				workbook.HyperlinkSpan{Href: "https://example.com", Spans: workbook.Spans{workbook.TextSpan{Text: "link"}}},
			}}},
		},
		Numbering: workbook.Numbering{Format: "arabic", Suffix: "."},
		StyleID:   "s1",
	}
}

func styledWorkbook(props map[string]string) *workbook.Workbook {
	w := workbook.New()
	_ = w.AddStyle(workbook.NormalStyles, &workbook.Style{ID: "s1", Name: "topic", Properties: props})
	return w
}

func TestTopicsEqualIsReflexive(t *testing.T) {
	w := styledWorkbook(map[string]string{"fo:color": "red"})
	c := NewComparator(w, w)
	tp := richTopic()
	if !c.TopicsEqual(tp, tp) {
		t.Errorf("topic not equal to itself: %v", c.topicDifferences(tp, tp))
	}
	if !c.TopicsEqual(nil, nil) {
		t.Error("two missing topics should be equal")
	}
	if c.TopicsEqual(tp, nil) {
		t.Error("missing topic should not equal a present one")
	}
}

func TestTopicDifferences(t *testing.T) {
	left := styledWorkbook(map[string]string{"fo:color": "red"})

	tests := []struct {
		name   string
		right  *workbook.Workbook
		mutate func(*workbook.Topic)
		want   []Field
	}{
		{"labels in other order", left, func(tp *workbook.Topic) { tp.Labels = []string{"y", "x"} }, nil},
		{"label added", left, func(tp *workbook.Topic) { tp.Labels = append(tp.Labels, "z") }, []Field{FieldLabels}},
		{"title", left, func(tp *workbook.Topic) { tp.Title = "Other" }, []Field{FieldTitle}},
		{"position removed", left, func(tp *workbook.Topic) { tp.Position = nil }, []Field{FieldPosition}},
		{"image height set", left, func(tp *workbook.Topic) { tp.Image.Height = intPtr(10) }, []Field{FieldImage}},
		{"marker description", left, func(tp *workbook.Topic) { tp.Markers = map[string]string{"priority-1": "P1"} }, []Field{FieldMarkers}},
		{"numbering prefix", left, func(tp *workbook.Topic) { tp.Numbering.Prefix = "#" }, []Field{FieldNumbering}},
		{"detached", left, func(tp *workbook.Topic) { tp.Attached = false }, []Field{FieldAttached}},
		{"nested span text", left, func(tp *workbook.Topic) {
			tp.Notes.Paragraphs[0].Spans[1] = workbook.HyperlinkSpan{Href: "https://example.com", Spans: workbook.Spans{workbook.TextSpan{Text: "LINK"}}}
		}, []Field{FieldNotes}},
		{"style resolved in other workbook", styledWorkbook(map[string]string{"fo:color": "blue"}), func(*workbook.Topic) {}, []Field{FieldStyle}},
		{"same style content in other workbook", styledWorkbook(map[string]string{"fo:color": "red"}), func(*workbook.Topic) {}, nil},
		{"title and type", left, func(tp *workbook.Topic) {
			tp.Title = "Other"
			tp.Type = workbook.TopicDetached
		}, []Field{FieldTitle, FieldType}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := richTopic(), richTopic()
			tt.mutate(b)
			got := NewComparator(left, tt.right).topicDifferences(a, b)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("differences mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNotesEqual(t *testing.T) {
	c := NewComparator(workbook.New(), workbook.New())
	para := func(spans ...workbook.Span) workbook.Paragraph { return workbook.Paragraph{Spans: spans} }

	tests := []struct {
		name string
		a, b *workbook.Notes
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and empty", nil, &workbook.Notes{}, true},
		{"one empty", nil, &workbook.Notes{Plain: "x"}, false},
		{"plain differs", &workbook.Notes{Plain: "x"}, &workbook.Notes{Plain: "y"}, false},
		{"extra paragraph on the right", &workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para()}},
			&workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(), para(workbook.TextSpan{Text: "more"})}}, false},
		{"span kinds differ", &workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.TextSpan{Text: "i"})}},
			&workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.ImageSpan{Source: "i"})}}, false},
		{"image source differs", &workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.ImageSpan{Source: "a"})}},
			&workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.ImageSpan{Source: "b"})}}, false},
		{"nested span lists of different length",
			&workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.HyperlinkSpan{Href: "u",
				Spans: workbook.Spans{workbook.TextSpan{Text: "a"}}})}},
			&workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.HyperlinkSpan{Href: "u",
				Spans: workbook.Spans{workbook.TextSpan{Text: "a"}, workbook.TextSpan{Text: "b"}}})}}, false},
		{"same", &workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.ImageSpan{Source: "a"})}},
			&workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{para(workbook.ImageSpan{Source: "a"})}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.NotesEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("NotesEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotesEqualResolvesStyles(t *testing.T) {
	red := styledWorkbook(map[string]string{"fo:color": "red"})
	notes := func(p workbook.Paragraph) *workbook.Notes {
		return &workbook.Notes{Plain: "x", Paragraphs: []workbook.Paragraph{p}}
	}
	styledPara := notes(workbook.Paragraph{StyleID: "s1", Spans: workbook.Spans{workbook.TextSpan{Text: "x"}}})
	styledSpan := notes(workbook.Paragraph{Spans: workbook.Spans{workbook.TextSpan{StyleID: "s1", Text: "x"}}})
	styledLink := notes(workbook.Paragraph{Spans: workbook.Spans{workbook.HyperlinkSpan{Href: "u",
		Spans: workbook.Spans{workbook.TextSpan{StyleID: "s1", Text: "x"}}}}})

	tests := []struct {
		name  string
		right *workbook.Workbook
		notes *workbook.Notes
		want  bool
	}{
		{"paragraph style same content", styledWorkbook(map[string]string{"fo:color": "red"}), styledPara, true},
		{"paragraph style differs", styledWorkbook(map[string]string{"fo:color": "blue"}), styledPara, false},
		{"span style differs", styledWorkbook(map[string]string{"fo:color": "blue"}), styledSpan, false},
		{"nested span style differs", styledWorkbook(map[string]string{"fo:color": "blue"}), styledLink, false},
		{"span style missing on the right", workbook.New(), styledSpan, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComparator(red, tt.right)
			if got := c.NotesEqual(tt.notes, tt.notes); got != tt.want {
				t.Errorf("NotesEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStylesEqual(t *testing.T) {
	style := func(name string, props, defaults map[string]string) *workbook.Style {
		return &workbook.Style{ID: "style-7", Type: "topic", Name: name, Properties: props, Defaults: defaults}
	}
	props := map[string]string{"fo:color": "#fff"}
	defaults := map[string]string{"fo:font-size": "10pt"}

	tests := []struct {
		name string
		a, b *workbook.Style
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", style("a", nil, nil), nil, false},
		{"identical", style("a", props, defaults), style("a", props, defaults), true},
		{"name differs", style("Heading", props, defaults), style("Title", props, defaults), false},
		{"extra property", style("a", props, defaults), style("a", map[string]string{"fo:color": "#fff", "x": "1"}, defaults), false},
		{"property value differs", style("a", props, defaults), style("a", map[string]string{"fo:color": "#000"}, defaults), false},
		{"defaults differ", style("a", props, nil), style("a", props, defaults), false},
		{"nil and empty maps", style("a", nil, nil), style("a", map[string]string{}, map[string]string{}), true},
		{"ids differ", style("a", nil, nil), &workbook.Style{ID: "other", Type: "topic", Name: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StylesEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("StylesEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRelationshipsEqual(t *testing.T) {
	rel := func(mt int64, title string) *workbook.Relationship {
		return &workbook.Relationship{ID: "r", End1ID: "a", End2ID: "b", Title: title, ModifiedTime: mt}
	}
	tests := []struct {
		name string
		a, b *workbook.Relationship
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", rel(1, ""), nil, false},
		{"same time, different title", rel(1, "x"), rel(1, "y"), true},
		{"different time, same fields", rel(1, "x"), rel(2, "x"), true},
		{"different time and title", rel(1, "x"), rel(2, "y"), false},
		{"different end", rel(1, ""), &workbook.Relationship{ID: "r", End1ID: "a", End2ID: "c", ModifiedTime: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelationshipsEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("RelationshipsEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}
