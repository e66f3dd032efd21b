// Package workbook is the in-memory document model merged by wbmerge.
//
// A Workbook owns every element it contains in id-keyed maps. Elements refer
// to each other only by id (parent, children, summaries, boundaries,
// relationship endpoints, style ids), so a workbook can be cloned, imported
// from and mutated without aliasing another workbook's elements.
package workbook

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id does not resolve in a workbook.
	ErrNotFound = errors.New("element not found")
	// ErrDuplicateID is returned when an element id is already in use.
	ErrDuplicateID = errors.New("duplicate element id")
)

// TopicType tags the role a topic plays under its parent
type TopicType string

const (
	TopicRoot     TopicType = "root"
	TopicAttached TopicType = "attached"
	TopicDetached TopicType = "detached"
	// TopicSummary marks the heading topic owned by a Summary.
	TopicSummary TopicType = "summary"
)

// Style group names
const (
	NormalStyles    = "styles"
	AutomaticStyles = "automatic-styles"
	MasterStyles    = "master-styles"
)

// StyleGroups lists the style groups in the order they are merged.
var StyleGroups = []string{NormalStyles, AutomaticStyles, MasterStyles}

// Sheet is one tree-shaped canvas of a workbook.
type Sheet struct {
	ID              string   `json:"id"`
	Title           string   `json:"title,omitempty"`
	RootTopicID     string   `json:"root_topic_id"`
	RelationshipIDs []string `json:"relationships,omitempty"`
	StyleID         string   `json:"style_id,omitempty"`
	ModifiedTime    int64    `json:"modified_time"`
}

// Topic is a node of a sheet's tree.
type Topic struct {
	ID             string            `json:"id"`
	SheetID        string            `json:"sheet_id"`
	ParentID       string            `json:"parent_id,omitempty"`
	Type           TopicType         `json:"type"`
	ChildIDs       []string          `json:"children,omitempty"`
	SummaryIDs     []string          `json:"summaries,omitempty"`
	BoundaryIDs    []string          `json:"boundaries,omitempty"`
	ModifiedTime   int64             `json:"modified_time"`
	Title          string            `json:"title,omitempty"`
	TitleWidth     int               `json:"title_width,omitempty"`
	Hyperlink      string            `json:"hyperlink,omitempty"`
	StructureClass string            `json:"structure_class,omitempty"`
	Attached       bool              `json:"attached"`
	Position       *Point            `json:"position,omitempty"`
	Image          *Image            `json:"image,omitempty"`
	Labels         []string          `json:"labels,omitempty"`
	Markers        map[string]string `json:"markers,omitempty"` // marker id -> description
	Notes          *Notes            `json:"notes,omitempty"`
	Numbering      Numbering         `json:"numbering"`
	StyleID        string            `json:"style_id,omitempty"`
}

// Point is a free-form position on the canvas.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Image is a picture shown on a topic.
type Image struct {
	Source    string `json:"source,omitempty"`
	Width     *int   `json:"width,omitempty"`
	Height    *int   `json:"height,omitempty"`
	Alignment string `json:"alignment,omitempty"`
}

// Numbering controls the numbering of a topic's children.
type Numbering struct {
	Format string `json:"format,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// Notes holds a topic's notes as plain text and as rich text.
type Notes struct {
	Plain      string      `json:"plain,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
}

// IsEmpty reports whether the notes carry no content. A nil Notes is empty.
func (n *Notes) IsEmpty() bool {
	return n == nil || (n.Plain == "" && len(n.Paragraphs) == 0)
}

// Paragraph is one paragraph of rich-text notes.
type Paragraph struct {
	StyleID string `json:"style_id,omitempty"`
	Spans   Spans  `json:"spans,omitempty"`
}

// SpanKind identifies the variant of a Span
type SpanKind string

const (
	SpanText      SpanKind = "text"
	SpanHyperlink SpanKind = "hyperlink"
	SpanImage     SpanKind = "image"
)

// Span is an inline run of rich text. The set of implementations is closed:
// TextSpan, HyperlinkSpan and ImageSpan.
type Span interface {
	Kind() SpanKind
	Style() string
	isSpan()
}

// TextSpan is a run of styled text.
type TextSpan struct {
	StyleID string
	Text    string
}

// HyperlinkSpan wraps nested spans in a link.
type HyperlinkSpan struct {
	StyleID string
	Href    string
	Spans   Spans
}

// ImageSpan is an inline image.
type ImageSpan struct {
	StyleID string
	Source  string
}

func (s TextSpan) Kind() SpanKind      { return SpanText }
func (s HyperlinkSpan) Kind() SpanKind { return SpanHyperlink }
func (s ImageSpan) Kind() SpanKind     { return SpanImage }

func (s TextSpan) Style() string      { return s.StyleID }
func (s HyperlinkSpan) Style() string { return s.StyleID }
func (s ImageSpan) Style() string     { return s.StyleID }

func (TextSpan) isSpan()      {}
func (HyperlinkSpan) isSpan() {}
func (ImageSpan) isSpan()     {}

// Spans is an ordered span list. It encodes each span as a tagged object.
type Spans []Span

type spanJSON struct {
	Kind    SpanKind `json:"kind"`
	StyleID string   `json:"style_id,omitempty"`
	Text    string   `json:"text,omitempty"`
	Href    string   `json:"href,omitempty"`
	Source  string   `json:"source,omitempty"`
	Spans   Spans    `json:"spans,omitempty"`
}

func (s Spans) MarshalJSON() ([]byte, error) {
	out := make([]spanJSON, 0, len(s))
	for _, span := range s {
		switch v := span.(type) {
		case TextSpan:
			out = append(out, spanJSON{Kind: SpanText, StyleID: v.StyleID, Text: v.Text})
		case HyperlinkSpan:
			out = append(out, spanJSON{Kind: SpanHyperlink, StyleID: v.StyleID, Href: v.Href, Spans: v.Spans})
		case ImageSpan:
			out = append(out, spanJSON{Kind: SpanImage, StyleID: v.StyleID, Source: v.Source})
		default:
			return nil, fmt.Errorf("unsupported span type %T", span)
		}
	}
	return json.Marshal(out)
}

func (s *Spans) UnmarshalJSON(data []byte) error {
	var raw []spanJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	spans := make(Spans, 0, len(raw))
	for i, r := range raw {
		switch r.Kind {
		case SpanText:
			spans = append(spans, TextSpan{StyleID: r.StyleID, Text: r.Text})
		case SpanHyperlink:
			spans = append(spans, HyperlinkSpan{StyleID: r.StyleID, Href: r.Href, Spans: r.Spans})
		case SpanImage:
			spans = append(spans, ImageSpan{StyleID: r.StyleID, Source: r.Source})
		default:
			return fmt.Errorf("span %d: unknown kind %q", i, r.Kind)
		}
	}
	*s = spans
	return nil
}

// Summary groups a contiguous run of attached siblings under a heading topic.
type Summary struct {
	ID           string `json:"id"`
	ParentID     string `json:"parent_id,omitempty"`
	TopicID      string `json:"topic_id"`
	StartIndex   int    `json:"start_index"`
	EndIndex     int    `json:"end_index"`
	StyleID      string `json:"style_id,omitempty"`
	ModifiedTime int64  `json:"modified_time"`
}

// Boundary draws an outline around a contiguous run of attached siblings.
type Boundary struct {
	ID           string `json:"id"`
	ParentID     string `json:"parent_id,omitempty"`
	StartIndex   int    `json:"start_index"`
	EndIndex     int    `json:"end_index"`
	Title        string `json:"title,omitempty"`
	StyleID      string `json:"style_id,omitempty"`
	ModifiedTime int64  `json:"modified_time"`
}

// Relationship links two topics anywhere in a sheet.
type Relationship struct {
	ID           string `json:"id"`
	SheetID      string `json:"sheet_id"`
	End1ID       string `json:"end1_id"`
	End2ID       string `json:"end2_id"`
	Title        string `json:"title,omitempty"`
	StyleID      string `json:"style_id,omitempty"`
	ModifiedTime int64  `json:"modified_time"`
}

// Style is a named set of visual properties.
type Style struct {
	ID         string            `json:"id"`
	Type       string            `json:"type,omitempty"`
	Name       string            `json:"name,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Defaults   map[string]string `json:"defaults,omitempty"`
}

// StyleSheet holds a workbook's styles, partitioned into groups.
type StyleSheet struct {
	Styles map[string]*Style   `json:"styles,omitempty"`
	Groups map[string][]string `json:"groups,omitempty"` // group -> ordered style ids
}

// ValidationError describes one broken invariant of a workbook.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}
