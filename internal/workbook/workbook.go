package workbook

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lherron/wbmerge/internal/id"
)

// Workbook is a mergeable document: an ordered set of sheets plus a style
// sheet. All elements are owned by the workbook and keyed by id.
type Workbook struct {
	ID            string                   `json:"id"`
	SheetOrder    []string                 `json:"sheet_order"`
	Sheets        map[string]*Sheet        `json:"sheets"`
	Topics        map[string]*Topic        `json:"topics"`
	Summaries     map[string]*Summary      `json:"summaries,omitempty"`
	Boundaries    map[string]*Boundary     `json:"boundaries,omitempty"`
	Relationships map[string]*Relationship `json:"relationships,omitempty"`
	StyleSheet    StyleSheet               `json:"style_sheet"`
}

// lastStamp keeps modification stamps strictly increasing within a process,
// so two workbooks edited in the same nanosecond still get distinct times.
var lastStamp atomic.Int64

func nextStamp() int64 {
	for {
		prev := lastStamp.Load()
		next := time.Now().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if lastStamp.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// New creates an empty workbook.
func New() *Workbook {
	w := &Workbook{ID: id.New()}
	w.init()
	return w
}

// init makes sure every map is allocated.
func (w *Workbook) init() {
	if w.Sheets == nil {
		w.Sheets = make(map[string]*Sheet)
	}
	if w.Topics == nil {
		w.Topics = make(map[string]*Topic)
	}
	if w.Summaries == nil {
		w.Summaries = make(map[string]*Summary)
	}
	if w.Boundaries == nil {
		w.Boundaries = make(map[string]*Boundary)
	}
	if w.Relationships == nil {
		w.Relationships = make(map[string]*Relationship)
	}
	if w.StyleSheet.Styles == nil {
		w.StyleSheet.Styles = make(map[string]*Style)
	}
	if w.StyleSheet.Groups == nil {
		w.StyleSheet.Groups = make(map[string][]string)
	}
}

// KindOf reports which collection holds id.
func (w *Workbook) KindOf(elementID string) (id.Kind, bool) {
	if _, ok := w.Sheets[elementID]; ok {
		return id.KindSheet, true
	}
	if _, ok := w.Topics[elementID]; ok {
		return id.KindTopic, true
	}
	if _, ok := w.Summaries[elementID]; ok {
		return id.KindSummary, true
	}
	if _, ok := w.Boundaries[elementID]; ok {
		return id.KindBoundary, true
	}
	if _, ok := w.Relationships[elementID]; ok {
		return id.KindRelationship, true
	}
	if _, ok := w.StyleSheet.Styles[elementID]; ok {
		return id.KindStyle, true
	}
	return "", false
}

// Has reports whether any element of the workbook uses id.
func (w *Workbook) Has(elementID string) bool {
	_, ok := w.KindOf(elementID)
	return ok
}

// SheetList returns the sheets in workbook order.
func (w *Workbook) SheetList() []*Sheet {
	sheets := make([]*Sheet, 0, len(w.SheetOrder))
	for _, sid := range w.SheetOrder {
		if s, ok := w.Sheets[sid]; ok {
			sheets = append(sheets, s)
		}
	}
	return sheets
}

// Sheet returns the sheet with the given id, or nil.
func (w *Workbook) Sheet(sheetID string) *Sheet {
	return w.Sheets[sheetID]
}

// Topic returns the topic with the given id, or nil.
func (w *Workbook) Topic(topicID string) *Topic {
	return w.Topics[topicID]
}

// RootTopic returns the root topic of a sheet, or nil.
func (w *Workbook) RootTopic(sheetID string) *Topic {
	s := w.Sheets[sheetID]
	if s == nil {
		return nil
	}
	return w.Topics[s.RootTopicID]
}

// FindTopic returns the topic with the given id if it belongs to sheetID.
func (w *Workbook) FindTopic(topicID, sheetID string) *Topic {
	t := w.Topics[topicID]
	if t == nil || t.SheetID != sheetID {
		return nil
	}
	return t
}

// FindSummary returns the summary with the given id if it belongs to sheetID.
func (w *Workbook) FindSummary(summaryID, sheetID string) *Summary {
	s := w.Summaries[summaryID]
	if s == nil || w.FindTopic(s.ParentID, sheetID) == nil {
		return nil
	}
	return s
}

// FindBoundary returns the boundary with the given id if it belongs to sheetID.
func (w *Workbook) FindBoundary(boundaryID, sheetID string) *Boundary {
	b := w.Boundaries[boundaryID]
	if b == nil || w.FindTopic(b.ParentID, sheetID) == nil {
		return nil
	}
	return b
}

// FindStyle returns the style with the given id, or nil. An empty id
// resolves to nil.
func (w *Workbook) FindStyle(styleID string) *Style {
	if styleID == "" {
		return nil
	}
	return w.StyleSheet.Styles[styleID]
}

// StylesIn returns the styles of a group in order.
func (w *Workbook) StylesIn(group string) []*Style {
	ids := w.StyleSheet.Groups[group]
	styles := make([]*Style, 0, len(ids))
	for _, sid := range ids {
		if s, ok := w.StyleSheet.Styles[sid]; ok {
			styles = append(styles, s)
		}
	}
	return styles
}

// StyleGroup returns the group a style is registered in.
func (w *Workbook) StyleGroup(styleID string) (string, bool) {
	for _, group := range StyleGroups {
		for _, sid := range w.StyleSheet.Groups[group] {
			if sid == styleID {
				return group, true
			}
		}
	}
	return "", false
}

// SheetRelationships returns a sheet's relationships in order.
func (w *Workbook) SheetRelationships(sheetID string) []*Relationship {
	s := w.Sheets[sheetID]
	if s == nil {
		return nil
	}
	rels := make([]*Relationship, 0, len(s.RelationshipIDs))
	for _, rid := range s.RelationshipIDs {
		if r, ok := w.Relationships[rid]; ok {
			rels = append(rels, r)
		}
	}
	return rels
}

// Children returns every child of a topic, of all types, in order.
func (w *Workbook) Children(topicID string) []*Topic {
	t := w.Topics[topicID]
	if t == nil {
		return nil
	}
	children := make([]*Topic, 0, len(t.ChildIDs))
	for _, cid := range t.ChildIDs {
		if c, ok := w.Topics[cid]; ok {
			children = append(children, c)
		}
	}
	return children
}

// ChildrenOfType returns the children of a topic that have the given type.
func (w *Workbook) ChildrenOfType(topicID string, typ TopicType) []*Topic {
	var children []*Topic
	for _, c := range w.Children(topicID) {
		if c.Type == typ {
			children = append(children, c)
		}
	}
	return children
}

// SiblingIndex returns the position of a topic among its parent's children
// of the same type, or -1 for a root or unknown topic.
func (w *Workbook) SiblingIndex(topicID string) int {
	t := w.Topics[topicID]
	if t == nil || t.ParentID == "" {
		return -1
	}
	for i, sibling := range w.ChildrenOfType(t.ParentID, t.Type) {
		if sibling.ID == topicID {
			return i
		}
	}
	return -1
}

// Enclosing returns the attached children of parentID in the inclusive
// range [start, end], clipped to the children that exist.
func (w *Workbook) Enclosing(parentID string, start, end int) []*Topic {
	attached := w.ChildrenOfType(parentID, TopicAttached)
	if start < 0 {
		start = 0
	}
	if end >= len(attached) {
		end = len(attached) - 1
	}
	if start > end {
		return nil
	}
	return attached[start : end+1]
}

// SummaryTopics returns the topics a summary spans.
func (w *Workbook) SummaryTopics(s *Summary) []*Topic {
	return w.Enclosing(s.ParentID, s.StartIndex, s.EndIndex)
}

// BoundaryTopics returns the topics a boundary spans.
func (w *Workbook) BoundaryTopics(b *Boundary) []*Topic {
	return w.Enclosing(b.ParentID, b.StartIndex, b.EndIndex)
}

// TopicSummaries returns the summaries attached to a topic.
func (w *Workbook) TopicSummaries(topicID string) []*Summary {
	t := w.Topics[topicID]
	if t == nil {
		return nil
	}
	out := make([]*Summary, 0, len(t.SummaryIDs))
	for _, sid := range t.SummaryIDs {
		if s, ok := w.Summaries[sid]; ok {
			out = append(out, s)
		}
	}
	return out
}

// TopicBoundaries returns the boundaries attached to a topic.
func (w *Workbook) TopicBoundaries(topicID string) []*Boundary {
	t := w.Topics[topicID]
	if t == nil {
		return nil
	}
	out := make([]*Boundary, 0, len(t.BoundaryIDs))
	for _, bid := range t.BoundaryIDs {
		if b, ok := w.Boundaries[bid]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Touch marks an element as edited now. Editing anything inside a sheet
// also marks the sheet.
func (w *Workbook) Touch(elementID string) error {
	stamp := nextStamp()
	sheetID := ""
	switch kind, _ := w.KindOf(elementID); kind {
	case id.KindSheet:
		sheetID = elementID
	case id.KindTopic:
		t := w.Topics[elementID]
		t.ModifiedTime = stamp
		sheetID = t.SheetID
	case id.KindSummary:
		s := w.Summaries[elementID]
		s.ModifiedTime = stamp
		if p := w.Topics[s.ParentID]; p != nil {
			sheetID = p.SheetID
		}
	case id.KindBoundary:
		b := w.Boundaries[elementID]
		b.ModifiedTime = stamp
		if p := w.Topics[b.ParentID]; p != nil {
			sheetID = p.SheetID
		}
	case id.KindRelationship:
		r := w.Relationships[elementID]
		r.ModifiedTime = stamp
		sheetID = r.SheetID
	case id.KindStyle:
		return nil
	default:
		return fmt.Errorf("touch %s: %w", elementID, ErrNotFound)
	}
	if s := w.Sheets[sheetID]; s != nil {
		s.ModifiedTime = stamp
	}
	return nil
}

// AddSheet appends a new sheet with an empty root topic.
func (w *Workbook) AddSheet(title string) *Sheet {
	stamp := nextStamp()
	root := &Topic{
		ID:           id.New(),
		Type:         TopicRoot,
		Attached:     true,
		ModifiedTime: stamp,
	}
	s := &Sheet{
		ID:           id.New(),
		Title:        title,
		RootTopicID:  root.ID,
		ModifiedTime: stamp,
	}
	root.SheetID = s.ID
	w.Sheets[s.ID] = s
	w.Topics[root.ID] = root
	w.SheetOrder = append(w.SheetOrder, s.ID)
	return s
}

// AddTopic creates a new attached child at the end of parentID's children.
func (w *Workbook) AddTopic(parentID, title string) (*Topic, error) {
	return w.addTopic(parentID, title, TopicAttached)
}

func (w *Workbook) addTopic(parentID, title string, typ TopicType) (*Topic, error) {
	parent := w.Topics[parentID]
	if parent == nil {
		return nil, fmt.Errorf("parent topic %s: %w", parentID, ErrNotFound)
	}
	t := &Topic{
		ID:       id.New(),
		SheetID:  parent.SheetID,
		ParentID: parentID,
		Type:     typ,
		Title:    title,
		Attached: parent.Attached,
	}
	w.Topics[t.ID] = t
	parent.ChildIDs = append(parent.ChildIDs, t.ID)
	if err := w.Touch(t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// AddSummary creates a summary over the attached children [start, end] of
// parentID, together with its heading topic.
func (w *Workbook) AddSummary(parentID string, start, end int, heading string) (*Summary, error) {
	if err := w.checkRange(parentID, start, end); err != nil {
		return nil, err
	}
	head, err := w.addTopic(parentID, heading, TopicSummary)
	if err != nil {
		return nil, err
	}
	s := &Summary{ID: id.New(), TopicID: head.ID, StartIndex: start, EndIndex: end}
	w.Summaries[s.ID] = s
	if err := w.AttachSummary(parentID, s.ID); err != nil {
		return nil, err
	}
	return s, w.Touch(s.ID)
}

// AddBoundary creates a boundary over the attached children [start, end]
// of parentID.
func (w *Workbook) AddBoundary(parentID string, start, end int) (*Boundary, error) {
	if err := w.checkRange(parentID, start, end); err != nil {
		return nil, err
	}
	b := &Boundary{ID: id.New(), StartIndex: start, EndIndex: end}
	w.Boundaries[b.ID] = b
	if err := w.AttachBoundary(parentID, b.ID); err != nil {
		return nil, err
	}
	return b, w.Touch(b.ID)
}

func (w *Workbook) checkRange(parentID string, start, end int) error {
	if w.Topics[parentID] == nil {
		return fmt.Errorf("parent topic %s: %w", parentID, ErrNotFound)
	}
	n := len(w.ChildrenOfType(parentID, TopicAttached))
	if start < 0 || end < start || end >= n {
		return fmt.Errorf("range [%d, %d] out of bounds for %d children of %s", start, end, n, parentID)
	}
	return nil
}

// AddRelationship links two topics of a sheet.
func (w *Workbook) AddRelationship(sheetID, end1ID, end2ID string) (*Relationship, error) {
	if w.Sheets[sheetID] == nil {
		return nil, fmt.Errorf("sheet %s: %w", sheetID, ErrNotFound)
	}
	r := &Relationship{ID: id.New(), SheetID: sheetID, End1ID: end1ID, End2ID: end2ID}
	w.Relationships[r.ID] = r
	if err := w.AddSheetRelationship(sheetID, r.ID); err != nil {
		return nil, err
	}
	return r, w.Touch(r.ID)
}

// AddStyle registers a style in a group. The style keeps its id.
func (w *Workbook) AddStyle(group string, s *Style) error {
	if !validGroup(group) {
		return fmt.Errorf("unknown style group %q", group)
	}
	if s.ID == "" {
		s.ID = id.New()
	}
	if w.Has(s.ID) {
		return fmt.Errorf("style %s: %w", s.ID, ErrDuplicateID)
	}
	w.StyleSheet.Styles[s.ID] = s
	w.StyleSheet.Groups[group] = append(w.StyleSheet.Groups[group], s.ID)
	return nil
}

func validGroup(group string) bool {
	for _, g := range StyleGroups {
		if g == group {
			return true
		}
	}
	return false
}

// AppendSheet adds a sheet that is already in the arena to the sheet order.
func (w *Workbook) AppendSheet(sheetID string) error {
	if w.Sheets[sheetID] == nil {
		return fmt.Errorf("sheet %s: %w", sheetID, ErrNotFound)
	}
	for _, sid := range w.SheetOrder {
		if sid == sheetID {
			return nil
		}
	}
	w.SheetOrder = append(w.SheetOrder, sheetID)
	return nil
}

// AttachChild appends childID to parentID's children. The child and its
// subtree move to the parent's sheet.
func (w *Workbook) AttachChild(parentID, childID string) error {
	parent := w.Topics[parentID]
	if parent == nil {
		return fmt.Errorf("parent topic %s: %w", parentID, ErrNotFound)
	}
	child := w.Topics[childID]
	if child == nil {
		return fmt.Errorf("child topic %s: %w", childID, ErrNotFound)
	}
	if child.ParentID != "" {
		return fmt.Errorf("topic %s already has parent %s", childID, child.ParentID)
	}
	child.ParentID = parentID
	if child.Type == "" || child.Type == TopicRoot {
		child.Type = TopicAttached
	}
	parent.ChildIDs = append(parent.ChildIDs, childID)
	w.moveToSheet(child, parent.SheetID, parent.Attached)
	return nil
}

func (w *Workbook) moveToSheet(t *Topic, sheetID string, attached bool) {
	t.SheetID = sheetID
	t.Attached = attached
	for _, cid := range t.ChildIDs {
		if c := w.Topics[cid]; c != nil {
			w.moveToSheet(c, sheetID, attached)
		}
	}
}

// RemoveChildren deletes every child of a topic together with their
// subtrees. The topic's own summaries and boundaries are deleted too, since
// the ranges they span no longer exist.
func (w *Workbook) RemoveChildren(topicID string) error {
	t := w.Topics[topicID]
	if t == nil {
		return fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	for _, cid := range t.ChildIDs {
		w.deleteSubtree(cid)
	}
	t.ChildIDs = nil
	w.deleteAnnotations(t)
	return nil
}

func (w *Workbook) deleteSubtree(topicID string) {
	t := w.Topics[topicID]
	if t == nil {
		return
	}
	for _, cid := range t.ChildIDs {
		w.deleteSubtree(cid)
	}
	w.deleteAnnotations(t)
	delete(w.Topics, topicID)
}

func (w *Workbook) deleteAnnotations(t *Topic) {
	for _, sid := range t.SummaryIDs {
		delete(w.Summaries, sid)
	}
	for _, bid := range t.BoundaryIDs {
		delete(w.Boundaries, bid)
	}
	t.SummaryIDs = nil
	t.BoundaryIDs = nil
}

// AttachSummary hangs a summary off parentID.
func (w *Workbook) AttachSummary(parentID, summaryID string) error {
	parent := w.Topics[parentID]
	if parent == nil {
		return fmt.Errorf("parent topic %s: %w", parentID, ErrNotFound)
	}
	s := w.Summaries[summaryID]
	if s == nil {
		return fmt.Errorf("summary %s: %w", summaryID, ErrNotFound)
	}
	s.ParentID = parentID
	parent.SummaryIDs = append(parent.SummaryIDs, summaryID)
	return nil
}

// AttachBoundary hangs a boundary off parentID.
func (w *Workbook) AttachBoundary(parentID, boundaryID string) error {
	parent := w.Topics[parentID]
	if parent == nil {
		return fmt.Errorf("parent topic %s: %w", parentID, ErrNotFound)
	}
	b := w.Boundaries[boundaryID]
	if b == nil {
		return fmt.Errorf("boundary %s: %w", boundaryID, ErrNotFound)
	}
	b.ParentID = parentID
	parent.BoundaryIDs = append(parent.BoundaryIDs, boundaryID)
	return nil
}

// AddSheetRelationship records a relationship as belonging to a sheet.
func (w *Workbook) AddSheetRelationship(sheetID, relationshipID string) error {
	s := w.Sheets[sheetID]
	if s == nil {
		return fmt.Errorf("sheet %s: %w", sheetID, ErrNotFound)
	}
	r := w.Relationships[relationshipID]
	if r == nil {
		return fmt.Errorf("relationship %s: %w", relationshipID, ErrNotFound)
	}
	r.SheetID = sheetID
	s.RelationshipIDs = append(s.RelationshipIDs, relationshipID)
	return nil
}
