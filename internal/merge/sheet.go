package merge

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/lherron/wbmerge/internal/workbook"
)

// SheetMerger merges one sheet that was changed in both workbooks. The merge
// runs when the merger is created; the merger then holds the conflicts found.
type SheetMerger struct {
	Triple[*workbook.Sheet]

	source *workbook.Workbook
	target *workbook.Workbook
	result *workbook.Workbook
	cmp    Comparator
	log    logrus.FieldLogger

	topicConflicts        []*TopicConflict
	relationshipConflicts []Triple[*workbook.Relationship]
	summaryConflicts      []Triple[*workbook.Summary]
	boundaryConflicts     []Triple[*workbook.Boundary]
	uncopiableSummaries   []*workbook.Summary
	uncopiableBoundaries  []*workbook.Boundary
}

// NewSheetMerger merges the source sheet of sheets into its result sheet.
// Both the source and the target sheet must be set. It fails with a
// *MismatchError when their root topics differ.
func NewSheetMerger(source, target, result *workbook.Workbook, sheets Triple[*workbook.Sheet], log logrus.FieldLogger) (*SheetMerger, error) {
	if source == nil || target == nil || result == nil || !sheets.Full() || !sheets.HasResult() {
		return nil, fmt.Errorf("%w: sheet merge needs source, target and result sheets", ErrInvalidArguments)
	}
	if log == nil {
		log = discardLogger()
	}
	sm := &SheetMerger{
		Triple: sheets,
		source: source,
		target: target,
		result: result,
		cmp:    NewComparator(source, target),
		log:    log.WithField("sheet", sheets.Source().ID),
	}

	srcRoot := source.RootTopic(sheets.Source().ID)
	tgtRoot := target.RootTopic(sheets.Target().ID)
	if srcRoot == nil || tgtRoot == nil || srcRoot.ID != tgtRoot.ID {
		e := &MismatchError{SheetID: sheets.Source().ID}
		if srcRoot != nil {
			e.SourceRoot = srcRoot.ID
		}
		if tgtRoot != nil {
			e.TargetRoot = tgtRoot.ID
		}
		return nil, e
	}

	if err := sm.scanTopic(srcRoot); err != nil {
		return nil, fmt.Errorf("failed to merge sheet %s: %w", sheets.Source().ID, err)
	}
	if err := sm.mergeRelationships(); err != nil {
		return nil, fmt.Errorf("failed to merge sheet %s: %w", sheets.Source().ID, err)
	}
	return sm, nil
}

// TopicConflicts returns topics changed differently in source and target.
func (sm *SheetMerger) TopicConflicts() []*TopicConflict {
	return append([]*TopicConflict(nil), sm.topicConflicts...)
}

// RelationshipConflicts returns relationships present in both sheets.
func (sm *SheetMerger) RelationshipConflicts() []Triple[*workbook.Relationship] {
	return append([]Triple[*workbook.Relationship](nil), sm.relationshipConflicts...)
}

// SummaryConflicts returns summaries present in both sheets.
func (sm *SheetMerger) SummaryConflicts() []Triple[*workbook.Summary] {
	return append([]Triple[*workbook.Summary](nil), sm.summaryConflicts...)
}

// BoundaryConflicts returns boundaries present in both sheets.
func (sm *SheetMerger) BoundaryConflicts() []Triple[*workbook.Boundary] {
	return append([]Triple[*workbook.Boundary](nil), sm.boundaryConflicts...)
}

// UncopiableSummaries returns source-only summaries whose topics do not form
// a contiguous run in the result, and which were therefore dropped.
func (sm *SheetMerger) UncopiableSummaries() []*workbook.Summary {
	return append([]*workbook.Summary(nil), sm.uncopiableSummaries...)
}

// UncopiableBoundaries is UncopiableSummaries for boundaries.
func (sm *SheetMerger) UncopiableBoundaries() []*workbook.Boundary {
	return append([]*workbook.Boundary(nil), sm.uncopiableBoundaries...)
}

// scanTopic merges the children and annotations of a source topic, then
// descends into each child.
func (sm *SheetMerger) scanTopic(src *workbook.Topic) error {
	for _, child := range sm.source.Children(src.ID) {
		// Summary headings are merged along with their summary.
		if child.Type == workbook.TopicSummary {
			continue
		}
		log := sm.log.WithField("topic", child.ID)
		tgt := sm.target.FindTopic(child.ID, sm.Target().ID)
		if moved := sm.target.Topic(child.ID); tgt == nil && moved != nil {
			// The target moved the topic to another sheet. Its subtree now
			// lives there, so the walk stops here.
			conflict := NewTopicConflict(sm.cmp, child, moved, sm.result.Topic(child.ID))
			log.Debug("topic moved to another sheet")
			sm.topicConflicts = append(sm.topicConflicts, conflict)
			continue
		}
		switch {
		case tgt == nil:
			if err := sm.importChild(child); err != nil {
				return err
			}
			log.Debug("imported topic")
		case tgt.ModifiedTime == child.ModifiedTime:
			log.Debug("topic unchanged")
		default:
			res := sm.result.FindTopic(child.ID, sm.Result().ID)
			conflict := NewTopicConflict(sm.cmp, child, tgt, res)
			if conflict.Identical() {
				log.Debug("topic touched but identical")
				break
			}
			log.WithField("fields", conflict.Differences()).Debug("topic conflict")
			sm.topicConflicts = append(sm.topicConflicts, conflict)
		}
		if err := sm.scanTopic(child); err != nil {
			return err
		}
	}

	if err := sm.scanSummaries(src); err != nil {
		return err
	}
	return sm.scanBoundaries(src)
}

// importChild copies a source-only topic under its parent's result
// counterpart. The copy starts without children; scanTopic adds them one by
// one.
func (sm *SheetMerger) importChild(child *workbook.Topic) error {
	parent := sm.result.FindTopic(child.ParentID, sm.Result().ID)
	if parent == nil {
		return fmt.Errorf("parent %s of topic %s: %w", child.ParentID, child.ID, workbook.ErrNotFound)
	}
	return sm.importUnder(parent.ID, child)
}

func (sm *SheetMerger) importUnder(parentID string, t *workbook.Topic) error {
	imported, err := sm.result.ImportTopic(sm.source, t)
	if err != nil {
		return err
	}
	if err := sm.result.AttachChild(parentID, imported.ID); err != nil {
		return err
	}
	return sm.result.RemoveChildren(imported.ID)
}

func (sm *SheetMerger) scanSummaries(src *workbook.Topic) error {
	for _, s := range sm.source.TopicSummaries(src.ID) {
		log := sm.log.WithField("id", s.ID)
		if tgt := sm.target.FindSummary(s.ID, sm.Target().ID); tgt != nil {
			log.Debug("summary conflict")
			res := sm.result.FindSummary(s.ID, sm.Result().ID)
			sm.summaryConflicts = append(sm.summaryConflicts, NewTriple(s, tgt, res))
			continue
		}

		parentID, start, end, ok := sm.placeRange(sm.source.SummaryTopics(s))
		if ok && (sm.result.Has(s.ID) || sm.result.Has(s.TopicID)) {
			log.Debug("summary belongs to another sheet")
			ok = false
		}
		if !ok {
			log.Debug("uncopiable summary")
			sm.uncopiableSummaries = append(sm.uncopiableSummaries, s)
			continue
		}
		imported, err := sm.result.ImportSummary(sm.source, s)
		if err != nil {
			return err
		}
		imported.StartIndex, imported.EndIndex = start, end
		if err := sm.result.AttachSummary(parentID, imported.ID); err != nil {
			return err
		}
		log.Debug("imported summary")

		head := sm.source.Topic(s.TopicID)
		if head == nil {
			continue
		}
		if err := sm.importUnder(parentID, head); err != nil {
			return err
		}
		if err := sm.scanTopic(head); err != nil {
			return err
		}
	}
	return nil
}

func (sm *SheetMerger) scanBoundaries(src *workbook.Topic) error {
	for _, b := range sm.source.TopicBoundaries(src.ID) {
		log := sm.log.WithField("id", b.ID)
		if tgt := sm.target.FindBoundary(b.ID, sm.Target().ID); tgt != nil {
			log.Debug("boundary conflict")
			res := sm.result.FindBoundary(b.ID, sm.Result().ID)
			sm.boundaryConflicts = append(sm.boundaryConflicts, NewTriple(b, tgt, res))
			continue
		}

		parentID, start, end, ok := sm.placeRange(sm.source.BoundaryTopics(b))
		if ok && sm.result.Has(b.ID) {
			log.Debug("boundary belongs to another sheet")
			ok = false
		}
		if !ok {
			log.Debug("uncopiable boundary")
			sm.uncopiableBoundaries = append(sm.uncopiableBoundaries, b)
			continue
		}
		imported, err := sm.result.ImportBoundary(sm.source, b)
		if err != nil {
			return err
		}
		imported.StartIndex, imported.EndIndex = start, end
		if err := sm.result.AttachBoundary(parentID, imported.ID); err != nil {
			return err
		}
		log.Debug("imported boundary")
	}
	return nil
}

// placeRange finds where a run of source topics sits in the result: their
// shared result parent and the index range they cover. It fails when the run
// is empty, when a topic is missing from the result or is not an attached
// child there, when the topics have different result parents, or when their
// indices leave a gap.
func (sm *SheetMerger) placeRange(enclosing []*workbook.Topic) (parentID string, start, end int, ok bool) {
	if len(enclosing) == 0 {
		return "", 0, 0, false
	}
	indexes := make([]int, 0, len(enclosing))
	for i, enc := range enclosing {
		rt := sm.result.FindTopic(enc.ID, sm.Result().ID)
		if rt == nil || rt.ParentID == "" || rt.Type != workbook.TopicAttached {
			return "", 0, 0, false
		}
		if i == 0 {
			parentID = rt.ParentID
		} else if rt.ParentID != parentID {
			return "", 0, 0, false
		}
		indexes = append(indexes, sm.result.SiblingIndex(rt.ID))
	}

	sort.Ints(indexes)
	for i := 1; i < len(indexes); i++ {
		if indexes[i] != indexes[i-1]+1 {
			return "", 0, 0, false
		}
	}
	return parentID, indexes[0], indexes[len(indexes)-1], true
}

// mergeRelationships imports source-only relationships and keeps the ones
// present on both sides, on this sheet or another, as conflicts. Relationships are not tied to sibling
// order, so imports always succeed.
func (sm *SheetMerger) mergeRelationships() error {
	triples := Correspond(relationshipID,
		sm.source.SheetRelationships(sm.Source().ID),
		sm.target.SheetRelationships(sm.Target().ID),
		sm.result.SheetRelationships(sm.Result().ID))

	for _, t := range triples {
		switch {
		case t.Full():
			sm.relationshipConflicts = append(sm.relationshipConflicts, t)
		case t.HasSource() && sm.target.Relationships[t.Source().ID] != nil:
			// Kept by the target on another sheet.
			id := t.Source().ID
			sm.log.WithField("id", id).Debug("relationship on another sheet")
			sm.relationshipConflicts = append(sm.relationshipConflicts,
				NewTriple(t.Source(), sm.target.Relationships[id], sm.result.Relationships[id]))
		case t.HasSource():
			imported, err := sm.result.ImportRelationship(sm.source, t.Source())
			if err != nil {
				return err
			}
			if err := sm.result.AddSheetRelationship(sm.Result().ID, imported.ID); err != nil {
				return err
			}
			sm.log.WithField("id", imported.ID).Debug("imported relationship")
		}
	}
	return nil
}
