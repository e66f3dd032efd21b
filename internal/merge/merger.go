package merge

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/lherron/wbmerge/internal/workbook"
)

// Cloner deep-copies a workbook.
type Cloner func(*workbook.Workbook) (*workbook.Workbook, error)

// Option configures a WorkbookMerger.
type Option func(*WorkbookMerger)

// WithCloner replaces the function used to clone the target workbook.
func WithCloner(c Cloner) Option {
	return func(m *WorkbookMerger) { m.clone = c }
}

// WithLogger sets the logger merge decisions are written to at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *WorkbookMerger) { m.log = l }
}

// WithSkipMismatched makes MergeSheets skip sheets whose root topics differ
// instead of failing. Skipped sheet ids are reported by SkippedSheets.
func WithSkipMismatched(skip bool) Option {
	return func(m *WorkbookMerger) { m.skipMismatched = skip }
}

type mergeState int

const (
	stateUnmerged mergeState = iota
	stateMerged
	stateFailed
)

// WorkbookMerger merges a source workbook into a clone of a target workbook.
// Source and target are never modified and must not be modified by anyone
// else while the merger is in use.
type WorkbookMerger struct {
	source *workbook.Workbook
	target *workbook.Workbook
	result *workbook.Workbook

	clone          Cloner
	log            logrus.FieldLogger
	skipMismatched bool

	state   mergeState
	sheets  []*SheetMerger
	err     error
	skipped []string
}

// New clones target into a fresh result workbook.
func New(source, target *workbook.Workbook, opts ...Option) (*WorkbookMerger, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("%w: source and target workbooks are required", ErrInvalidArguments)
	}
	m := &WorkbookMerger{
		source: source,
		target: target,
		clone:  (*workbook.Workbook).Clone,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = discardLogger()
	}

	result, err := m.clone(target)
	if err != nil {
		return nil, &CloneError{WorkbookID: target.ID, Err: err}
	}
	if result == nil {
		return nil, &CloneError{WorkbookID: target.ID, Err: errors.New("cloner returned no workbook")}
	}
	m.result = result
	return m, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (m *WorkbookMerger) Source() *workbook.Workbook { return m.source }
func (m *WorkbookMerger) Target() *workbook.Workbook { return m.target }

// Result returns the merged workbook. Conflicts are resolved by editing it.
func (m *WorkbookMerger) Result() *workbook.Workbook { return m.result }

// SkippedSheets returns the ids of sheets left unmerged: sheets whose root
// topics differ when WithSkipMismatched is set, and source-only sheets that
// share elements with the result.
func (m *WorkbookMerger) SkippedSheets() []string {
	return append([]string(nil), m.skipped...)
}

// MergeSheets copies source-only sheets into the result and merges every
// sheet changed on both sides. It returns one SheetMerger per merged sheet.
// Only the first call does any work; later calls return the same slice, or
// the same error.
func (m *WorkbookMerger) MergeSheets() ([]*SheetMerger, error) {
	switch m.state {
	case stateMerged:
		return m.sheets, nil
	case stateFailed:
		return nil, m.err
	}

	sheets, err := m.mergeSheets()
	if err != nil {
		m.state = stateFailed
		m.err = err
		return nil, err
	}
	m.state = stateMerged
	m.sheets = sheets
	return sheets, nil
}

func (m *WorkbookMerger) mergeSheets() ([]*SheetMerger, error) {
	sheets := []*SheetMerger{}
	triples := Correspond(sheetID, m.source.SheetList(), m.target.SheetList(), m.result.SheetList())
	for _, t := range triples {
		switch {
		case t.Full():
			log := m.log.WithField("sheet", t.Source().ID)
			if t.Source().ModifiedTime == t.Target().ModifiedTime {
				log.Debug("sheet unchanged")
				continue
			}
			sm, err := NewSheetMerger(m.source, m.target, m.result, t, m.log)
			var mismatch *MismatchError
			if errors.As(err, &mismatch) && m.skipMismatched {
				log.WithError(err).Warn("skipping sheet")
				m.skipped = append(m.skipped, mismatch.SheetID)
				continue
			}
			if err != nil {
				return nil, err
			}
			sheets = append(sheets, sm)
		case t.HasSource():
			if id := sheetCollision(m.result, m.source, t.Source()); id != "" {
				// The target deleted the sheet after moving some of it elsewhere.
				m.log.WithFields(logrus.Fields{"sheet": t.Source().ID, "id": id}).
					Warn("skipping source sheet whose elements the target moved")
				m.skipped = append(m.skipped, t.Source().ID)
				continue
			}
			imported, err := m.result.ImportSheet(m.source, t.Source())
			if err != nil {
				return nil, fmt.Errorf("failed to import sheet %s: %w", t.Source().ID, err)
			}
			if err := m.result.AppendSheet(imported.ID); err != nil {
				return nil, err
			}
			m.log.WithField("sheet", imported.ID).Debug("imported sheet")
		}
	}
	return sheets, nil
}

// MergeStyles copies source-only styles into the result and returns, per
// style group, the styles that exist on both sides with different content.
// Every group has an entry, possibly empty. It is recomputed on every call.
func (m *WorkbookMerger) MergeStyles() (map[string][]Triple[*workbook.Style], error) {
	conflicts := make(map[string][]Triple[*workbook.Style], len(workbook.StyleGroups))
	for _, group := range workbook.StyleGroups {
		list := []Triple[*workbook.Style]{}
		triples := Correspond(styleID, m.source.StylesIn(group), m.target.StylesIn(group), m.result.StylesIn(group))
		for _, t := range triples {
			switch {
			case t.Full():
				if !StylesEqual(t.Source(), t.Target()) {
					m.log.WithFields(logrus.Fields{"group": group, "id": t.Source().ID}).Debug("style conflict")
					list = append(list, t)
				}
			case t.HasSource():
				// Importing topics may already have brought the style along.
				if m.result.FindStyle(t.Source().ID) != nil {
					continue
				}
				if err := m.result.AddStyle(group, workbook.ImportStyle(t.Source())); err != nil {
					return nil, fmt.Errorf("failed to import style %s: %w", t.Source().ID, err)
				}
				m.log.WithFields(logrus.Fields{"group": group, "id": t.Source().ID}).Debug("imported style")
			}
		}
		conflicts[group] = list
	}
	return conflicts, nil
}

// sheetCollision returns the id of an element of sheet s that result already
// holds, or "" when the sheet can be imported.
func sheetCollision(result, source *workbook.Workbook, s *workbook.Sheet) string {
	if result.Has(s.ID) {
		return s.ID
	}
	for _, t := range source.Topics {
		if t.SheetID != s.ID {
			continue
		}
		if result.Has(t.ID) {
			return t.ID
		}
		for _, sum := range source.TopicSummaries(t.ID) {
			if result.Has(sum.ID) {
				return sum.ID
			}
		}
		for _, b := range source.TopicBoundaries(t.ID) {
			if result.Has(b.ID) {
				return b.ID
			}
		}
	}
	for _, r := range source.SheetRelationships(s.ID) {
		if result.Has(r.ID) {
			return r.ID
		}
	}
	return ""
}
