package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/wbmerge/internal/cursor"
	"github.com/lherron/wbmerge/internal/events"
	"github.com/lherron/wbmerge/internal/names"
	"github.com/lherron/wbmerge/internal/workbook"
)

// Entry describes a stored workbook.
type Entry struct {
	Name       string `json:"name" yaml:"name"`
	WorkbookID string `json:"workbook_id" yaml:"workbook_id"`
	Rev        string `json:"rev" yaml:"rev"`
	Sheets     int    `json:"sheets" yaml:"sheets"`
	Revisions  int    `json:"revisions" yaml:"revisions"`
	UpdatedAt  string `json:"updated_at" yaml:"updated_at"`
}

// SaveResult reports what a save changed.
type SaveResult struct {
	Name         string `json:"name" yaml:"name"`
	Rev          string `json:"rev" yaml:"rev"`
	Unchanged    bool   `json:"unchanged" yaml:"unchanged"`
	NewRevisions int    `json:"new_revisions" yaml:"new_revisions"`
}

// SheetRevision is a stored copy of one sheet.
type SheetRevision struct {
	SheetID      string
	ModifiedTime int64
	Rev          string
	CreatedAt    string
	// Content is a one-sheet workbook holding the revision.
	Content *workbook.Workbook
}

// SaveWorkbook stores wb under name, replacing any previous content, and
// records a revision for every sheet whose modified time is new.
func (s *Store) SaveWorkbook(name string, wb *workbook.Workbook) (*SaveResult, error) {
	return s.save(name, wb, nil)
}

// SaveMerged stores the result of a merge under name and records the merge
// in the workbook's history, even when the content did not change.
func (s *Store) SaveMerged(name string, wb *workbook.Workbook, details events.MergeDetails) (*SaveResult, error) {
	return s.save(name, wb, &details)
}

func (s *Store) save(name string, wb *workbook.Workbook, merged *events.MergeDetails) (*SaveResult, error) {
	if err := names.Validate(name); err != nil {
		return nil, err
	}
	content, err := workbook.CanonicalJSON(wb)
	if err != nil {
		return nil, err
	}
	rev := workbook.ComputeRev(content)

	type pending struct {
		sheetID string
		mt      int64
		rev     string
		content []byte
	}
	var revisions []pending
	for _, sheet := range wb.SheetList() {
		extracted, err := wb.ExtractSheet(sheet.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to extract sheet %s: %w", sheet.ID, err)
		}
		data, err := workbook.CanonicalJSON(extracted)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, pending{sheet.ID, sheet.ModifiedTime, workbook.ComputeRev(data), data})
	}

	result := &SaveResult{Name: name, Rev: rev}
	err = s.withTx(func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRow("SELECT rev FROM workbooks WHERE name = ?", name).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to read workbook %s: %w", name, err)
		default:
			result.Unchanged = current == rev
		}

		_, err = tx.Exec(`
			INSERT INTO workbooks (name, workbook_id, rev, sheet_count, content)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				workbook_id = excluded.workbook_id,
				rev = excluded.rev,
				sheet_count = excluded.sheet_count,
				content = excluded.content,
				updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
		`, name, wb.ID, rev, len(revisions), content)
		if err != nil {
			return fmt.Errorf("failed to save workbook %s: %w", name, err)
		}

		for _, r := range revisions {
			res, err := tx.Exec(`
				INSERT OR IGNORE INTO sheet_revisions (workbook_name, sheet_id, modified_time, rev, content)
				VALUES (?, ?, ?, ?, ?)
			`, name, r.sheetID, r.mt, r.rev, r.content)
			if err != nil {
				return fmt.Errorf("failed to save revision of sheet %s: %w", r.sheetID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.NewRevisions++
			}
		}

		if !result.Unchanged {
			if err := s.events.LogSaved(tx, name, rev, result.NewRevisions); err != nil {
				return err
			}
		}
		if merged != nil {
			return s.events.LogMerged(tx, name, rev, *merged)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LoadWorkbook returns the workbook stored under name.
func (s *Store) LoadWorkbook(name string) (*workbook.Workbook, error) {
	var content []byte
	err := s.db.QueryRow("SELECT content FROM workbooks WHERE name = ?", name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workbook %s: %w", name, err)
	}
	wb, err := workbook.Parse(content)
	if err != nil {
		return nil, err
	}
	if err := wb.Validate(); err != nil {
		return nil, fmt.Errorf("stored workbook %s is invalid: %w", name, err)
	}
	return wb, nil
}

// List returns the stored workbooks whose name matches pattern, ordered by
// name. An empty pattern matches every workbook; glob patterns use SQLite
// GLOB semantics.
func (s *Store) List(pattern string) ([]Entry, error) {
	entries, _, err := s.ListPage(pattern, 0, "")
	return entries, err
}

// ListPage is List with keyset pagination. It returns at most limit entries
// (all of them when limit <= 0) following the position encoded in token,
// plus the token of the next page, which is "" on the last page.
func (s *Store) ListPage(pattern string, limit int, token string) ([]Entry, string, error) {
	after, err := cursor.Resume(token, pattern)
	if err != nil {
		return nil, "", err
	}

	var conds []string
	var args []interface{}
	switch {
	case pattern == "":
	case names.IsPattern(pattern):
		conds, args = append(conds, "w.name GLOB ?"), append(args, pattern)
	default:
		conds, args = append(conds, "w.name = ?"), append(args, pattern)
	}
	if after != "" {
		conds, args = append(conds, "w.name > ?"), append(args, after)
	}

	query := `
		SELECT w.name, w.workbook_id, w.rev, w.sheet_count, w.updated_at,
		       (SELECT COUNT(*) FROM sheet_revisions r WHERE r.workbook_name = w.name)
		FROM workbooks w`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY w.name"
	if limit > 0 {
		// One extra row tells whether another page exists.
		query += "\n\t\tLIMIT ?"
		args = append(args, limit+1)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list workbooks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.WorkbookID, &e.Rev, &e.Sheets, &e.UpdatedAt, &e.Revisions); err != nil {
			return nil, "", fmt.Errorf("failed to scan workbook: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating workbooks: %w", err)
	}

	if limit <= 0 || len(entries) <= limit {
		return entries, "", nil
	}
	entries = entries[:limit]
	next, err := cursor.New(pattern, entries[limit-1].Name)
	if err != nil {
		return nil, "", err
	}
	nextToken, err := next.Encode()
	if err != nil {
		return nil, "", err
	}
	return entries, nextToken, nil
}

// History returns the events of a stored workbook, newest first.
func (s *Store) History(name string, limit int) ([]events.Event, error) {
	if err := s.requireWorkbook(name); err != nil {
		return nil, err
	}
	return s.events.List(name, limit)
}

func (s *Store) requireWorkbook(name string) error {
	var exists int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM workbooks WHERE name = ?", name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up workbook %s: %w", name, err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return nil
}

// SheetRevisions returns the stored revisions of one sheet, oldest first.
func (s *Store) SheetRevisions(name, sheetID string) ([]SheetRevision, error) {
	if err := s.requireWorkbook(name); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT sheet_id, modified_time, rev, created_at, content
		FROM sheet_revisions
		WHERE workbook_name = ? AND sheet_id = ?
		ORDER BY modified_time
	`, name, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revs []SheetRevision
	for rows.Next() {
		var r SheetRevision
		var content []byte
		if err := rows.Scan(&r.SheetID, &r.ModifiedTime, &r.Rev, &r.CreatedAt, &content); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		if r.Content, err = workbook.Parse(content); err != nil {
			return nil, fmt.Errorf("revision %s of sheet %s: %w", r.Rev, sheetID, err)
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revisions: %w", err)
	}
	return revs, nil
}
