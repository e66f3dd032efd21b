// Package events records the history of stored workbooks.
package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Event types
const (
	TypeSaved  = "workbook.saved"
	TypeMerged = "workbook.merged"
)

// Event is one entry of a workbook's history.
type Event struct {
	ID           int64                  `json:"id" yaml:"id"`
	WorkbookName string                 `json:"workbook" yaml:"workbook"`
	EventType    string                 `json:"type" yaml:"type"`
	Rev          string                 `json:"rev" yaml:"rev"`
	Payload      map[string]interface{} `json:"payload,omitempty" yaml:"payload,omitempty"`
	CreatedAt    string                 `json:"created_at" yaml:"created_at"`
}

// MergeDetails describes a merge whose result was stored.
type MergeDetails struct {
	RunID     string
	Source    string
	Target    string
	Conflicts int
	Skipped   int
}

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *Event) error {
	var payload *string
	if len(event.Payload) > 0 {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}
		s := string(data)
		payload = &s
	}

	query := `
		INSERT INTO workbook_events (workbook_name, event_type, rev, payload)
		VALUES (?, ?, ?, ?)
	`
	if _, err := w.getExecutor(tx).Exec(query, event.WorkbookName, event.EventType, event.Rev, payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// LogSaved logs a save that changed the stored content
func (w *Writer) LogSaved(tx *sql.Tx, name, rev string, newRevisions int) error {
	return w.LogEvent(tx, &Event{
		WorkbookName: name,
		EventType:    TypeSaved,
		Rev:          rev,
		Payload:      map[string]interface{}{"new_revisions": newRevisions},
	})
}

// LogMerged logs a merge result stored under name
func (w *Writer) LogMerged(tx *sql.Tx, name, rev string, d MergeDetails) error {
	return w.LogEvent(tx, &Event{
		WorkbookName: name,
		EventType:    TypeMerged,
		Rev:          rev,
		Payload: map[string]interface{}{
			"run_id":    d.RunID,
			"source":    d.Source,
			"target":    d.Target,
			"conflicts": d.Conflicts,
			"skipped":   d.Skipped,
		},
	})
}

// List returns the newest events of a workbook first. limit <= 0 returns
// them all.
func (w *Writer) List(name string, limit int) ([]Event, error) {
	query := `
		SELECT id, workbook_name, event_type, rev, payload, created_at
		FROM workbook_events
		WHERE workbook_name = ?
		ORDER BY id DESC
	`
	args := []interface{}{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := w.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var list []Event
	for rows.Next() {
		var e Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.WorkbookName, &e.EventType, &e.Rev, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("event %d has a malformed payload: %w", e.ID, err)
			}
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return list, nil
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
