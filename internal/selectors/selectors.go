// Package selectors resolves the workbook arguments of commands, which name
// either a file or a stored workbook.
package selectors

import (
	"fmt"
	"strings"

	"github.com/lherron/wbmerge/internal/names"
	"github.com/lherron/wbmerge/internal/workbook"
)

// Type represents where a selected workbook lives
type Type string

const (
	TypeFile   Type = "file"
	TypeStored Type = "stored"
)

// Selector represents a parsed workbook selector
type Selector struct {
	Type  Type
	Token string // path for files, name for stored workbooks
}

// Parse parses a selector string.
// Supports: store:<name>, file:<path>, or a plain path
func Parse(selector string) (Selector, error) {
	switch {
	case strings.HasPrefix(selector, "store:"):
		name := strings.TrimPrefix(selector, "store:")
		if err := names.Validate(name); err != nil {
			return Selector{}, fmt.Errorf("invalid selector %q: %w", selector, err)
		}
		return Selector{Type: TypeStored, Token: name}, nil
	case strings.HasPrefix(selector, "file:"):
		selector = strings.TrimPrefix(selector, "file:")
	}
	if selector == "" {
		return Selector{}, fmt.Errorf("empty workbook selector")
	}
	return Selector{Type: TypeFile, Token: selector}, nil
}

func (s Selector) String() string {
	if s.Type == TypeStored {
		return "store:" + s.Token
	}
	return s.Token
}

// Stored is the lookup a stored selector needs.
type Stored interface {
	LoadWorkbook(name string) (*workbook.Workbook, error)
}

// Load reads the selected workbook. stored may be nil when no selector
// refers to the store.
func (s Selector) Load(stored Stored) (*workbook.Workbook, error) {
	switch s.Type {
	case TypeFile:
		return workbook.Load(s.Token)
	case TypeStored:
		if stored == nil {
			return nil, fmt.Errorf("%s: no workbook store available", s)
		}
		return stored.LoadWorkbook(s.Token)
	default:
		return nil, fmt.Errorf("unknown selector type %q", s.Type)
	}
}

// AnyStored reports whether one of sels refers to the store.
func AnyStored(sels ...Selector) bool {
	for _, s := range sels {
		if s.Type == TypeStored {
			return true
		}
	}
	return false
}
