package id

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	uuidPattern    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	compactPattern = regexp.MustCompile(`^[0-9a-z]{26}$`)
)

// Kind represents the kind of workbook element an id belongs to
type Kind string

const (
	KindSheet        Kind = "sheet"
	KindTopic        Kind = "topic"
	KindSummary      Kind = "summary"
	KindBoundary     Kind = "boundary"
	KindRelationship Kind = "relationship"
	KindStyle        Kind = "style"
)

// New returns a fresh element id
func New() string {
	return uuid.New().String()
}

// NewRun returns an id for a merge run. Run ids are never stored in a
// workbook, only in reports.
func NewRun() string {
	return "run-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Validate checks that s can be used as an element id. Ids written by other
// editors are accepted as long as they are non-empty and contain no
// whitespace or path separators.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("invalid id: empty")
	}
	if strings.ContainsAny(s, " \t\r\n/") {
		return fmt.Errorf("invalid id %q: contains whitespace or '/'", s)
	}
	return nil
}

// IsUUID checks if a string is a valid UUID
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// IsCompact reports whether s has the 26 character form used by desktop
// mind-map editors.
func IsCompact(s string) bool {
	return compactPattern.MatchString(s)
}

// IsGenerated reports whether s looks like an id produced by New or by an editor
func IsGenerated(s string) bool {
	return IsUUID(s) || IsCompact(s)
}
