package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/wbmerge/internal/store"
	"github.com/lherron/wbmerge/internal/workbook"
)

// TempStore opens a migrated workbook store in a temporary directory
func TempStore(t *testing.T) (*store.Store, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s, dbPath
}

// NewTree builds a one-sheet workbook whose root topic has one attached
// child per title.
func NewTree(t *testing.T, titles ...string) *workbook.Workbook {
	t.Helper()
	w := workbook.New()
	s := w.AddSheet("Sheet 1")
	root := w.RootTopic(s.ID)
	root.Title = "root"
	for _, title := range titles {
		if _, err := w.AddTopic(root.ID, title); err != nil {
			t.Fatalf("Failed to add topic %q: %v", title, err)
		}
	}
	return w
}

// Fork returns an independent copy of w that shares every id, the way two
// people editing copies of one file would.
func Fork(t *testing.T, w *workbook.Workbook) *workbook.Workbook {
	t.Helper()
	c, err := w.Clone()
	if err != nil {
		t.Fatalf("Failed to clone workbook: %v", err)
	}
	return c
}

// FirstSheet returns the first sheet of w.
func FirstSheet(t *testing.T, w *workbook.Workbook) *workbook.Sheet {
	t.Helper()
	sheets := w.SheetList()
	if len(sheets) == 0 {
		t.Fatal("Workbook has no sheets")
	}
	return sheets[0]
}

// Root returns the root topic of the first sheet of w.
func Root(t *testing.T, w *workbook.Workbook) *workbook.Topic {
	t.Helper()
	return w.RootTopic(FirstSheet(t, w).ID)
}

// Topic finds the only topic of w with the given title.
func Topic(t *testing.T, w *workbook.Workbook, title string) *workbook.Topic {
	t.Helper()
	var found *workbook.Topic
	for _, tp := range w.Topics {
		if tp.Title != title {
			continue
		}
		if found != nil {
			t.Fatalf("More than one topic titled %q", title)
		}
		found = tp
	}
	if found == nil {
		t.Fatalf("No topic titled %q", title)
	}
	return found
}

// Titles returns the titles of topics in order.
func Titles(topics []*workbook.Topic) []string {
	titles := make([]string, 0, len(topics))
	for _, tp := range topics {
		titles = append(titles, tp.Title)
	}
	return titles
}

// WriteWorkbook saves w into dir and returns its path
func WriteWorkbook(t *testing.T, dir, filename string, w *workbook.Workbook) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := w.Save(path); err != nil {
		t.Fatalf("Failed to write workbook %s: %v", path, err)
	}
	return path
}

// WriteFile writes content to a file in a temporary directory
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertError asserts that an error is not nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}
