package merge

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArguments is returned by New when a workbook is missing.
	ErrInvalidArguments = errors.New("invalid merge arguments")
	// ErrCloningFailed is matched by every *CloneError.
	ErrCloningFailed = errors.New("cloning target workbook failed")
	// ErrStructuralMismatch is matched by every *MismatchError.
	ErrStructuralMismatch = errors.New("root topic was replaced")
)

// CloneError reports that the target workbook could not be cloned into the
// result workbook.
type CloneError struct {
	WorkbookID string
	Err        error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("%v (workbook %s): %v", ErrCloningFailed, e.WorkbookID, e.Err)
}

func (e *CloneError) Unwrap() error { return e.Err }

func (e *CloneError) Is(target error) bool { return target == ErrCloningFailed }

// MismatchError reports a sheet whose source and target root topics differ.
// Such sheets cannot be merged.
type MismatchError struct {
	SheetID    string
	SourceRoot string
	TargetRoot string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("sheet %s: %v (source root %s, target root %s)",
		e.SheetID, ErrStructuralMismatch, e.SourceRoot, e.TargetRoot)
}

func (e *MismatchError) Is(target error) bool { return target == ErrStructuralMismatch }
