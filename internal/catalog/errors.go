package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned for edits, deletes and confirms that name an
	// unknown catalog key.
	ErrNotFound = errors.New("book not found")

	// ErrEmptyStage is returned when a confirm arrives with no conflicts
	// staged, guarding against acting on a stale upload.
	ErrEmptyStage = errors.New("no pending conflicts")

	// ErrNoCatalog is returned when an operation needs at least one book.
	ErrNoCatalog = errors.New("no books in the catalog")
)

// ValidationError rejects a whole batch before any row is normalized:
// an empty batch, or a header missing expected columns.
type ValidationError struct {
	Reason  string
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("CSV missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}
