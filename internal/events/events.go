package events

import "time"

// Event types broadcast to subscribers.
const (
	TypeImport         = "catalog.import"
	TypeBookUpdate     = "book.update"
	TypeBookDelete     = "book.delete"
	TypeConflictsApply = "conflicts.apply"
	TypeCoversResolve  = "covers.resolve"
)

// CatalogEvent describes one catalog mutation. Counts are only set for the
// event types they apply to.
type CatalogEvent struct {
	Type       string    `json:"type"`
	BatchID    string    `json:"batch_id,omitempty"`
	BookID     string    `json:"book_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Added      int       `json:"added,omitempty"`
	Skipped    int       `json:"skipped,omitempty"`
	Conflicted int       `json:"conflicted,omitempty"`
	Applied    int       `json:"applied,omitempty"`
	Resolved   int       `json:"resolved,omitempty"`
	At         time.Time `json:"at"`
}
