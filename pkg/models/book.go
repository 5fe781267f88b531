package models

import (
	"math"
	"strconv"
	"strings"
)

// Book is the canonical catalog record. The JSON field names match the
// CSV/export column names so exported data re-imports cleanly.
//
// A freshly normalized row is the same shape with an empty ID (assigned
// during reconciliation) and no cover URL resolved yet.
type Book struct {
	ID               string  `json:"book_ID"`
	Title            string  `json:"book_title"`
	Author           string  `json:"book_author"`
	Rating           float64 `json:"sri_Rating"`
	AvgRating        float64 `json:"goodreads_avg_rating"`
	RatingCount      int     `json:"goodreads_rating_count"`
	PageCount        int     `json:"page_count"`
	Intent           string  `json:"Genre_Intent"`
	Pace             string  `json:"Pace"`
	PlotCharacter    string  `json:"Plot_Character"`
	MoodFinish       string  `json:"Mood_Finish"`
	DisplayTitle     string  `json:"goodreads_title"`
	CoverSearchTitle string  `json:"cover_search_title"`
	CoverURL         string  `json:"cover_image_url"`
}

// Key returns the catalog lookup key for a book.
// Primary:  the ID, when non-empty after trimming.
// Fallback: lowercased "title|author", so rows that don't round-trip an ID
// can still be matched against existing records.
func (b Book) Key() string {
	if id := strings.TrimSpace(b.ID); id != "" {
		return id
	}
	title := strings.ToLower(strings.TrimSpace(b.Title))
	author := strings.ToLower(strings.TrimSpace(b.Author))
	return title + "|" + author
}

// Popularity is the log-dampened Goodreads signal used as a ranking
// tiebreak: avg_rating * ln(1 + rating_count). A book with zero ratings
// has popularity 0 regardless of its average.
func (b Book) Popularity() float64 {
	return b.AvgRating * math.Log(1+float64(b.RatingCount))
}

// FieldChange is one side-by-side difference between two versions of a book.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Conflict pairs the stored record with the incoming candidate that
// disagreed with it. Staged during reconciliation, applied on confirm.
type Conflict struct {
	Old Book `json:"old"`
	New Book `json:"new"`
}

// bookFields enumerates every stored field with a string projection.
// Equality and diffing walk this list so "compare every field" stays exact
// without reflection. Numeric fields compare via their formatted value.
var bookFields = []struct {
	Name  string
	Value func(Book) string
}{
	{"book_ID", func(b Book) string { return b.ID }},
	{"book_title", func(b Book) string { return b.Title }},
	{"book_author", func(b Book) string { return b.Author }},
	{"sri_Rating", func(b Book) string { return formatFloat(b.Rating) }},
	{"goodreads_avg_rating", func(b Book) string { return formatFloat(b.AvgRating) }},
	{"goodreads_rating_count", func(b Book) string { return strconv.Itoa(b.RatingCount) }},
	{"page_count", func(b Book) string { return strconv.Itoa(b.PageCount) }},
	{"Genre_Intent", func(b Book) string { return b.Intent }},
	{"Pace", func(b Book) string { return b.Pace }},
	{"Plot_Character", func(b Book) string { return b.PlotCharacter }},
	{"Mood_Finish", func(b Book) string { return b.MoodFinish }},
	{"goodreads_title", func(b Book) string { return b.DisplayTitle }},
	{"cover_search_title", func(b Book) string { return b.CoverSearchTitle }},
	{"cover_image_url", func(b Book) string { return b.CoverURL }},
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Equal reports whether every stored field matches exactly.
func (b Book) Equal(other Book) bool {
	for _, f := range bookFields {
		if f.Value(b) != f.Value(other) {
			return false
		}
	}
	return true
}

// Diff returns the fields whose string representations differ, keyed by
// column name.
func (b Book) Diff(other Book) map[string]FieldChange {
	diffs := make(map[string]FieldChange)
	for _, f := range bookFields {
		oldVal, newVal := f.Value(b), f.Value(other)
		if oldVal != newVal {
			diffs[f.Name] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	return diffs
}
