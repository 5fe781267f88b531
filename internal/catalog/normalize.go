package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bookrec/pkg/models"
)

// CSVColumns are the columns every import batch must carry. book_ID is not
// required; it is assigned during reconciliation (though legacy exports that
// include it are honored).
var CSVColumns = []string{
	"book_title",
	"book_author",
	"sri_Rating",
	"goodreads_avg_rating",
	"goodreads_rating_count",
	"page_count",
	"Genre_Intent",
	"Pace",
	"Plot_Character",
	"Mood_Finish",
}

// ParseRow converts one raw CSV row into a typed candidate record. Malformed
// input degrades to zero values rather than failing, so a garbled field never
// aborts a batch; schema problems are caught at the header level instead.
func ParseRow(row map[string]string) models.Book {
	get := func(k string) string { return strings.TrimSpace(row[k]) }

	b := models.Book{
		Title:         get("book_title"),
		Author:        get("book_author"),
		Intent:        get("Genre_Intent"),
		Pace:          get("Pace"),
		PlotCharacter: get("Plot_Character"),
		MoodFinish:    get("Mood_Finish"),
	}

	b.Rating, _ = parseFloatOrZero(get("sri_Rating"))
	b.AvgRating, _ = parseFloatOrZero(get("goodreads_avg_rating"))
	b.RatingCount, _ = parseIntOrZero(get("goodreads_rating_count"))
	b.PageCount, _ = parseIntOrZero(get("page_count"))

	// Exported CSVs round-trip the ID; fresh rows leave it empty for the
	// reconciler to assign.
	b.ID = get("book_ID")

	b.DisplayTitle = get("goodreads_title")
	if b.DisplayTitle == "" {
		b.DisplayTitle = b.Title
	}
	b.CoverSearchTitle = get("cover_search_title")
	if b.CoverSearchTitle == "" {
		b.CoverSearchTitle = b.Title
	}
	b.CoverURL = "" // resolved after insertion

	return b
}

// parseFloatOrZero reports whether the input parsed; empty or malformed
// input defaults to zero.
func parseFloatOrZero(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseIntOrZero(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MissingColumns returns the expected columns absent from a batch header row.
func MissingColumns(row map[string]string) []string {
	var missing []string
	for _, col := range CSVColumns {
		if _, ok := row[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// ReadCSVRows decodes a CSV stream into one map per data row, keyed by the
// trimmed header names. Short rows leave trailing columns absent.
func ReadCSVRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
