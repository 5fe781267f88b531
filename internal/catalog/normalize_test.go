package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() map[string]string {
	return map[string]string{
		"book_title":             " Dune ",
		"book_author":            " Frank Herbert ",
		"sri_Rating":             "4.5",
		"goodreads_avg_rating":   "4.25",
		"goodreads_rating_count": "120",
		"page_count":             "412",
		"Genre_Intent":           "fantasy",
		"Pace":                   "slow",
		"Plot_Character":         "plot",
		"Mood_Finish":            "hopeful",
	}
}

func TestParseRow(t *testing.T) {
	b := ParseRow(sampleRow())

	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
	assert.Equal(t, 4.5, b.Rating)
	assert.Equal(t, 4.25, b.AvgRating)
	assert.Equal(t, 120, b.RatingCount)
	assert.Equal(t, 412, b.PageCount)
	assert.Equal(t, "fantasy", b.Intent)
	assert.Empty(t, b.ID, "no book_ID in the row leaves the id unassigned")
	assert.Equal(t, "Dune", b.DisplayTitle, "display title defaults to the title")
	assert.Equal(t, "Dune", b.CoverSearchTitle)
	assert.Empty(t, b.CoverURL)
}

func TestParseRowMalformedNumericsDefaultToZero(t *testing.T) {
	row := sampleRow()
	row["sri_Rating"] = "not-a-number"
	row["goodreads_avg_rating"] = ""
	row["goodreads_rating_count"] = "12.5"
	row["page_count"] = "many"

	b := ParseRow(row)
	assert.Zero(t, b.Rating)
	assert.Zero(t, b.AvgRating)
	assert.Zero(t, b.RatingCount)
	assert.Zero(t, b.PageCount)
}

func TestParseRowPreservesLegacyID(t *testing.T) {
	row := sampleRow()
	row["book_ID"] = " 7 "
	assert.Equal(t, "7", ParseRow(row).ID)
}

func TestParseRowExplicitDerivedTitles(t *testing.T) {
	row := sampleRow()
	row["goodreads_title"] = "Dune (Chronicles #1)"
	row["cover_search_title"] = "Dune Herbert"

	b := ParseRow(row)
	assert.Equal(t, "Dune (Chronicles #1)", b.DisplayTitle)
	assert.Equal(t, "Dune Herbert", b.CoverSearchTitle)
}

func TestParseRowMissingKeysDefaultEmpty(t *testing.T) {
	b := ParseRow(map[string]string{"book_title": "Solo"})
	assert.Equal(t, "Solo", b.Title)
	assert.Empty(t, b.Author)
	assert.Zero(t, b.PageCount)
}

func TestMissingColumns(t *testing.T) {
	row := sampleRow()
	delete(row, "Pace")
	delete(row, "page_count")

	missing := MissingColumns(row)
	assert.ElementsMatch(t, []string{"Pace", "page_count"}, missing)
	assert.Empty(t, MissingColumns(sampleRow()))
}

func TestReadCSVRows(t *testing.T) {
	csvData := strings.Join([]string{
		"book_title,book_author,page_count",
		"Dune,Frank Herbert,412",
		"Piranesi,Susanna Clarke", // short row
	}, "\n")

	rows, err := ReadCSVRows(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Dune", rows[0]["book_title"])
	assert.Equal(t, "412", rows[0]["page_count"])
	assert.Equal(t, "", rows[1]["page_count"], "short rows default trailing columns to empty")
}

func TestReadCSVRowsEmptyInput(t *testing.T) {
	rows, err := ReadCSVRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
