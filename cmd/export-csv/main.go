package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"bookrec/internal/catalog"
	"bookrec/internal/store"
	"bookrec/pkg/database"
	"bookrec/pkg/models"
)

func main() {
	out := flag.String("file", "data/books.csv", "output CSV path")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	books, err := store.New(db).LoadAll(ctx)
	if err != nil {
		log.Fatalf("load books failed: %v", err)
	}

	if err := exportBooks(books, *out); err != nil {
		log.Fatalf("export failed: %v", err)
	}

	log.Printf("✅ exported %d books to %s", len(books), *out)
}

// exportBooks writes the catalog with book_ID first so re-imports match by
// ID and classify unchanged rows as duplicates.
func exportBooks(books []models.Book, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	sort.Slice(books, func(i, j int) bool { return idLess(books[i].ID, books[j].ID) })

	w := csv.NewWriter(f)
	header := append([]string{"book_ID"}, catalog.CSVColumns...)
	header = append(header, "goodreads_title", "cover_search_title", "cover_image_url")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, b := range books {
		rec := []string{
			b.ID,
			b.Title,
			b.Author,
			formatFloat(b.Rating),
			formatFloat(b.AvgRating),
			strconv.Itoa(b.RatingCount),
			strconv.Itoa(b.PageCount),
			b.Intent,
			b.Pace,
			b.PlotCharacter,
			b.MoodFinish,
			b.DisplayTitle,
			b.CoverSearchTitle,
			b.CoverURL,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func idLess(a, b string) bool {
	ai, aerr := strconv.Atoi(strings.TrimSpace(a))
	bi, berr := strconv.Atoi(strings.TrimSpace(b))
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
