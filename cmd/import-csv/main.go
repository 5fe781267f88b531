package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"bookrec/internal/catalog"
	"bookrec/internal/covers"
	"bookrec/internal/store"
	"bookrec/pkg/database"
)

func main() {
	var (
		in       = flag.String("file", "data/books.csv", "input CSV path")
		noCovers = flag.Bool("no-covers", false, "skip cover image resolution for new books")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	var resolver catalog.CoverResolver
	if !*noCovers {
		resolver = covers.NewResolver()
	}

	svc := catalog.NewService(store.New(db), resolver, nil)
	if _, err := svc.Load(ctx); err != nil {
		log.Fatalf("load catalog failed: %v", err)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	rows, err := catalog.ReadCSVRows(f)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}

	summary, err := svc.ImportRows(ctx, rows)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	log.Printf("✅ processed %d rows: %d added, %d skipped, %d conflicts, covers %d/%d",
		summary.Rows, len(summary.Added), len(summary.Skipped), len(summary.Conflicted),
		summary.CoversResolved, len(summary.Added))

	if len(summary.Conflicted) > 0 {
		log.Printf("conflicts are staged; confirm them via the API (POST /confirm-updates)")
	}
}
