package store

import (
	"context"
	"database/sql"
	"fmt"

	"bookrec/pkg/models"
)

// Store persists the whole catalog as a flat set of book rows.
// The catalog is small enough that SaveAll rewrites the table in one
// transaction; this keeps disk state an exact snapshot of memory.
type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) LoadAll(ctx context.Context) ([]models.Book, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, author, sri_rating, avg_rating, rating_count,
		       page_count, genre_intent, pace, plot_character, mood_finish,
		       display_title, cover_search_title, cover_image_url
		FROM books
	`)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	defer rows.Close()

	var out []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.Rating, &b.AvgRating, &b.RatingCount,
			&b.PageCount, &b.Intent, &b.Pace, &b.PlotCharacter, &b.MoodFinish,
			&b.DisplayTitle, &b.CoverSearchTitle, &b.CoverURL,
		); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		out = append(out, backfill(b))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// backfill fills derived fields missing from older records. Idempotent,
// applied once at load time.
func backfill(b models.Book) models.Book {
	if b.DisplayTitle == "" {
		b.DisplayTitle = b.Title
	}
	if b.CoverSearchTitle == "" {
		b.CoverSearchTitle = b.Title
	}
	return b
}

func (s *Store) SaveAll(ctx context.Context, books []models.Book) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (id, title, author, sri_rating, avg_rating, rating_count,
		                   page_count, genre_intent, pace, plot_character, mood_finish,
		                   display_title, cover_search_title, cover_image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range books {
		if _, err := stmt.ExecContext(ctx,
			b.ID, b.Title, b.Author, b.Rating, b.AvgRating, b.RatingCount,
			b.PageCount, b.Intent, b.Pace, b.PlotCharacter, b.MoodFinish,
			b.DisplayTitle, b.CoverSearchTitle, b.CoverURL,
		); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
