package database

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS books (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	author             TEXT NOT NULL DEFAULT '',
	sri_rating         REAL NOT NULL DEFAULT 0,
	avg_rating         REAL NOT NULL DEFAULT 0,
	rating_count       INTEGER NOT NULL DEFAULT 0,
	page_count         INTEGER NOT NULL DEFAULT 0,
	genre_intent       TEXT NOT NULL DEFAULT '',
	pace               TEXT NOT NULL DEFAULT '',
	plot_character     TEXT NOT NULL DEFAULT '',
	mood_finish        TEXT NOT NULL DEFAULT '',
	display_title      TEXT NOT NULL DEFAULT '',
	cover_search_title TEXT NOT NULL DEFAULT '',
	cover_image_url    TEXT NOT NULL DEFAULT ''
);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
