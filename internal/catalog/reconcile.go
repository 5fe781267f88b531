package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"bookrec/internal/events"
	"bookrec/pkg/models"
)

// coverWorkers bounds concurrent cover lookups during an import.
const coverWorkers = 4

// RowResult identifies one processed row in its classification list.
// Differences is only set for conflicted rows.
type RowResult struct {
	BookID      string                        `json:"book_ID"`
	Title       string                        `json:"book_title"`
	Author      string                        `json:"book_author"`
	Differences map[string]models.FieldChange `json:"differences,omitempty"`
}

// ImportSummary reports one reconciliation run. The per-classification lists
// preserve input row order.
type ImportSummary struct {
	BatchID        string      `json:"batch_id"`
	Rows           int         `json:"rows"`
	Added          []RowResult `json:"added_books"`
	Skipped        []RowResult `json:"skipped_books"`
	Conflicted     []RowResult `json:"conflicted_books"`
	CoversResolved int         `json:"covers_resolved"`
}

// ImportRows reconciles a batch of raw rows against the catalog. Per row, in
// order:
//   - no existing match            -> added (fresh ID assigned)
//   - match with every field equal -> skipped
//   - match with any field differing -> conflicted; the candidate inherits
//     the existing ID and the pair is staged for confirmation
//
// The conflict stage is replaced wholesale on every run. New records are
// persisted and then get their covers resolved with a bounded worker pool.
func (s *Service) ImportRows(ctx context.Context, rows []map[string]string) (*ImportSummary, error) {
	if len(rows) == 0 {
		return nil, &ValidationError{Reason: "CSV file is empty"}
	}
	if missing := MissingColumns(rows[0]); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	summary := &ImportSummary{
		BatchID:    uuid.NewString(),
		Rows:       len(rows),
		Added:      []RowResult{},
		Skipped:    []RowResult{},
		Conflicted: []RowResult{},
	}

	s.mu.Lock()

	// Previous run's conflicts are abandoned, confirmed or not.
	stage := make(map[string]models.Conflict)
	var addedKeys []string

	for _, row := range rows {
		candidate := ParseRow(row)
		key, found := s.matchLocked(candidate)

		switch {
		case !found:
			if strings.TrimSpace(candidate.ID) == "" {
				candidate.ID = s.nextIDLocked()
			}
			k := candidate.Key()
			s.books[k] = candidate
			addedKeys = append(addedKeys, k)
			summary.Added = append(summary.Added, RowResult{
				BookID: candidate.ID, Title: candidate.Title, Author: candidate.Author,
			})

		case s.books[key].Equal(candidate):
			summary.Skipped = append(summary.Skipped, RowResult{
				BookID: s.books[key].ID, Title: candidate.Title, Author: candidate.Author,
			})

		default:
			existing := s.books[key]
			// Identity is inherited from the match, not the row.
			candidate.ID = existing.ID
			stage[key] = models.Conflict{Old: existing, New: candidate}
			summary.Conflicted = append(summary.Conflicted, RowResult{
				BookID:      candidate.ID,
				Title:       candidate.Title,
				Author:      candidate.Author,
				Differences: existing.Diff(candidate),
			})
		}
	}

	s.stage = stage

	if len(addedKeys) > 0 {
		if err := s.store.SaveAll(ctx, s.snapshotLocked()); err != nil {
			for _, k := range addedKeys {
				delete(s.books, k)
			}
			s.mu.Unlock()
			return nil, fmt.Errorf("persist imported books: %w", err)
		}
	}
	s.mu.Unlock()

	if len(addedKeys) > 0 && s.covers != nil {
		summary.CoversResolved = s.resolveCoversByKey(ctx, addedKeys)

		s.mu.Lock()
		if err := s.store.SaveAll(ctx, s.snapshotLocked()); err != nil {
			log.Printf("[covers] persist after cover resolution failed: %v", err)
		}
		s.mu.Unlock()
	}

	s.broadcast(events.CatalogEvent{
		Type:       events.TypeImport,
		BatchID:    summary.BatchID,
		Added:      len(summary.Added),
		Skipped:    len(summary.Skipped),
		Conflicted: len(summary.Conflicted),
		Resolved:   summary.CoversResolved,
	})
	return summary, nil
}

// matchLocked finds the existing record a candidate refers to: by ID when the
// candidate carries one that is a known key, otherwise by a case and
// whitespace insensitive title+author scan.
func (s *Service) matchLocked(candidate models.Book) (string, bool) {
	if id := strings.TrimSpace(candidate.ID); id != "" {
		if _, ok := s.books[id]; ok {
			return id, true
		}
	}

	want := titleAuthorKey(candidate)
	for key, b := range s.books {
		if titleAuthorKey(b) == want {
			return key, true
		}
	}
	return "", false
}

func titleAuthorKey(b models.Book) string {
	return strings.ToLower(strings.TrimSpace(b.Title)) + "|" + strings.ToLower(strings.TrimSpace(b.Author))
}

// resolveCoversByKey fetches cover URLs for the named records with a bounded
// worker pool and writes the results back under the lock. Lookups are
// independent and idempotent; failures leave the URL empty.
func (s *Service) resolveCoversByKey(ctx context.Context, keys []string) int {
	type job struct {
		key, title, author string
	}

	s.mu.RLock()
	jobs := make([]job, 0, len(keys))
	for _, k := range keys {
		b, ok := s.books[k]
		if !ok {
			continue
		}
		title := b.CoverSearchTitle
		if title == "" {
			title = b.Title
		}
		jobs = append(jobs, job{key: k, title: title, author: b.Author})
	}
	s.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]string, len(jobs))
	)
	sem := make(chan struct{}, coverWorkers)

	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()

			url := s.covers.Resolve(ctx, j.title, j.author)
			mu.Lock()
			results[j.key] = url
			mu.Unlock()
		}(j)
	}
	wg.Wait()

	resolved := 0
	s.mu.Lock()
	for k, url := range results {
		b, ok := s.books[k]
		if !ok {
			continue
		}
		b.CoverURL = url
		s.books[k] = b
		if url != "" {
			resolved++
		}
	}
	s.mu.Unlock()
	return resolved
}
