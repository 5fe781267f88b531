// Package catalog owns the authoritative set of book records and the
// reconciliation flow that keeps it consistent across repeated imports.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"bookrec/internal/events"
	"bookrec/pkg/models"
)

// Store persists the whole catalog. Implemented by internal/store.
type Store interface {
	LoadAll(ctx context.Context) ([]models.Book, error)
	SaveAll(ctx context.Context, books []models.Book) error
}

// CoverResolver finds a cover image URL for a book; "" means none found.
type CoverResolver interface {
	Resolve(ctx context.Context, title, author string) string
}

// Broadcaster receives catalog mutation events. Implemented by events.Hub.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Service holds the in-memory catalog and the conflict stage from the most
// recent import. A single RW mutex serializes writers; reads (listing,
// recommending) take snapshots under the read lock.
type Service struct {
	mu    sync.RWMutex
	books map[string]models.Book
	stage map[string]models.Conflict

	store  Store
	covers CoverResolver
	hub    Broadcaster
}

// NewService wires the catalog with its collaborators. covers and hub may be
// nil (CLI use): cover resolution and event broadcasting are then skipped.
func NewService(st Store, covers CoverResolver, hub Broadcaster) *Service {
	return &Service{
		books:  make(map[string]models.Book),
		stage:  make(map[string]models.Conflict),
		store:  st,
		covers: covers,
		hub:    hub,
	}
}

// Load replaces the in-memory catalog with the persisted one. Called once at
// startup; key for each record is recomputed from its current fields.
func (s *Service) Load(ctx context.Context) (int, error) {
	books, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = make(map[string]models.Book, len(books))
	for _, b := range books {
		s.books[b.Key()] = b
	}
	return len(s.books), nil
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// List returns one page of the catalog ordered by personal rating desc, then
// popularity desc, then numeric ID asc, together with the total count.
// limit <= 0 means no limit.
func (s *Service) List(offset, limit int) ([]models.Book, int) {
	s.mu.RLock()
	all := s.snapshotLocked()
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		pi, pj := all[i].Popularity(), all[j].Popularity()
		if pi != pj {
			return pi > pj
		}
		return idLess(all[i].ID, all[j].ID)
	})

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	page := all[offset:]
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}
	return page, total
}

// BookUpdate is a partial edit; nil fields are left unchanged.
type BookUpdate struct {
	Title            *string  `json:"book_title"`
	Author           *string  `json:"book_author"`
	DisplayTitle     *string  `json:"goodreads_title"`
	CoverSearchTitle *string  `json:"cover_search_title"`
	Rating           *float64 `json:"sri_Rating"`
	AvgRating        *float64 `json:"goodreads_avg_rating"`
	RatingCount      *int     `json:"goodreads_rating_count"`
	PageCount        *int     `json:"page_count"`
	Intent           *string  `json:"Genre_Intent"`
	Pace             *string  `json:"Pace"`
	PlotCharacter    *string  `json:"Plot_Character"`
	MoodFinish       *string  `json:"Mood_Finish"`
}

func (u BookUpdate) Empty() bool {
	return u.Title == nil && u.Author == nil && u.DisplayTitle == nil &&
		u.CoverSearchTitle == nil && u.Rating == nil && u.AvgRating == nil &&
		u.RatingCount == nil && u.PageCount == nil && u.Intent == nil &&
		u.Pace == nil && u.PlotCharacter == nil && u.MoodFinish == nil
}

func (u BookUpdate) apply(b models.Book) models.Book {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Author != nil {
		b.Author = *u.Author
	}
	if u.DisplayTitle != nil {
		b.DisplayTitle = *u.DisplayTitle
	}
	if u.CoverSearchTitle != nil {
		b.CoverSearchTitle = *u.CoverSearchTitle
	}
	if u.Rating != nil {
		b.Rating = *u.Rating
	}
	if u.AvgRating != nil {
		b.AvgRating = *u.AvgRating
	}
	if u.RatingCount != nil {
		b.RatingCount = *u.RatingCount
	}
	if u.PageCount != nil {
		b.PageCount = *u.PageCount
	}
	if u.Intent != nil {
		b.Intent = *u.Intent
	}
	if u.Pace != nil {
		b.Pace = *u.Pace
	}
	if u.PlotCharacter != nil {
		b.PlotCharacter = *u.PlotCharacter
	}
	if u.MoodFinish != nil {
		b.MoodFinish = *u.MoodFinish
	}
	return b
}

// Update edits fields of the book stored under key, re-keying when title or
// author changes shift the identity key. The edit is persisted before the
// in-memory map is touched, so a failed save leaves memory matching disk.
func (s *Service) Update(ctx context.Context, key string, upd BookUpdate) (models.Book, map[string]models.FieldChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.books[key]
	if !ok {
		return models.Book{}, nil, ErrNotFound
	}

	updated := upd.apply(old)
	changes := old.Diff(updated)

	next := s.cloneLocked()
	delete(next, key)
	next[updated.Key()] = updated

	if err := s.store.SaveAll(ctx, mapValues(next)); err != nil {
		return models.Book{}, nil, fmt.Errorf("persist update: %w", err)
	}
	s.books = next

	s.broadcast(events.CatalogEvent{Type: events.TypeBookUpdate, BookID: updated.ID, Title: updated.Title})
	return updated, changes, nil
}

// Delete removes the book stored under key and persists the removal.
func (s *Service) Delete(ctx context.Context, key string) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, ok := s.books[key]
	if !ok {
		return models.Book{}, ErrNotFound
	}

	next := s.cloneLocked()
	delete(next, key)

	if err := s.store.SaveAll(ctx, mapValues(next)); err != nil {
		return models.Book{}, fmt.Errorf("persist delete: %w", err)
	}
	s.books = next

	s.broadcast(events.CatalogEvent{Type: events.TypeBookDelete, BookID: removed.ID, Title: removed.Title})
	return removed, nil
}

// nextIDLocked returns one greater than the highest numeric ID in the
// catalog, or "1" when none parses.
func (s *Service) nextIDLocked() string {
	maxID := 0
	for _, b := range s.books {
		if n, err := strconv.Atoi(strings.TrimSpace(b.ID)); err == nil && n > maxID {
			maxID = n
		}
	}
	return strconv.Itoa(maxID + 1)
}

func (s *Service) snapshotLocked() []models.Book {
	out := make([]models.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	return out
}

func (s *Service) cloneLocked() map[string]models.Book {
	next := make(map[string]models.Book, len(s.books)+1)
	for k, b := range s.books {
		next[k] = b
	}
	return next
}

func mapValues(m map[string]models.Book) []models.Book {
	out := make([]models.Book, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	return out
}

func (s *Service) broadcast(ev events.CatalogEvent) {
	if s.hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	s.hub.BroadcastJSON(ev)
}

func idLess(a, b string) bool {
	ai, aerr := strconv.Atoi(strings.TrimSpace(a))
	bi, berr := strconv.Atoi(strings.TrimSpace(b))
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
