package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bookrec/internal/events"
	"bookrec/pkg/models"
)

// ConflictView is the read-only display form of a staged conflict. The diff
// is recomputed from the stored pair on every read; old/new never change once
// staged.
type ConflictView struct {
	Key         string                        `json:"key"`
	BookID      string                        `json:"book_ID"`
	Title       string                        `json:"book_title"`
	Author      string                        `json:"book_author"`
	Differences map[string]models.FieldChange `json:"differences"`
}

// Conflicts lists the pending conflicts from the most recent import, ordered
// by key.
func (s *Service) Conflicts() []ConflictView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ConflictView, 0, len(s.stage))
	for key, c := range s.stage {
		out = append(out, ConflictView{
			Key:         key,
			BookID:      c.New.ID,
			Title:       c.New.Title,
			Author:      c.New.Author,
			Differences: c.Old.Diff(c.New),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// StageSize reports how many conflicts are currently staged.
func (s *Service) StageSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stage)
}

// ConfirmUpdates applies the staged `new` record for each requested key and
// removes it from the stage; unknown keys are reported in notFound and
// otherwise ignored. Errors with ErrEmptyStage when nothing is staged, so a
// confirm can never act on conflicts from an older, already-cleared run.
func (s *Service) ConfirmUpdates(ctx context.Context, keys []string) (applied, notFound []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stage) == 0 {
		return nil, nil, ErrEmptyStage
	}

	applied = []string{}
	notFound = []string{}
	next := s.cloneLocked()

	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		c, ok := s.stage[key]
		if !ok {
			notFound = append(notFound, key)
			continue
		}
		// The candidate inherited the existing ID at staging time, so this
		// is a same-key overwrite.
		next[key] = c.New
		applied = append(applied, key)
	}

	if len(applied) > 0 {
		if err := s.store.SaveAll(ctx, mapValues(next)); err != nil {
			return nil, nil, fmt.Errorf("persist confirmed updates: %w", err)
		}
		s.books = next
		for _, k := range applied {
			delete(s.stage, k)
		}
		s.broadcast(events.CatalogEvent{Type: events.TypeConflictsApply, Applied: len(applied)})
	}

	return applied, notFound, nil
}
