package catalog

import (
	"context"
	"fmt"

	"bookrec/internal/events"
)

// CoversSummary reports one cover-resolution pass over the catalog.
type CoversSummary struct {
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// ResolveCovers re-resolves cover URLs for books missing one, or for every
// book when force is set. Lookups run on the bounded pool; an empty result is
// recorded as failed but never errors the pass.
func (s *Service) ResolveCovers(ctx context.Context, force bool) (*CoversSummary, error) {
	s.mu.RLock()
	total := len(s.books)
	if total == 0 {
		s.mu.RUnlock()
		return nil, ErrNoCatalog
	}

	skipped := 0
	var keys []string
	for k, b := range s.books {
		if b.CoverURL != "" && !force {
			skipped++
			continue
		}
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	resolved := 0
	if s.covers != nil {
		resolved = s.resolveCoversByKey(ctx, keys)
	}

	s.mu.Lock()
	err := s.store.SaveAll(ctx, s.snapshotLocked())
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("persist covers: %w", err)
	}

	s.broadcast(events.CatalogEvent{Type: events.TypeCoversResolve, Resolved: resolved})
	return &CoversSummary{
		Resolved: resolved,
		Failed:   len(keys) - resolved,
		Skipped:  skipped,
		Total:    total,
	}, nil
}
