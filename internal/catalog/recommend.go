package catalog

import (
	"bookrec/internal/recommend"
)

// Recommend snapshots the catalog under the read lock and delegates to the
// recommendation engine. Errors with ErrNoCatalog when the catalog is empty;
// a genre filter that matches nothing is an empty, non-error result.
func (s *Service) Recommend(prefs recommend.Preferences) (recommend.Result, error) {
	s.mu.RLock()
	books := s.snapshotLocked()
	s.mu.RUnlock()

	if len(books) == 0 {
		return recommend.Result{}, ErrNoCatalog
	}
	return recommend.Recommend(books, prefs), nil
}
