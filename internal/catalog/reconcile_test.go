package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/pkg/models"
)

// fakeStore keeps the persisted snapshot in memory.
type fakeStore struct {
	mu      sync.Mutex
	saved   []models.Book
	saves   int
	saveErr error
}

func (f *fakeStore) LoadAll(_ context.Context) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Book(nil), f.saved...), nil
}

func (f *fakeStore) SaveAll(_ context.Context, books []models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append([]models.Book(nil), books...)
	f.saves++
	return nil
}

// fakeResolver returns a canned URL per title.
type fakeResolver struct {
	mu   sync.Mutex
	urls map[string]string
}

func (f *fakeResolver) Resolve(_ context.Context, title, _ string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.urls[title]
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeResolver) {
	t.Helper()
	st := &fakeStore{}
	rs := &fakeResolver{urls: map[string]string{}}
	return NewService(st, rs, nil), st, rs
}

func rowFor(title, author string, extra map[string]string) map[string]string {
	row := map[string]string{
		"book_title":             title,
		"book_author":            author,
		"sri_Rating":             "4",
		"goodreads_avg_rating":   "4.1",
		"goodreads_rating_count": "50",
		"page_count":             "300",
		"Genre_Intent":           "fantasy",
		"Pace":                   "fast",
		"Plot_Character":         "character",
		"Mood_Finish":            "hopeful",
	}
	for k, v := range extra {
		row[k] = v
	}
	return row
}

func TestImportRowsEmptyBatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ImportRows(context.Background(), nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestImportRowsMissingColumns(t *testing.T) {
	svc, st, _ := newTestService(t)

	row := rowFor("Dune", "Frank Herbert", nil)
	delete(row, "Pace")

	_, err := svc.ImportRows(context.Background(), []map[string]string{row})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "Pace")
	assert.Zero(t, st.saves, "batch rejected before any mutation")
	assert.Zero(t, svc.Count())
}

func TestImportRowsAddsNewBooks(t *testing.T) {
	svc, st, rs := newTestService(t)
	rs.urls["Dune"] = "https://covers/dune.jpg"

	summary, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Dune", "Frank Herbert", nil),
		rowFor("Piranesi", "Susanna Clarke", nil),
	})
	require.NoError(t, err)

	assert.Len(t, summary.Added, 2)
	assert.Empty(t, summary.Skipped)
	assert.Empty(t, summary.Conflicted)
	assert.Equal(t, 1, summary.CoversResolved)
	assert.NotEmpty(t, summary.BatchID)

	// IDs are sequential starting at 1, in input order.
	assert.Equal(t, "1", summary.Added[0].BookID)
	assert.Equal(t, "2", summary.Added[1].BookID)

	assert.Equal(t, 2, svc.Count())
	assert.Equal(t, 2, st.saves, "saved after adds and again after covers")

	// The resolved cover was persisted.
	persisted, _ := st.LoadAll(context.Background())
	var dune models.Book
	for _, b := range persisted {
		if b.Title == "Dune" {
			dune = b
		}
	}
	assert.Equal(t, "https://covers/dune.jpg", dune.CoverURL)
}

func TestImportRowsNextIDSkipsGaps(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, models.Book{ID: "7", Title: "Dune", Author: "Frank Herbert", DisplayTitle: "Dune", CoverSearchTitle: "Dune"})

	summary, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Piranesi", "Susanna Clarke", nil),
	})
	require.NoError(t, err)
	require.Len(t, summary.Added, 1)
	assert.Equal(t, "8", summary.Added[0].BookID)
}

func TestImportRowsIdempotentReimport(t *testing.T) {
	svc, _, _ := newTestService(t)

	rows := []map[string]string{
		rowFor("Dune", "Frank Herbert", nil),
		rowFor("Piranesi", "Susanna Clarke", nil),
	}

	first, err := svc.ImportRows(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, first.Added, 2)

	// Re-import with the assigned IDs round-tripped, as an export would.
	again := []map[string]string{
		rowFor("Dune", "Frank Herbert", map[string]string{"book_ID": first.Added[0].BookID}),
		rowFor("Piranesi", "Susanna Clarke", map[string]string{"book_ID": first.Added[1].BookID}),
	}
	second, err := svc.ImportRows(context.Background(), again)
	require.NoError(t, err)

	assert.Empty(t, second.Added)
	assert.Len(t, second.Skipped, 2)
	assert.Empty(t, second.Conflicted)
}

func TestImportRowsConflictOnChangedField(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, models.Book{
		ID: "7", Title: "Dune", Author: "Frank Herbert",
		Rating: 4, AvgRating: 4.1, RatingCount: 50, PageCount: 300,
		Intent: "fantasy", Pace: "fast", PlotCharacter: "character", MoodFinish: "hopeful",
		DisplayTitle: "Dune", CoverSearchTitle: "Dune",
	})

	// Same book matched by title+author (no id in the row), page count changed.
	summary, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Dune", "Frank Herbert", map[string]string{"book_ID": "7", "page_count": "500"}),
	})
	require.NoError(t, err)

	require.Len(t, summary.Conflicted, 1)
	conflict := summary.Conflicted[0]
	assert.Equal(t, "7", conflict.BookID, "identity inherited from the match")
	require.Len(t, conflict.Differences, 1, "only page_count differs")
	assert.Equal(t, models.FieldChange{Old: "300", New: "500"}, conflict.Differences["page_count"])

	// The catalog itself is untouched until confirmed.
	page, _ := svc.List(0, 0)
	require.Len(t, page, 1)
	assert.Equal(t, 300, page[0].PageCount)

	views := svc.Conflicts()
	require.Len(t, views, 1)
	assert.Equal(t, "7", views[0].Key, "staged under the existing record's key")
}

func TestImportRowsMatchByTitleAuthorCaseInsensitive(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, models.Book{
		ID: "1", Title: "Dune", Author: "Frank Herbert",
		Rating: 4, AvgRating: 4.1, RatingCount: 50, PageCount: 300,
		Intent: "fantasy", Pace: "fast", PlotCharacter: "character", MoodFinish: "hopeful",
		DisplayTitle: "Dune", CoverSearchTitle: "Dune",
	})

	summary, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("  DUNE ", "frank herbert", map[string]string{"page_count": "999"}),
	})
	require.NoError(t, err)
	assert.Empty(t, summary.Added, "sloppy formatting still matches the existing record")
	assert.Len(t, summary.Conflicted, 1)
}

func TestImportRowsStageReplacedEachRun(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc,
		models.Book{ID: "1", Title: "Dune", Author: "Frank Herbert", PageCount: 300, Rating: 4, AvgRating: 4.1, RatingCount: 50, Intent: "fantasy", Pace: "fast", PlotCharacter: "character", MoodFinish: "hopeful", DisplayTitle: "Dune", CoverSearchTitle: "Dune"},
		models.Book{ID: "2", Title: "Piranesi", Author: "Susanna Clarke", PageCount: 300, Rating: 4, AvgRating: 4.1, RatingCount: 50, Intent: "fantasy", Pace: "fast", PlotCharacter: "character", MoodFinish: "hopeful", DisplayTitle: "Piranesi", CoverSearchTitle: "Piranesi"},
	)

	// First run conflicts on Dune.
	_, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Dune", "Frank Herbert", map[string]string{"book_ID": "1", "page_count": "999"}),
	})
	require.NoError(t, err)
	require.Equal(t, 1, svc.StageSize())

	// Second run conflicts only on Piranesi; Dune's conflict is abandoned.
	_, err = svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Piranesi", "Susanna Clarke", map[string]string{"book_ID": "2", "page_count": "999"}),
	})
	require.NoError(t, err)

	views := svc.Conflicts()
	require.Len(t, views, 1)
	assert.Equal(t, "2", views[0].Key)
}

func TestImportRowsSaveFailureRollsBackAdds(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.saveErr = errors.New("disk full")

	_, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Dune", "Frank Herbert", nil),
	})
	require.Error(t, err)
	assert.Zero(t, svc.Count(), "failed persist leaves memory matching disk")
}

func TestConfirmUpdatesRoundTrip(t *testing.T) {
	svc, st, _ := newTestService(t)
	seed(t, svc, models.Book{
		ID: "7", Title: "Dune", Author: "Frank Herbert",
		Rating: 4, AvgRating: 4.1, RatingCount: 50, PageCount: 300,
		Intent: "fantasy", Pace: "fast", PlotCharacter: "character", MoodFinish: "hopeful",
		DisplayTitle: "Dune", CoverSearchTitle: "Dune",
	})

	_, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Dune", "Frank Herbert", map[string]string{"book_ID": "7", "page_count": "500"}),
	})
	require.NoError(t, err)

	applied, notFound, err := svc.ConfirmUpdates(context.Background(), []string{"7", "999"})
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, applied)
	assert.Equal(t, []string{"999"}, notFound)
	assert.Zero(t, svc.StageSize(), "confirmed conflict removed from the stage")

	page, _ := svc.List(0, 0)
	require.Len(t, page, 1)
	assert.Equal(t, 500, page[0].PageCount, "staged new record applied")

	persisted, _ := st.LoadAll(context.Background())
	require.Len(t, persisted, 1)
	assert.Equal(t, 500, persisted[0].PageCount)
}

func TestConfirmUpdatesEmptyStage(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, models.Book{ID: "1", Title: "Dune", DisplayTitle: "Dune", CoverSearchTitle: "Dune"})

	_, _, err := svc.ConfirmUpdates(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, ErrEmptyStage)
}

func TestConfirmUpdatesUnknownKeysOnly(t *testing.T) {
	svc, st, _ := newTestService(t)
	seed(t, svc, models.Book{
		ID: "7", Title: "Dune", Author: "Frank Herbert",
		Rating: 4, AvgRating: 4.1, RatingCount: 50, PageCount: 300,
		Intent: "fantasy", Pace: "fast", PlotCharacter: "character", MoodFinish: "hopeful",
		DisplayTitle: "Dune", CoverSearchTitle: "Dune",
	})
	_, err := svc.ImportRows(context.Background(), []map[string]string{
		rowFor("Dune", "Frank Herbert", map[string]string{"book_ID": "7", "page_count": "500"}),
	})
	require.NoError(t, err)
	savesBefore := st.saves

	applied, notFound, err := svc.ConfirmUpdates(context.Background(), []string{"999"})
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, []string{"999"}, notFound)
	assert.Equal(t, savesBefore, st.saves, "nothing applied, nothing persisted")
	assert.Equal(t, 1, svc.StageSize())
}

// seed loads books into the service through the store, as startup would.
func seed(t *testing.T, svc *Service, books ...models.Book) {
	t.Helper()
	require.NoError(t, svc.store.SaveAll(context.Background(), books))
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
}
