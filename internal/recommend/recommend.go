// Package recommend scores and ranks catalog books against a reader's
// stated preferences. Pure computation over a snapshot; no catalog access.
package recommend

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"bookrec/pkg/models"
)

// Any is the sentinel preference value meaning "ignore this dimension".
const Any = "any"

// Preferences is the recommendation request. Genre intent is a filter, never
// scored; the other three text dimensions plus the length bucket score one
// point each when active.
type Preferences struct {
	GenreIntent   string `json:"genre_intent"`
	Pace          string `json:"pace"`
	PlotCharacter string `json:"plot_character"`
	MoodFinish    string `json:"mood_finish"`
	Length        string `json:"length"`
}

// RankedBook annotates a book with its score for one request.
type RankedBook struct {
	models.Book
	MatchScore int `json:"match_score"`
	MaxScore   int `json:"max_score"`
}

// Result is a ranked recommendation list. MaxScore is dynamic per request:
// one point per dimension not set to "any".
type Result struct {
	Books        []RankedBook
	MaxScore     int
	GenreFilter  string
	FilteredFrom int
}

// Recommend filters books by genre intent, scores survivors against the
// active dimensions, and ranks by score desc, personal rating desc,
// popularity desc, then numeric ID asc for a deterministic total order.
func Recommend(books []models.Book, prefs Preferences) Result {
	genre := norm(prefs.GenreIntent)
	filtered := make([]models.Book, 0, len(books))
	for _, b := range books {
		if norm(b.Intent) == genre {
			filtered = append(filtered, b)
		}
	}

	type dimension struct {
		want  string
		value func(models.Book) string
	}
	all := []dimension{
		{prefs.Pace, func(b models.Book) string { return b.Pace }},
		{prefs.PlotCharacter, func(b models.Book) string { return b.PlotCharacter }},
		{prefs.MoodFinish, func(b models.Book) string { return b.MoodFinish }},
	}
	active := all[:0:0]
	for _, d := range all {
		if norm(d.want) != Any {
			active = append(active, d)
		}
	}

	lengthActive := norm(prefs.Length) != Any
	low, high := pageRange(prefs.Length)

	maxScore := len(active)
	if lengthActive {
		maxScore++
	}

	ranked := make([]RankedBook, 0, len(filtered))
	for _, b := range filtered {
		score := 0
		for _, d := range active {
			if norm(d.value(b)) == norm(d.want) {
				score++
			}
		}
		if lengthActive && b.PageCount >= low && b.PageCount <= high {
			score++
		}
		ranked = append(ranked, RankedBook{Book: b, MatchScore: score, MaxScore: maxScore})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		pa, pb := a.Popularity(), b.Popularity()
		if pa != pb {
			return pa > pb
		}
		return idLess(a.ID, b.ID)
	})

	return Result{
		Books:        ranked,
		MaxScore:     maxScore,
		GenreFilter:  genre,
		FilteredFrom: len(books),
	}
}

// pageRange maps a length preference to an inclusive page-count range. Any
// unrecognized value (including "any") maps to an empty range that matches
// nothing.
func pageRange(length string) (int, int) {
	switch norm(length) {
	case "short":
		return 0, 200
	case "medium":
		return 201, 400
	case "long":
		return 401, 600
	case "epic":
		return 601, math.MaxInt
	default:
		return 0, -1
	}
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func idLess(a, b string) bool {
	ai, aerr := strconv.Atoi(strings.TrimSpace(a))
	bi, berr := strconv.Atoi(strings.TrimSpace(b))
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
