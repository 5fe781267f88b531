// Package covers resolves book cover image URLs from public metadata APIs.
// Resolution is best effort: every failure degrades to an empty URL so a
// missing cover never fails an import.
package covers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	openLibraryBase   = "https://openlibrary.org"
	openLibraryCovers = "https://covers.openlibrary.org"
	googleBooksBase   = "https://www.googleapis.com/books/v1"
)

// Resolver queries Open Library and Google Books for cover images with a
// three-step fallback:
//  1. Open Library (title + author)
//  2. Google Books (title + author)
//  3. Open Library (title only)
type Resolver struct {
	Client *http.Client

	// Overridable for tests.
	OpenLibraryBase   string
	OpenLibraryCovers string
	GoogleBooksBase   string
}

func NewResolver() *Resolver {
	return &Resolver{
		Client:            &http.Client{Timeout: 10 * time.Second},
		OpenLibraryBase:   openLibraryBase,
		OpenLibraryCovers: openLibraryCovers,
		GoogleBooksBase:   googleBooksBase,
	}
}

// Resolve returns a cover image URL, or "" when no source has one.
func (r *Resolver) Resolve(ctx context.Context, title, author string) string {
	if u, err := r.openLibrary(ctx, title, author); err == nil && u != "" {
		return u
	}
	if u, err := r.googleBooks(ctx, title, author); err == nil && u != "" {
		return u
	}
	if u, err := r.openLibrary(ctx, title, ""); err == nil && u != "" {
		return u
	}
	return ""
}

type olResponse struct {
	Docs []struct {
		CoverID int64 `json:"cover_i"`
	} `json:"docs"`
}

func (r *Resolver) openLibrary(ctx context.Context, title, author string) (string, error) {
	query := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(author))
	if query == "" {
		return "", nil
	}

	endpoint := fmt.Sprintf("%s/search.json?q=%s&limit=1&fields=cover_i",
		r.OpenLibraryBase, url.QueryEscape(query))

	var resp olResponse
	if err := r.getJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if len(resp.Docs) == 0 || resp.Docs[0].CoverID == 0 {
		return "", nil
	}
	return fmt.Sprintf("%s/b/id/%d-M.jpg", r.OpenLibraryCovers, resp.Docs[0].CoverID), nil
}

type gbResponse struct {
	Items []struct {
		VolumeInfo struct {
			ImageLinks struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (r *Resolver) googleBooks(ctx context.Context, title, author string) (string, error) {
	query := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(author))
	if query == "" {
		return "", nil
	}

	endpoint := fmt.Sprintf("%s/volumes?q=%s&maxResults=1",
		r.GoogleBooksBase, url.QueryEscape(query))

	var resp gbResponse
	if err := r.getJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", nil
	}

	thumb := resp.Items[0].VolumeInfo.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = resp.Items[0].VolumeInfo.ImageLinks.SmallThumbnail
	}
	// Google returns http URLs; upgrade to https.
	return strings.Replace(thumb, "http://", "https://", 1), nil
}

func (r *Resolver) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	res, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", endpoint, res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
