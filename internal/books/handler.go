package books

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"bookrec/internal/catalog"
	"bookrec/internal/recommend"
)

type Handler struct {
	Catalog *catalog.Service
}

func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{Catalog: svc}
}

// RegisterPublic mounts the read-only endpoints plus recommend.
func (h *Handler) RegisterPublic(r gin.IRouter) {
	r.GET("/books", h.count)
	r.GET("/books/all", h.listAll)
	r.GET("/conflicts", h.conflicts)
	r.POST("/recommend", h.recommend)
}

// RegisterAdmin mounts the write endpoints; the group carries the admin
// middleware.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.PUT("/books/:id", h.update)
	rg.DELETE("/books/:id", h.remove)
	rg.POST("/upload-csv", h.uploadCSV)
	rg.POST("/confirm-updates", h.confirmUpdates)
	rg.POST("/resolve-covers", h.resolveCovers)
}

func (h *Handler) count(c *gin.Context) {
	n := h.Catalog.Count()
	c.JSON(http.StatusOK, gin.H{"count": n, "loaded": n > 0})
}

func (h *Handler) listAll(c *gin.Context) {
	offset := parseInt(c.Query("offset"), 0)
	limit := parseInt(c.Query("limit"), 0) // 0 means all

	page, total := h.Catalog.List(offset, limit)
	c.JSON(http.StatusOK, gin.H{
		"books":  page,
		"count":  total,
		"offset": offset,
		"limit":  limit,
	})
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")

	var upd catalog.BookUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if upd.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update."})
		return
	}

	book, changes, err := h.Catalog.Update(c.Request.Context(), id, upd)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Book '%s' not found.", id)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("Book '%s' updated.", book.Title),
		"book":           book,
		"changed_fields": changes,
	})
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")

	removed, err := h.Catalog.Delete(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Book '%s' not found.", id)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Book '%s' deleted.", removed.Title),
		"book_ID": id,
	})
}

func (h *Handler) uploadCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a .csv file."})
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a .csv file."})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	contents, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	if !utf8.Valid(contents) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be UTF-8 encoded."})
		return
	}

	rows, err := catalog.ReadCSVRows(strings.NewReader(string(contents)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.Catalog.ImportRows(c.Request.Context(), rows)
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf(
			"Processed %d rows: %d added, %d skipped (duplicates), %d conflicts. Covers resolved: %d/%d.",
			summary.Rows, len(summary.Added), len(summary.Skipped), len(summary.Conflicted),
			summary.CoversResolved, len(summary.Added),
		),
		"batch_id":         summary.BatchID,
		"added_books":      summary.Added,
		"skipped_books":    summary.Skipped,
		"conflicted_books": summary.Conflicted,
	})
}

func (h *Handler) conflicts(c *gin.Context) {
	list := h.Catalog.Conflicts()
	c.JSON(http.StatusOK, gin.H{"conflicts": list, "count": len(list)})
}

type confirmReq struct {
	BookIDs []string `json:"book_ids"`
}

func (h *Handler) confirmUpdates(c *gin.Context) {
	var req confirmReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	applied, notFound, err := h.Catalog.ConfirmUpdates(c.Request.Context(), req.BookIDs)
	if errors.Is(err, catalog.ErrEmptyStage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No pending conflicts. Upload a CSV first."})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirm failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             fmt.Sprintf("Updated %d books.", len(applied)),
		"updated":             applied,
		"not_found":           notFound,
		"remaining_conflicts": h.Catalog.StageSize(),
	})
}

func (h *Handler) resolveCovers(c *gin.Context) {
	force := c.Query("force") == "true"

	summary, err := h.Catalog.ResolveCovers(c.Request.Context(), force)
	if errors.Is(err, catalog.ErrNoCatalog) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No books in the database."})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cover resolution failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf(
			"Cover resolution complete. %d found, %d not found, %d skipped (already had cover).",
			summary.Resolved, summary.Failed, summary.Skipped,
		),
		"resolved": summary.Resolved,
		"failed":   summary.Failed,
		"skipped":  summary.Skipped,
		"total":    summary.Total,
	})
}

func (h *Handler) recommend(c *gin.Context) {
	var prefs recommend.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, err := h.Catalog.Recommend(prefs)
	if errors.Is(err, catalog.ErrNoCatalog) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No books in the database. Upload a CSV first via POST /upload-csv."})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recommend failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books":         result.Books,
		"total":         len(result.Books),
		"max_score":     result.MaxScore,
		"genre_filter":  result.GenreFilter,
		"filtered_from": result.FilteredFrom,
	})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
