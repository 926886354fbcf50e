package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcards/internal/ingest"
	"github.com/mrlokans/bookcards/internal/tasks"
)

type FlashcardsController struct {
	ingester Ingester
	catalog  Catalog
	tasks    TaskQueue
	limits   Limits
}

func NewFlashcardsController(ingester Ingester, catalog Catalog, queue TaskQueue, limits Limits) *FlashcardsController {
	return &FlashcardsController{
		ingester: ingester,
		catalog:  catalog,
		tasks:    queue,
		limits:   limits,
	}
}

// GenerateRequest is the body of POST /api/generate-flashcards. Title is
// decoded loosely so that non-string values are reported as invalid input.
type GenerateRequest struct {
	Title any `json:"title"`
}

// GenerateFlashcards handles POST /api/generate-flashcards
// With ?async=true the request is queued and answered with 202 and a task ID.
func (fc *FlashcardsController) GenerateFlashcards(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "request body must be a JSON object with a title")
		return
	}

	title, err := ingest.ValidateTitle(req.Title)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		fc.enqueue(c, title)
		return
	}

	result, err := fc.ingester.Ingest(c.Request.Context(), title)
	if err != nil {
		respondIngestError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (fc *FlashcardsController) enqueue(c *gin.Context, title string) {
	if fc.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled", Code: CodeInternal})
		return
	}

	id, err := fc.tasks.Enqueue(c.Request.Context(), tasks.IngestTask{Title: title})
	if err != nil {
		respondInternalError(c, err, "enqueue ingest")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":    id,
		"title":      title,
		"status_url": "/api/tasks/" + id,
	})
}

// ListFlashcards handles GET /api/flashcards
// Requires bookId or slug. Paginates by page (1-based) unless a cursor is given.
func (fc *FlashcardsController) ListFlashcards(c *gin.Context) {
	bookID, ok := fc.bookID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", fc.limits.Flashcards)
	if !ok {
		return
	}

	if cursor, isCursor := c.GetQuery("cursor"); isCursor {
		page, err := fc.catalog.ListFlashcardsAfter(c.Request.Context(), bookID, cursor, limit)
		if err != nil {
			respondCatalogError(c, err, "list flashcards")
			return
		}
		c.JSON(http.StatusOK, page)
		return
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	cards, err := fc.catalog.ListFlashcards(c.Request.Context(), bookID, page, limit)
	if err != nil {
		respondCatalogError(c, err, "list flashcards")
		return
	}
	c.JSON(http.StatusOK, cards)
}

// bookID resolves the book from ?bookId= or, failing that, ?slug=. Unknown
// books are answered with 404.
func (fc *FlashcardsController) bookID(c *gin.Context) (uint, bool) {
	if slug := c.Query("slug"); slug != "" && c.Query("bookId") == "" {
		book, err := fc.catalog.LookupBook(c.Request.Context(), slug)
		if err != nil {
			respondCatalogError(c, err, "lookup book")
			return 0, false
		}
		return book.ID, true
	}

	id, ok := parseQueryID(c, "bookId")
	if !ok {
		return 0, false
	}
	if _, err := fc.catalog.GetBook(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err, "get book")
		return 0, false
	}
	return id, true
}
