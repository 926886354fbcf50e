package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type BooksController struct {
	catalog Catalog
	limits  Limits
}

func NewBooksController(catalog Catalog, limits Limits) *BooksController {
	return &BooksController{
		catalog: catalog,
		limits:  limits,
	}
}

// ListBooks handles GET /api/books
// Newest first. Paginates by page (1-based) unless a cursor is given.
func (bc *BooksController) ListBooks(c *gin.Context) {
	limit, ok := queryInt(c, "limit", bc.limits.Books)
	if !ok {
		return
	}

	if cursor, isCursor := c.GetQuery("cursor"); isCursor {
		page, err := bc.catalog.ListBooksAfter(c.Request.Context(), cursor, limit)
		if err != nil {
			respondCatalogError(c, err, "list books")
			return
		}
		c.JSON(http.StatusOK, page)
		return
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	books, err := bc.catalog.ListBooks(c.Request.Context(), page, limit)
	if err != nil {
		respondCatalogError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, books)
}

// RandomBooks handles GET /api/books/random?count=N
func (bc *BooksController) RandomBooks(c *gin.Context) {
	count, ok := queryInt(c, "count", bc.limits.RandomBooks)
	if !ok {
		return
	}
	books, err := bc.catalog.RandomBooks(c.Request.Context(), count)
	if err != nil {
		respondCatalogError(c, err, "random books")
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook handles GET /api/books/:slug
func (bc *BooksController) GetBook(c *gin.Context) {
	book, err := bc.catalog.LookupBook(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondCatalogError(c, err, "lookup book")
		return
	}
	c.JSON(http.StatusOK, book)
}
