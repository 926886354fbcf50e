package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcards/internal/catalog"
	"github.com/mrlokans/bookcards/internal/ingest"
)

// Machine-readable error codes
const (
	CodeInvalidInput = "invalid_input"
	CodeNotFound     = "not_found"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalidInput})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal})
}

// respondIngestError maps a pipeline failure to a status code. The error kind
// is always reported as the code.
func respondIngestError(c *gin.Context, err error) {
	var ingestErr *ingest.Error
	if !errors.As(err, &ingestErr) {
		respondInternalError(c, err, "ingest")
		return
	}

	status := http.StatusInternalServerError
	switch ingestErr.Kind {
	case ingest.KindInvalidInput:
		status = http.StatusBadRequest
	case ingest.KindCompletionFailed:
		status = http.StatusBadGateway
	}

	resp := ErrorResponse{Error: ingestErr.Detail, Code: string(ingestErr.Kind)}
	if ingestErr.Err != nil && !ingestErr.ClientError() {
		resp.Details = ingestErr.Err.Error()
	}
	c.JSON(status, resp)
}

// respondCatalogError maps catalog errors to 400, 404 or 500.
func respondCatalogError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.Is(err, catalog.ErrInvalidPage), errors.Is(err, catalog.ErrInvalidCount):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// --- Parameter Parsing ---

// queryInt reads an integer query parameter, returning def when it is absent.
// Responds with a 400 error and returns false when the value is not a number.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// parseQueryID extracts and validates an unsigned integer ID from query parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseQueryID(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		respondBadRequest(c, paramName+" is required")
		return 0, false
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}
