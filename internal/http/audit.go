package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcards/internal/entities"
)

type AuditController struct {
	audit AuditReader
}

func NewAuditController(audit AuditReader) *AuditController {
	return &AuditController{audit: audit}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=ingest|backfill&status=partial&page=&limit=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 25)
	if !ok {
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	offset := (page - 1) * limit

	var events []entities.AuditEvent
	var total int64
	var err error

	switch {
	case c.Query("status") == string(entities.AuditStatusPartial):
		events, total, err = ac.audit.GetPartialWrites(limit, offset)
	case c.Query("type") != "":
		events, total, err = ac.audit.GetEventsByType(entities.AuditEventType(c.Query("type")), limit, offset)
	default:
		events, total, err = ac.audit.GetEvents(limit, offset)
	}

	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}
