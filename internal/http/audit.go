package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/entities"
)

type AuditController struct {
	auditService AuditReader
}

func NewAuditController(auditService AuditReader) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/admin/audit?type=&user_id=&entity=&status=&since=YYYY-MM-DD&page=&limit=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, limit := parsePage(c, 25, 100)
	offset := (page - 1) * limit

	filter, ok := parseAuditFilter(c)
	if !ok {
		return
	}

	events, total, err := ac.auditService.SearchEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "load audit events")
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

// GetEntityHistory returns every event about one entity
// GET /api/admin/audit/:entity/:id
func (ac *AuditController) GetEntityHistory(c *gin.Context) {
	entity := c.Param("entity")
	if !entities.IsAuditEntity(entity) {
		respondBadRequest(c, "unknown entity type")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	events, err := ac.auditService.EntityHistory(entity, id)
	if err != nil {
		respondInternalError(c, err, "load entity history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// LoanTimeline returns the workflow events of one book record
// GET /api/loans/:id/history
func (ac *AuditController) LoanTimeline(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	events, err := ac.auditService.LoanTimeline(id)
	if err != nil {
		respondInternalError(c, err, "load loan timeline")
		return
	}
	c.JSON(http.StatusOK, gin.H{"record_id": id, "events": events})
}

func parseAuditFilter(c *gin.Context) (entities.AuditFilter, bool) {
	var f entities.AuditFilter

	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return f, false
		}
		f.ActorID = uint(id)
	}

	if raw := c.Query("type"); raw != "" {
		t, ok := entities.ParseAuditEventType(raw)
		if !ok {
			respondBadRequest(c, "unknown event type")
			return f, false
		}
		f.EventType = t
	}

	if raw := c.Query("entity"); raw != "" {
		if !entities.IsAuditEntity(raw) {
			respondBadRequest(c, "unknown entity type")
			return f, false
		}
		f.EntityType = raw
	}

	switch status := entities.AuditStatus(c.Query("status")); status {
	case "":
	case entities.AuditStatusSuccess, entities.AuditStatusFailed:
		f.Status = status
	default:
		respondBadRequest(c, "status must be success or failed")
		return f, false
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			respondBadRequest(c, "since must be YYYY-MM-DD")
			return f, false
		}
		f.Since = since
	}

	return f, true
}
