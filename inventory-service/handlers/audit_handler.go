package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/database/models/audit"
	"bloodlink-backend/shared/utils/query"
)

// GetAuditEvents retrieves audit events with pagination and filtering
// @Summary List audit events
// @Description List the audit trail with pagination and filtering; events are append-only
// @Tags audit
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param filters[action] query string false "Filter by action"
// @Param filters[actor_id] query string false "Filter by acting user"
// @Param filters[organization_id] query string false "Filter by organization"
// @Param filters[subject_id] query string false "Filter by subject"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /audit-events [get]
func GetAuditEvents(ctx *gin.Context) {
	db := database.DB

	params := query.ParseQueryParams(ctx)

	allowedFilters := map[string]string{
		"action":          "action",
		"actor_id":        "actor_id",
		"organization_id": "organization_id",
		"subject_id":      "subject_id",
	}
	allowedSortFields := map[string]string{
		"action":     "action",
		"created_at": "created_at",
	}

	dbQuery := db.Model(&audit.AuditEvent{})
	dbQuery = query.ApplyFilters(dbQuery, params.Filters, allowedFilters)
	dbQuery = query.ApplySort(dbQuery, params.Sort, allowedSortFields)

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to count audit events",
			"message": err.Error(),
		})
		return
	}

	dbQuery = query.ApplyPagination(dbQuery, params.Page, params.Limit)

	var events []audit.AuditEvent
	if err := dbQuery.Order("created_at desc").Find(&events).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve audit events",
			"message": err.Error(),
		})
		return
	}

	pagination := query.BuildPaginationResponse(params.Page, params.Limit, total)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items":      events,
			"pagination": pagination,
		},
	})
}
