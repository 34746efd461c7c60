package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/database/models"
	"bloodlink-backend/shared/utils/query"
)

// Organization endpoints are read-only: this service consumes the tree for
// scope validation, it does not manage it.

// GetOrganizations retrieves organizations with pagination and filtering
// @Summary List organizations
// @Description List organizations with pagination, filtering, sorting and search
// @Tags organizations
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param search query string false "Search term across name"
// @Param filters[type] query string false "Filter by type (hospital_network, blood_bank_chain, standalone, branch)"
// @Param filters[parent_id] query string false "Filter by parent organization ID"
// @Param filters[is_active] query bool false "Filter by active flag"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /organizations [get]
func GetOrganizations(ctx *gin.Context) {
	db := database.DB

	params := query.ParseQueryParams(ctx)

	allowedFilters := map[string]string{
		"type":      "type",
		"parent_id": "parent_id",
		"is_active": "is_active",
	}
	allowedSortFields := map[string]string{
		"name":       "name",
		"type":       "type",
		"created_at": "created_at",
	}
	searchFields := []string{"name"}

	dbQuery := db.Model(&models.Organization{})
	dbQuery = query.ApplyFilters(dbQuery, params.Filters, allowedFilters)
	dbQuery = query.ApplySearch(dbQuery, params.Search, searchFields)
	dbQuery = query.ApplySort(dbQuery, params.Sort, allowedSortFields)

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to count organizations",
			"message": err.Error(),
		})
		return
	}

	dbQuery = query.ApplyPagination(dbQuery, params.Page, params.Limit)

	var organizations []models.Organization
	if err := dbQuery.Find(&organizations).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve organizations",
			"message": err.Error(),
		})
		return
	}

	pagination := query.BuildPaginationResponse(params.Page, params.Limit, total)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items":      organizations,
			"pagination": pagination,
		},
	})
}

// GetOrganization retrieves a single organization by ID
// @Summary Get organization by ID
// @Description Get detailed information about a specific organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path string true "Organization ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid organization ID format"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id} [get]
func GetOrganization(ctx *gin.Context) {
	orgID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	db := database.DB

	var org models.Organization
	if err := db.Preload("Parent").First(&org, "id = ?", orgID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":   "Organization not found",
				"message": "Organization with the given ID does not exist",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve organization",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    org,
	})
}

// GetOrganizationBranches lists the branches of a parent organization
// @Summary List organization branches
// @Description List the branch organizations under a parent organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path string true "Organization ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid organization ID format"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id}/branches [get]
func GetOrganizationBranches(ctx *gin.Context) {
	orgID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	db := database.DB

	var org models.Organization
	if err := db.First(&org, "id = ?", orgID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":   "Organization not found",
				"message": "Organization with the given ID does not exist",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve organization",
			"message": err.Error(),
		})
		return
	}

	var branches []models.Organization
	if err := db.Where("parent_id = ?", orgID).Order("name asc").Find(&branches).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve branches",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"organization": org,
			"is_parent":    org.IsParentType(),
			"branches":     branches,
		},
	})
}
