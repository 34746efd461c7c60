package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bloodlink-backend/inventory-service/services"
	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/database/models/inventory"
	"bloodlink-backend/shared/utils/query"
)

// CreateBloodUnitRequest represents request body for registering a collected unit
type CreateBloodUnitRequest struct {
	UnitCode    string     `json:"unit_code" binding:"required"`
	BloodGroup  *string    `json:"blood_group"`
	VolumeML    int        `json:"volume_ml" binding:"required"`
	Location    string     `json:"location"`
	CollectedAt *time.Time `json:"collected_at"`
}

// TransitionStatusRequest represents the compare-and-swap payload
type TransitionStatusRequest struct {
	ExpectedStatus string `json:"expected_status" binding:"required"`
	NewStatus      string `json:"new_status" binding:"required"`
}

// BloodUnitHandler serves blood unit endpoints
type BloodUnitHandler struct {
	catalog *services.CatalogService
}

// NewBloodUnitHandler creates a blood unit handler
func NewBloodUnitHandler(catalog *services.CatalogService) *BloodUnitHandler {
	return &BloodUnitHandler{catalog: catalog}
}

// GetBloodUnits retrieves blood units with pagination and filtering
// @Summary List blood units
// @Description List blood units with pagination, filtering and search
// @Tags blood-units
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param search query string false "Search term across unit code"
// @Param filters[status] query string false "Filter by status"
// @Param filters[blood_group] query string false "Filter by blood group"
// @Param filters[organization_id] query string false "Filter by owning organization"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /blood-units [get]
func (h *BloodUnitHandler) GetBloodUnits(ctx *gin.Context) {
	db := database.DB

	params := query.ParseQueryParams(ctx)

	allowedFilters := map[string]string{
		"status":          "status",
		"blood_group":     "blood_group",
		"organization_id": "organization_id",
	}
	allowedSortFields := map[string]string{
		"unit_code":    "unit_code",
		"status":       "status",
		"collected_at": "collected_at",
		"created_at":   "created_at",
	}
	searchFields := []string{"unit_code"}

	dbQuery := db.Model(&inventory.BloodUnit{})
	dbQuery = query.ApplyFilters(dbQuery, params.Filters, allowedFilters)
	dbQuery = query.ApplySearch(dbQuery, params.Search, searchFields)
	dbQuery = query.ApplySort(dbQuery, params.Sort, allowedSortFields)

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to count blood units",
			"message": err.Error(),
		})
		return
	}

	dbQuery = query.ApplyPagination(dbQuery, params.Page, params.Limit)

	var units []inventory.BloodUnit
	if err := dbQuery.Find(&units).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve blood units",
			"message": err.Error(),
		})
		return
	}

	pagination := query.BuildPaginationResponse(params.Page, params.Limit, total)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items":      units,
			"pagination": pagination,
		},
	})
}

// GetBloodUnit retrieves a single blood unit by ID
// @Summary Get blood unit by ID
// @Description Get detailed information about a specific blood unit
// @Tags blood-units
// @Accept json
// @Produce json
// @Param id path string true "Blood unit ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Blood unit not found"
// @Router /blood-units/{id} [get]
func (h *BloodUnitHandler) GetBloodUnit(ctx *gin.Context) {
	unitID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	db := database.DB

	var unit inventory.BloodUnit
	if err := db.First(&unit, "id = ?", unitID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":   "Blood unit not found",
				"message": "Blood unit with the given ID does not exist",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve blood unit",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    unit,
	})
}

// CreateBloodUnit registers a freshly collected unit
// @Summary Register a collected blood unit
// @Description Register a collected unit for the caller's organization; status starts at collected
// @Tags blood-units
// @Accept json
// @Produce json
// @Param unit body CreateBloodUnitRequest true "Blood unit information"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request data"
// @Failure 409 {object} map[string]string "Unit code already exists"
// @Router /blood-units [post]
func (h *BloodUnitHandler) CreateBloodUnit(ctx *gin.Context) {
	var req CreateBloodUnitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}
	if req.BloodGroup != nil && !inventory.IsValidBloodGroup(*req.BloodGroup) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": "unknown blood group",
		})
		return
	}

	db := database.DB
	principal := currentPrincipal(ctx)

	var existing inventory.BloodUnit
	if err := db.Where("unit_code = ?", req.UnitCode).First(&existing).Error; err == nil {
		ctx.JSON(http.StatusConflict, gin.H{
			"error":   "Unit code already exists",
			"message": "A blood unit with this code already exists",
		})
		return
	}

	collectedAt := time.Now().UTC()
	if req.CollectedAt != nil {
		collectedAt = *req.CollectedAt
	}

	unit := inventory.BloodUnit{
		UnitCode:       req.UnitCode,
		OrganizationID: principal.OrganizationID,
		BloodGroup:     req.BloodGroup,
		VolumeML:       req.VolumeML,
		Status:         inventory.StatusCollected,
		Location:       req.Location,
		CollectedAt:    collectedAt,
	}

	if err := db.Create(&unit).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create blood unit",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Blood unit registered successfully",
		"data":    unit,
	})
}

// TransitionBloodUnitStatus applies the status compare-and-swap to a unit
// @Summary Transition blood unit status
// @Description Atomically move a unit from expected_status to new_status; fails on mismatch
// @Tags blood-units
// @Accept json
// @Produce json
// @Param id path string true "Blood unit ID" format(uuid)
// @Param transition body TransitionStatusRequest true "Expected and new status"
// @Security BearerAuth
// @Success 200 {object} handlers.SuccessResponse
// @Failure 400 {object} map[string]string "Invalid request data"
// @Failure 404 {object} map[string]string "Blood unit not found"
// @Failure 409 {object} map[string]string "Status conflict"
// @Router /blood-units/{id}/status [patch]
func (h *BloodUnitHandler) TransitionBloodUnitStatus(ctx *gin.Context) {
	unitID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req TransitionStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	if err := h.catalog.TransitionUnitStatus(unitID, req.ExpectedStatus, req.NewStatus); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Blood unit status updated successfully",
	})
}
