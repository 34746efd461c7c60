package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/inventory-service/services"
	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/database/models/inventory"
	"bloodlink-backend/shared/utils/query"
)

// CreateComponentRequest represents request body for separating a component
// from a blood unit
type CreateComponentRequest struct {
	BloodUnitID     uuid.UUID `json:"blood_unit_id" binding:"required"`
	Type            string    `json:"type" binding:"required"`
	VolumeML        int       `json:"volume_ml" binding:"required"`
	ExpiryDate      time.Time `json:"expiry_date" binding:"required"`
	StorageLocation string    `json:"storage_location"`
}

// ComponentHandler serves component endpoints
type ComponentHandler struct {
	catalog *services.CatalogService
}

// NewComponentHandler creates a component handler
func NewComponentHandler(catalog *services.CatalogService) *ComponentHandler {
	return &ComponentHandler{catalog: catalog}
}

// GetComponents retrieves components with pagination and filtering
// @Summary List components
// @Description List components with pagination and filtering
// @Tags components
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param filters[status] query string false "Filter by status"
// @Param filters[type] query string false "Filter by component type"
// @Param filters[blood_group] query string false "Filter by blood group"
// @Param filters[organization_id] query string false "Filter by owning organization"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /components [get]
func (h *ComponentHandler) GetComponents(ctx *gin.Context) {
	db := database.DB

	params := query.ParseQueryParams(ctx)

	allowedFilters := map[string]string{
		"status":          "status",
		"type":            "type",
		"blood_group":     "blood_group",
		"organization_id": "organization_id",
		"blood_unit_id":   "blood_unit_id",
	}
	allowedSortFields := map[string]string{
		"type":        "type",
		"blood_group": "blood_group",
		"status":      "status",
		"expiry_date": "expiry_date",
		"created_at":  "created_at",
	}

	dbQuery := db.Model(&inventory.Component{})
	dbQuery = query.ApplyFilters(dbQuery, params.Filters, allowedFilters)
	dbQuery = query.ApplySort(dbQuery, params.Sort, allowedSortFields)

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to count components",
			"message": err.Error(),
		})
		return
	}

	dbQuery = query.ApplyPagination(dbQuery, params.Page, params.Limit)

	var components []inventory.Component
	if err := dbQuery.Find(&components).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve components",
			"message": err.Error(),
		})
		return
	}

	pagination := query.BuildPaginationResponse(params.Page, params.Limit, total)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items":      components,
			"pagination": pagination,
		},
	})
}

// GetAvailableComponents lists reservable components, earliest expiry first
// @Summary Find available components
// @Description List ready-to-use, unexpired components of a type and blood group held by an organization, FEFO ordered
// @Tags components
// @Accept json
// @Produce json
// @Param component_type query string true "Component type"
// @Param blood_group query string true "Blood group"
// @Param organization_id query string false "Organization scope (defaults to caller's organization)"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Router /components/available [get]
func (h *ComponentHandler) GetAvailableComponents(ctx *gin.Context) {
	principal := currentPrincipal(ctx)

	orgID := principal.OrganizationID
	if raw := ctx.Query("organization_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid organization ID format",
				"message": err.Error(),
			})
			return
		}
		orgID = parsed
	}

	components, err := h.catalog.FindAvailable(ctx.Query("component_type"), ctx.Query("blood_group"), orgID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items": components,
			"count": len(components),
		},
	})
}

// GetComponent retrieves a single component by ID
// @Summary Get component by ID
// @Description Get detailed information about a specific component
// @Tags components
// @Accept json
// @Produce json
// @Param id path string true "Component ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Component not found"
// @Router /components/{id} [get]
func (h *ComponentHandler) GetComponent(ctx *gin.Context) {
	componentID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	db := database.DB

	var component inventory.Component
	if err := db.Preload("BloodUnit").First(&component, "id = ?", componentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":   "Component not found",
				"message": "Component with the given ID does not exist",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve component",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    component,
	})
}

// CreateComponent separates a component from a processed blood unit
// @Summary Create a component
// @Description Separate a component from a blood unit; blood group is inherited from the unit
// @Tags components
// @Accept json
// @Produce json
// @Param component body CreateComponentRequest true "Component information"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request data"
// @Failure 404 {object} map[string]string "Blood unit not found"
// @Router /components [post]
func (h *ComponentHandler) CreateComponent(ctx *gin.Context) {
	var req CreateComponentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}
	if !inventory.IsValidComponentType(req.Type) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": "unknown component type",
		})
		return
	}

	db := database.DB

	var unit inventory.BloodUnit
	if err := db.First(&unit, "id = ?", req.BloodUnitID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":   "Blood unit not found",
				"message": "The parent blood unit does not exist",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to validate blood unit",
			"message": err.Error(),
		})
		return
	}
	if unit.BloodGroup == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": "blood unit has no lab-confirmed blood group yet",
		})
		return
	}

	component := inventory.Component{
		BloodUnitID:     unit.ID,
		OrganizationID:  unit.OrganizationID,
		Type:            req.Type,
		BloodGroup:      *unit.BloodGroup,
		VolumeML:        req.VolumeML,
		ExpiryDate:      req.ExpiryDate,
		Status:          inventory.StatusProcessing,
		StorageLocation: req.StorageLocation,
	}

	if err := db.Create(&component).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create component",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Component created successfully",
		"data":    component,
	})
}

// TransitionComponentStatus applies the status compare-and-swap to a component
// @Summary Transition component status
// @Description Atomically move a component from expected_status to new_status; fails with a conflict on mismatch
// @Tags components
// @Accept json
// @Produce json
// @Param id path string true "Component ID" format(uuid)
// @Param transition body TransitionStatusRequest true "Expected and new status"
// @Security BearerAuth
// @Success 200 {object} handlers.SuccessResponse
// @Failure 400 {object} map[string]string "Invalid request data"
// @Failure 404 {object} map[string]string "Component not found"
// @Failure 409 {object} map[string]string "Status conflict"
// @Router /components/{id}/status [patch]
func (h *ComponentHandler) TransitionComponentStatus(ctx *gin.Context) {
	componentID, ok := parseIDParam(ctx)
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

	if err := h.catalog.TransitionStatus(componentID, req.ExpectedStatus, req.NewStatus); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Component status updated successfully",
	})
}
