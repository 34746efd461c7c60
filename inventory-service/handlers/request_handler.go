package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bloodlink-backend/inventory-service/services"
	"bloodlink-backend/shared/config"
	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/database/models/transfer"
	"bloodlink-backend/shared/utils/query"
)

// CreateRequestBody represents request body for opening an inter-org request
type CreateRequestBody struct {
	Type             string     `json:"type" binding:"required"`
	FulfillingOrgID  *uuid.UUID `json:"fulfilling_org_id"`
	ExternalName     string     `json:"external_name"`
	ExternalAddress  string     `json:"external_address"`
	ExternalContact  string     `json:"external_contact"`
	ComponentType    string     `json:"component_type" binding:"required"`
	BloodGroup       string     `json:"blood_group" binding:"required"`
	Quantity         int        `json:"quantity" binding:"required"`
	Urgency          string     `json:"urgency"`
	DeliveryLocation string     `json:"delivery_location"`
}

// RejectRequestBody carries the mandatory rejection reason
type RejectRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

// FulfillRequestBody carries the curated component selection and transport
// metadata
type FulfillRequestBody struct {
	ComponentIDs       []uuid.UUID `json:"component_ids" binding:"required"`
	TransportMethod    string      `json:"transport_method"`
	DeliveryLocation   string      `json:"delivery_location"`
	ExpectedDeliveryAt *time.Time  `json:"expected_delivery_at"`
	TransportNotes     string      `json:"transport_notes"`
}

// RequestHandler serves the inter-organization request lifecycle
type RequestHandler struct {
	requests *services.RequestService
}

// NewRequestHandler creates a request handler
func NewRequestHandler(requests *services.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// GetRequests retrieves requests with pagination and filtering
// @Summary List inter-organization requests
// @Description List requests with pagination and filtering; filters[stale]=true restricts to dispatched requests past the configured confirmation window
// @Tags requests
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param filters[status] query string false "Filter by status"
// @Param filters[urgency] query string false "Filter by urgency"
// @Param filters[type] query string false "Filter by request type"
// @Param filters[requesting_org_id] query string false "Filter by requesting organization"
// @Param filters[fulfilling_org_id] query string false "Filter by fulfilling organization"
// @Param filters[stale] query bool false "Only stale dispatched requests"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /requests [get]
func (h *RequestHandler) GetRequests(ctx *gin.Context) {
	db := database.DB

	params := query.ParseQueryParams(ctx)

	allowedFilters := map[string]string{
		"status":            "status",
		"urgency":           "urgency",
		"type":              "type",
		"requesting_org_id": "requesting_org_id",
		"fulfilling_org_id": "fulfilling_org_id",
	}
	allowedSortFields := map[string]string{
		"status":     "status",
		"urgency":    "urgency",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}

	dbQuery := db.Model(&transfer.InterOrgRequest{})
	dbQuery = query.ApplyFilters(dbQuery, params.Filters, allowedFilters)

	// Stale dispatches: fulfilled but unconfirmed past the policy window.
	// Surfaced for operators to chase; never auto-cancelled.
	if params.Filters["stale"] == "true" {
		threshold := time.Duration(config.GetConfig().GetStaleDispatchAfterHours()) * time.Hour
		dbQuery = dbQuery.Where("status = ? AND updated_at < ?",
			transfer.StatusFulfilledDispatched, time.Now().UTC().Add(-threshold))
	}

	dbQuery = query.ApplySort(dbQuery, params.Sort, allowedSortFields)

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to count requests",
			"message": err.Error(),
		})
		return
	}

	dbQuery = query.ApplyPagination(dbQuery, params.Page, params.Limit)

	var requests []transfer.InterOrgRequest
	if err := dbQuery.Preload("FulfilledComponents").Find(&requests).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve requests",
			"message": err.Error(),
		})
		return
	}

	pagination := query.BuildPaginationResponse(params.Page, params.Limit, total)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items":      requests,
			"pagination": pagination,
		},
	})
}

// GetRequest retrieves a single request by ID
// @Summary Get request by ID
// @Description Get a request with its bound components
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Request not found"
// @Router /requests/{id} [get]
func (h *RequestHandler) GetRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	request, err := h.requests.Get(requestID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    request,
	})
}

// CreateRequest opens a new inter-organization request
// @Summary Create a request
// @Description Open a request for blood components; internal requests need a distinct fulfilling organization, external ones a named party
// @Tags requests
// @Accept json
// @Produce json
// @Param request body CreateRequestBody true "Request information"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request data"
// @Router /requests [post]
func (h *RequestHandler) CreateRequest(ctx *gin.Context) {
	var body CreateRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	request, err := h.requests.Create(currentPrincipal(ctx), services.CreateRequestInput{
		Type:             body.Type,
		FulfillingOrgID:  body.FulfillingOrgID,
		ExternalName:     body.ExternalName,
		ExternalAddress:  body.ExternalAddress,
		ExternalContact:  body.ExternalContact,
		ComponentType:    body.ComponentType,
		BloodGroup:       body.BloodGroup,
		Quantity:         body.Quantity,
		Urgency:          body.Urgency,
		DeliveryLocation: body.DeliveryLocation,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Request created successfully",
		"data":    request,
	})
}

// ApproveRequest commits intent to fulfill a pending request
// @Summary Approve a request
// @Description Approve a pending request as the fulfilling organization; no inventory effect
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not the fulfilling organization"
// @Failure 409 {object} map[string]string "State conflict"
// @Router /requests/{id}/approve [post]
func (h *RequestHandler) ApproveRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	request, err := h.requests.Approve(currentPrincipal(ctx), requestID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Request approved successfully",
		"data":    request,
	})
}

// RejectRequest declines a pending request
// @Summary Reject a request
// @Description Reject a pending request with a mandatory reason; no inventory effect
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID" format(uuid)
// @Param rejection body RejectRequestBody true "Rejection reason"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Missing reason"
// @Failure 409 {object} map[string]string "State conflict"
// @Router /requests/{id}/reject [post]
func (h *RequestHandler) RejectRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var body RejectRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	request, err := h.requests.Reject(currentPrincipal(ctx), requestID, body.Reason)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Request rejected",
		"data":    request,
	})
}

// FulfillRequest reserves components and dispatches the request
// @Summary Fulfill a request
// @Description Atomically reserve the supplied components against the request and dispatch it; any component already taken fails the whole batch
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID" format(uuid)
// @Param fulfillment body FulfillRequestBody true "Component selection and transport metadata"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid selection"
// @Failure 409 {object} map[string]string "Allocation or state conflict"
// @Router /requests/{id}/fulfill [post]
func (h *RequestHandler) FulfillRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var body FulfillRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	request, err := h.requests.Fulfill(currentPrincipal(ctx), requestID, services.FulfillInput{
		ComponentIDs:       body.ComponentIDs,
		TransportMethod:    body.TransportMethod,
		DeliveryLocation:   body.DeliveryLocation,
		ExpectedDeliveryAt: body.ExpectedDeliveryAt,
		TransportNotes:     body.TransportNotes,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Request fulfilled and dispatched",
		"data":    request,
	})
}

// ConfirmDelivery closes the transfer as the requesting organization
// @Summary Confirm delivery
// @Description Confirm receipt of every dispatched component; closes custody records and moves ownership for internal requests
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not the requesting organization"
// @Failure 409 {object} map[string]string "State conflict"
// @Router /requests/{id}/confirm-delivery [post]
func (h *RequestHandler) ConfirmDelivery(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	request, err := h.requests.ConfirmDelivery(currentPrincipal(ctx), requestID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Delivery confirmed",
		"data":    request,
	})
}

// CancelRequest withdraws a request before dispatch
// @Summary Cancel a request
// @Description Cancel a pending or approved request; reverts any tentatively reserved components
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not the requesting organization"
// @Failure 409 {object} map[string]string "State conflict"
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) CancelRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	request, err := h.requests.Cancel(currentPrincipal(ctx), requestID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Request cancelled",
		"data":    request,
	})
}
