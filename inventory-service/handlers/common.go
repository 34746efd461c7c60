package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bloodlink-backend/inventory-service/services"
	"bloodlink-backend/shared/utils/query"
)

// PaginationResponse re-exports the shared pagination envelope for swagger.
type PaginationResponse = query.PaginationResponse

// SuccessResponse is the minimal success envelope.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// currentPrincipal builds the engine principal from the values the auth
// middleware set on the context.
func currentPrincipal(ctx *gin.Context) services.Principal {
	principal := services.Principal{}
	if v, ok := ctx.Get("userID"); ok {
		if id, ok := v.(uuid.UUID); ok {
			principal.UserID = id
		}
	}
	if v, ok := ctx.Get("organizationID"); ok {
		if id, ok := v.(uuid.UUID); ok {
			principal.OrganizationID = id
		}
	}
	if v, ok := ctx.Get("role"); ok {
		if role, ok := v.(string); ok {
			principal.Role = role
		}
	}
	return principal
}

// respondServiceError maps engine errors onto HTTP statuses. Allocation and
// state conflicts surface as 409 with the engine's message untouched, so the
// caller can decide whether to re-select and retry.
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{
			"error":   "Not permitted",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrAllocationConflict):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":   "Allocation conflict",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrAlreadyConfirmed):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":   "Already confirmed",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrStateConflict):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":   "State conflict",
			"message": err.Error(),
		})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"message": err.Error(),
		})
	}
}

// parseIDParam parses the :id path parameter as a UUID.
func parseIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid ID format",
			"message": err.Error(),
		})
		return uuid.Nil, false
	}
	return id, true
}
