package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink-backend/inventory-service/services"
)

// StatsHandler serves the dashboard aggregates
type StatsHandler struct {
	stats *services.StatsService
}

// NewStatsHandler creates a stats handler
func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetRequestStats returns request counts by status and urgency
// @Summary Request statistics
// @Description Request counts grouped by status and urgency, short-TTL cached
// @Tags stats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string "Server error"
// @Router /stats/requests [get]
func (h *StatsHandler) GetRequestStats(ctx *gin.Context) {
	stats, err := h.stats.GetRequestStats()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute request statistics",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetInventoryStats returns ready-to-use stock counts
// @Summary Inventory statistics
// @Description Ready stock counts by component type and blood group plus near-expiry count, short-TTL cached
// @Tags stats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string "Server error"
// @Router /stats/inventory [get]
func (h *StatsHandler) GetInventoryStats(ctx *gin.Context) {
	stats, err := h.stats.GetInventoryStats()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute inventory statistics",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
