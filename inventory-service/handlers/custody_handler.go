package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/inventory-service/services"
	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/database/models/transfer"
	"bloodlink-backend/shared/utils/attachment"
)

// OpenCustodyRequest represents request body for opening a handover record
type OpenCustodyRequest struct {
	SubjectID    uuid.UUID `json:"subject_id" binding:"required"`
	Stage        string    `json:"stage" binding:"required"`
	FromLocation string    `json:"from_location" binding:"required"`
	ToLocation   string    `json:"to_location" binding:"required"`
	Notes        string    `json:"notes"`
}

// CustodyHandler serves the chain-of-custody ledger
type CustodyHandler struct {
	custody *services.CustodyService
	storage *services.MinIOService
}

// NewCustodyHandler creates a custody handler. storage may be nil when the
// attachment store is unavailable; upload endpoints then return 503.
func NewCustodyHandler(custody *services.CustodyService, storage *services.MinIOService) *CustodyHandler {
	return &CustodyHandler{custody: custody, storage: storage}
}

// GetCustodyHistory retrieves the provenance trail of a component
// @Summary Get custody history
// @Description List every custody record for a component, oldest first
// @Tags custody
// @Accept json
// @Produce json
// @Param id path string true "Component ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid ID format"
// @Router /custody/subject/{id} [get]
func (h *CustodyHandler) GetCustodyHistory(ctx *gin.Context) {
	subjectID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	records, err := h.custody.History(subjectID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items": records,
			"count": len(records),
		},
	})
}

// OpenCustodyRecord opens an unconfirmed handover record
// @Summary Open a custody record
// @Description Open a handover record as the giving party; issue-stage records for requests are opened by fulfillment instead
// @Tags custody
// @Accept json
// @Produce json
// @Param record body OpenCustodyRequest true "Handover information"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request data"
// @Failure 404 {object} map[string]string "Component not found"
// @Router /custody [post]
func (h *CustodyHandler) OpenCustodyRecord(ctx *gin.Context) {
	var req OpenCustodyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	record, err := h.custody.Open(currentPrincipal(ctx), services.OpenInput{
		SubjectID:    req.SubjectID,
		Stage:        req.Stage,
		FromLocation: req.FromLocation,
		ToLocation:   req.ToLocation,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Custody record opened",
		"data":    record,
	})
}

// ConfirmCustodyRecord closes a custody record as the receiving party
// @Summary Confirm a custody record
// @Description Confirm receipt of a handover; a second confirm returns a conflict and changes nothing
// @Tags custody
// @Accept json
// @Produce json
// @Param id path string true "Custody record ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Custody record not found"
// @Failure 409 {object} map[string]string "Already confirmed"
// @Router /custody/{id}/confirm [post]
func (h *CustodyHandler) ConfirmCustodyRecord(ctx *gin.Context) {
	recordID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	record, err := h.custody.Confirm(currentPrincipal(ctx), recordID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Custody record confirmed",
		"data":    record,
	})
}

// UploadDeliveryNote attaches a proof-of-delivery file to a custody record
// @Summary Upload a delivery note
// @Description Attach a signed delivery note to a custody record; the file goes to object storage, the record keeps the key
// @Tags custody
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Custody record ID" format(uuid)
// @Param file formData file true "Delivery note file"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid file"
// @Failure 404 {object} map[string]string "Custody record not found"
// @Failure 503 {object} map[string]string "Attachment storage unavailable"
// @Router /custody/{id}/attachment [post]
func (h *CustodyHandler) UploadDeliveryNote(ctx *gin.Context) {
	recordID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	if h.storage == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Attachment storage unavailable",
			"message": "Object storage is not configured",
		})
		return
	}

	db := database.DB

	var record transfer.CustodyRecord
	if err := db.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":   "Custody record not found",
				"message": "Custody record with the given ID does not exist",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve custody record",
			"message": err.Error(),
		})
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "File is required",
			"message": err.Error(),
		})
		return
	}
	defer file.Close()

	if err := attachment.ValidateUploadedFile(header); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid file",
			"message": err.Error(),
		})
		return
	}

	objectKey, err := h.storage.UploadDeliveryNote(context.Background(), record.ID, header.Filename, header.Size, file, header.Header.Get("Content-Type"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to upload file",
			"message": err.Error(),
		})
		return
	}

	if err := db.Model(&record).Update("attachment_key", objectKey).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save attachment reference",
			"message": err.Error(),
		})
		return
	}
	record.AttachmentKey = objectKey

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Delivery note uploaded",
		"data":    record,
	})
}

// GetDeliveryNoteURL returns a temporary download link for an attachment
// @Summary Get delivery note download link
// @Description Get a presigned, time-limited download URL for the custody record's attachment
// @Tags custody
// @Accept json
// @Produce json
// @Param id path string true "Custody record ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "No attachment"
// @Failure 503 {object} map[string]string "Attachment storage unavailable"
// @Router /custody/{id}/attachment [get]
func (h *CustodyHandler) GetDeliveryNoteURL(ctx *gin.Context) {
	recordID, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	if h.storage == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Attachment storage unavailable",
			"message": "Object storage is not configured",
		})
		return
	}

	db := database.DB

	var record transfer.CustodyRecord
	if err := db.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":   "Custody record not found",
				"message": "Custody record with the given ID does not exist",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve custody record",
			"message": err.Error(),
		})
		return
	}

	if record.AttachmentKey == "" {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "No attachment",
			"message": "This custody record has no delivery note",
		})
		return
	}

	url, err := h.storage.PresignedURL(context.Background(), record.AttachmentKey, 15*time.Minute)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate download link",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"url":        url,
			"expires_in": int((15 * time.Minute).Seconds()),
		},
	})
}
