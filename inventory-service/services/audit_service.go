package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database/models/audit"
)

// AuditService appends immutable audit events. Writes happen on the *gorm.DB
// handed in by the caller, so an event recorded during a fulfillment
// transaction commits and rolls back with the state change it describes.
type AuditService struct{}

// NewAuditService creates an audit service
func NewAuditService() *AuditService {
	return &AuditService{}
}

// Emit appends one audit event on the given connection or transaction.
func (s *AuditService) Emit(tx *gorm.DB, actor Principal, action string, subjectID uuid.UUID, oldState, newState, reason string) error {
	event := audit.AuditEvent{
		ActorID:        actor.UserID,
		OrganizationID: actor.OrganizationID,
		Action:         action,
		SubjectID:      subjectID,
		OldState:       oldState,
		NewState:       newState,
		Reason:         reason,
	}
	return tx.Create(&event).Error
}
