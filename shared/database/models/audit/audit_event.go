package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent is one immutable record of a state transition or custody event.
// The engine appends these inside the same transaction as the change they
// describe; downstream consumers (dashboards, the audit emitter) only read.
type AuditEvent struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ActorID        uuid.UUID `json:"actor_id" gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	Action         string    `json:"action" gorm:"type:varchar(100);not null;index"`
	SubjectID      uuid.UUID `json:"subject_id" gorm:"type:uuid;not null;index"`
	OldState       string    `json:"old_state" gorm:"type:varchar(50)"`
	NewState       string    `json:"new_state" gorm:"type:varchar(50)"`
	Reason         string    `json:"reason,omitempty" gorm:"type:varchar(500)"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName returns the table name for AuditEvent.
func (AuditEvent) TableName() string {
	return "audit_events"
}

// BeforeCreate assigns the primary key when the caller did not.
func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
