package transfer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database/models"
)

// Request types.
const (
	RequestInternal = "internal"
	RequestExternal = "external"
)

// Request lifecycle states. rejected, cancelled and delivered are terminal.
const (
	StatusPending             = "pending"
	StatusApproved            = "approved"
	StatusRejected            = "rejected"
	StatusFulfilledDispatched = "fulfilled_dispatched"
	StatusDelivered           = "delivered"
	StatusCancelled           = "cancelled"
)

// Urgency levels.
const (
	UrgencyRoutine   = "routine"
	UrgencyUrgent    = "urgent"
	UrgencyEmergency = "emergency"
)

// ValidUrgencies enumerates the accepted urgency levels.
var ValidUrgencies = []string{UrgencyRoutine, UrgencyUrgent, UrgencyEmergency}

// IsValidUrgency reports whether u is a known urgency level.
func IsValidUrgency(u string) bool {
	for _, v := range ValidUrgencies {
		if v == u {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transition may leave s.
func IsTerminalStatus(s string) bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusDelivered
}

// InterOrgRequest is a request by one organization for blood components held
// by another. Internal requests resolve to a managed organization; external
// requests carry only a descriptive target party.
type InterOrgRequest struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Type            string     `json:"type" gorm:"size:20;not null"`
	RequestingOrgID uuid.UUID  `json:"requesting_org_id" gorm:"type:uuid;not null;index"`
	FulfillingOrgID *uuid.UUID `json:"fulfilling_org_id" gorm:"type:uuid;index"`

	// External target, descriptive only (never a managed organization).
	ExternalName    string `json:"external_name" gorm:"size:200"`
	ExternalAddress string `json:"external_address" gorm:"size:500"`
	ExternalContact string `json:"external_contact" gorm:"size:100"`

	ComponentType   string  `json:"component_type" gorm:"size:20;not null"`
	BloodGroup      string  `json:"blood_group" gorm:"size:5;not null"`
	Quantity        int     `json:"quantity" gorm:"not null"`
	Urgency         string  `json:"urgency" gorm:"size:20;not null;default:'routine'"`
	Status          string  `json:"status" gorm:"size:30;not null;default:'pending';index"`
	RejectionReason *string `json:"rejection_reason" gorm:"size:500"`

	// Transport metadata, supplied at fulfillment.
	TransportMethod    string     `json:"transport_method" gorm:"size:100"`
	DeliveryLocation   string     `json:"delivery_location" gorm:"size:200"`
	ExpectedDeliveryAt *time.Time `json:"expected_delivery_at"`
	ActualDeliveryAt   *time.Time `json:"actual_delivery_at"`
	TransportNotes     string     `json:"transport_notes" gorm:"size:1000"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	RequestingOrg       models.Organization  `json:"requesting_org" gorm:"foreignKey:RequestingOrgID"`
	FulfillingOrg       *models.Organization `json:"fulfilling_org,omitempty" gorm:"foreignKey:FulfillingOrgID"`
	FulfilledComponents []RequestComponent   `json:"fulfilled_components" gorm:"foreignKey:RequestID"`
}

// RequestComponent binds one reserved component to the request that holds it.
// Rows exist only for requests at fulfilled_dispatched or beyond, and are
// written atomically with the status flip.
type RequestComponent struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RequestID   uuid.UUID `json:"request_id" gorm:"type:uuid;not null;index"`
	ComponentID uuid.UUID `json:"component_id" gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (r *InterOrgRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns the primary key when the caller did not.
func (rc *RequestComponent) BeforeCreate(tx *gorm.DB) error {
	if rc.ID == uuid.Nil {
		rc.ID = uuid.New()
	}
	return nil
}
