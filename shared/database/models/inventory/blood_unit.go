package inventory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database/models"
)

// Unit/component lifecycle statuses. A unit or component is eligible for
// reservation only at StatusReadyToUse; the lab workflow that advances
// collected → lab → processing → ready_to_use lives outside this service.
const (
	StatusCollected  = "collected"
	StatusLab        = "lab"
	StatusProcessing = "processing"
	StatusQuarantine = "quarantine"
	StatusReadyToUse = "ready_to_use"
	StatusReserved   = "reserved"
	StatusIssued     = "issued"
)

// ValidStatuses enumerates every accepted unit/component status.
var ValidStatuses = []string{
	StatusCollected, StatusLab, StatusProcessing, StatusQuarantine,
	StatusReadyToUse, StatusReserved, StatusIssued,
}

// ValidBloodGroups enumerates the ABO/Rh groups accepted on units,
// components, and requests.
var ValidBloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// IsValidBloodGroup reports whether g is a known ABO/Rh group.
func IsValidBloodGroup(g string) bool {
	for _, v := range ValidBloodGroups {
		if v == g {
			return true
		}
	}
	return false
}

type BloodUnit struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UnitCode       string    `json:"unit_code" gorm:"size:50;uniqueIndex;not null"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	BloodGroup     *string   `json:"blood_group" gorm:"size:5"` // nil until lab-confirmed
	VolumeML       int       `json:"volume_ml" gorm:"not null"`
	Status         string    `json:"status" gorm:"size:20;not null;default:'collected';index"`
	Location       string    `json:"location" gorm:"size:200"`
	CollectedAt    time.Time `json:"collected_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Organization models.Organization `json:"organization" gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (b *BloodUnit) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
