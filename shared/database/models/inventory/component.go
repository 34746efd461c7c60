package inventory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database/models"
)

// Component types produced from a blood unit.
const (
	ComponentPRC             = "prc"
	ComponentFFP             = "ffp"
	ComponentPlatelets       = "platelets"
	ComponentCryoprecipitate = "cryoprecipitate"
	ComponentPlasma          = "plasma"
	ComponentWholeBlood      = "whole_blood"
)

// ValidComponentTypes enumerates every accepted component type.
var ValidComponentTypes = []string{
	ComponentPRC, ComponentFFP, ComponentPlatelets,
	ComponentCryoprecipitate, ComponentPlasma, ComponentWholeBlood,
}

// IsValidComponentType reports whether t is a known component type.
func IsValidComponentType(t string) bool {
	for _, v := range ValidComponentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Component is a transfusable product derived from exactly one BloodUnit.
// A unit may yield multiple components; the blood group is inherited from
// the parent unit at separation time.
type Component struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	BloodUnitID     uuid.UUID `json:"blood_unit_id" gorm:"type:uuid;not null;index"`
	OrganizationID  uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	Type            string    `json:"type" gorm:"size:20;not null;index"`
	BloodGroup      string    `json:"blood_group" gorm:"size:5;not null;index"`
	VolumeML        int       `json:"volume_ml" gorm:"not null"`
	ExpiryDate      time.Time `json:"expiry_date" gorm:"not null;index"`
	Status          string    `json:"status" gorm:"size:20;not null;default:'processing';index"`
	StorageLocation string    `json:"storage_location" gorm:"size:200"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	BloodUnit    BloodUnit           `json:"blood_unit" gorm:"foreignKey:BloodUnitID"`
	Organization models.Organization `json:"organization" gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *Component) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the component is past its expiry date at now.
func (c *Component) Expired(now time.Time) bool {
	return !c.ExpiryDate.After(now)
}
