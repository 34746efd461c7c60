package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization types. The hierarchy is a two-level tree: parent organizations
// (hospital networks and blood bank chains) own branches; standalone
// organizations have no parent and no branches.
const (
	OrgTypeHospitalNetwork = "hospital_network"
	OrgTypeBloodBankChain  = "blood_bank_chain"
	OrgTypeStandalone      = "standalone"
	OrgTypeBranch          = "branch"
)

type Organization struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string     `json:"name" gorm:"size:200;not null"`
	Type      string     `json:"type" gorm:"size:30;not null"`
	ParentID  *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	Address   string     `json:"address" gorm:"size:500"`
	Phone     string     `json:"phone" gorm:"size:20"`
	IsActive  bool       `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relations
	Parent *Organization `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsParentType reports whether the organization may own branches.
func (o *Organization) IsParentType() bool {
	return o.Type == OrgTypeHospitalNetwork || o.Type == OrgTypeBloodBankChain
}
