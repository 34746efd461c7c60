package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staff roles as carried in JWT claims. The engine only cares about the
// (organization, role) pair; whether the pair comes from a real login or an
// admin temporarily acting as a branch is the session layer's business.
const (
	RoleAdmin      = "admin"
	RoleInventory  = "inventory_clerk"
	RoleDispatcher = "dispatcher"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	Password       string    `json:"-" gorm:"not null"`
	FirstName      string    `json:"first_name" gorm:"size:100"`
	LastName       string    `json:"last_name" gorm:"size:100"`
	Role           string    `json:"role" gorm:"size:50;not null"`
	Status         string    `json:"status" gorm:"default:'ACTIVE'"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Organization Organization `json:"organization" gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
