package transfer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Custody stages.
const (
	StageIssue       = "issue"        // dispatch to a requesting/external party
	StageStorageMove = "storage_move" // relocation inside one organization
	StageReturn      = "return"       // unit handed back after a failed delivery
)

// ValidStages enumerates the accepted custody stages.
var ValidStages = []string{StageIssue, StageStorageMove, StageReturn}

// IsValidStage reports whether s is a known custody stage.
func IsValidStage(s string) bool {
	for _, v := range ValidStages {
		if v == s {
			return true
		}
	}
	return false
}

// CustodyRecord is one append-only entry in a component's provenance trail:
// a single physical handover between locations/custodians. Each record opens
// unconfirmed and is closed exactly once by the receiving party.
type CustodyRecord struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SubjectID     uuid.UUID  `json:"subject_id" gorm:"type:uuid;not null;index"`
	RequestID     *uuid.UUID `json:"request_id" gorm:"type:uuid;index"`
	Stage         string     `json:"stage" gorm:"size:20;not null"`
	FromLocation  string     `json:"from_location" gorm:"size:200;not null"`
	ToLocation    string     `json:"to_location" gorm:"size:200;not null"`
	GiverID       uuid.UUID  `json:"giver_id" gorm:"type:uuid;not null"`
	ReceiverID    *uuid.UUID `json:"receiver_id" gorm:"type:uuid"`
	Confirmed     bool       `json:"confirmed" gorm:"not null;default:false"`
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	Notes         string     `json:"notes" gorm:"size:1000"`
	AttachmentKey string     `json:"attachment_key" gorm:"size:500"` // proof-of-delivery object in MinIO
	CreatedAt     time.Time  `json:"created_at" gorm:"index"`
}

// TableName returns the table name for CustodyRecord.
func (CustodyRecord) TableName() string {
	return "custody_records"
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *CustodyRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
