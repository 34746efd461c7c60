package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database/models/inventory"
	"bloodlink-backend/shared/database/models/transfer"
)

// CustodyService keeps the chain-of-custody ledger: one append-only record
// per physical handover, opened by the giving party and closed exactly once
// by the receiving party.
type CustodyService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewCustodyService creates a custody service on the given connection
func NewCustodyService(db *gorm.DB, audit *AuditService) *CustodyService {
	return &CustodyService{db: db, audit: audit}
}

// OpenInput describes a handover about to happen.
type OpenInput struct {
	SubjectID    uuid.UUID
	RequestID    *uuid.UUID
	Stage        string
	FromLocation string
	ToLocation   string
	Notes        string
}

// Open appends an unconfirmed custody record for the subject component.
// Exposed directly for storage moves inside one organization; issue-stage
// records are opened by the fulfillment transaction instead.
func (s *CustodyService) Open(p Principal, in OpenInput) (*transfer.CustodyRecord, error) {
	var record *transfer.CustodyRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = s.openTx(tx, p, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *CustodyService) openTx(tx *gorm.DB, p Principal, in OpenInput) (*transfer.CustodyRecord, error) {
	if !transfer.IsValidStage(in.Stage) {
		return nil, fmt.Errorf("%w: unknown custody stage %q", ErrValidation, in.Stage)
	}
	if in.FromLocation == "" || in.ToLocation == "" {
		return nil, fmt.Errorf("%w: from and to locations are required", ErrValidation)
	}

	var count int64
	if err := tx.Model(&inventory.Component{}).Where("id = ?", in.SubjectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: component %s", ErrNotFound, in.SubjectID)
	}

	record := transfer.CustodyRecord{
		SubjectID:    in.SubjectID,
		RequestID:    in.RequestID,
		Stage:        in.Stage,
		FromLocation: in.FromLocation,
		ToLocation:   in.ToLocation,
		GiverID:      p.UserID,
		Notes:        in.Notes,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}

	if err := s.audit.Emit(tx, p, "custody.open", in.SubjectID, "", in.Stage, in.Notes); err != nil {
		return nil, err
	}
	return &record, nil
}

// Confirm closes a custody record as the receiving party. A second confirm
// returns AlreadyConfirmed and mutates nothing.
func (s *CustodyService) Confirm(p Principal, recordID uuid.UUID) (*transfer.CustodyRecord, error) {
	var record transfer.CustodyRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := confirmCustodyRecord(tx, recordID, p.UserID, time.Now().UTC()); err != nil {
			return err
		}
		if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
			return err
		}
		return s.audit.Emit(tx, p, "custody.confirm", record.SubjectID, "open", "confirmed", "")
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// confirmCustodyRecord is the CAS close: confirmed flips false → true exactly
// once. A miss on a row that exists means a double confirm.
func confirmCustodyRecord(tx *gorm.DB, recordID, receiverID uuid.UUID, now time.Time) error {
	res := tx.Model(&transfer.CustodyRecord{}).
		Where("id = ? AND confirmed = ?", recordID, false).
		Updates(map[string]interface{}{
			"confirmed":    true,
			"receiver_id":  receiverID,
			"confirmed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&transfer.CustodyRecord{}).Where("id = ?", recordID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: custody record %s", ErrNotFound, recordID)
		}
		return fmt.Errorf("%w: custody record %s", ErrAlreadyConfirmed, recordID)
	}
	return nil
}

// History returns the subject's provenance trail, oldest first. Side-effect
// free and restartable.
func (s *CustodyService) History(subjectID uuid.UUID) ([]transfer.CustodyRecord, error) {
	var records []transfer.CustodyRecord
	err := s.db.
		Where("subject_id = ?", subjectID).
		Order("created_at asc, id asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// OpenIssueRecord finds the unconfirmed issue-stage record binding a subject
// to a request. Used by delivery confirmation.
func openIssueRecord(tx *gorm.DB, requestID, subjectID uuid.UUID) (*transfer.CustodyRecord, error) {
	var record transfer.CustodyRecord
	err := tx.Where("request_id = ? AND subject_id = ? AND stage = ? AND confirmed = ?",
		requestID, subjectID, transfer.StageIssue, false).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: no open issue custody record for component %s", ErrNotFound, subjectID)
		}
		return nil, err
	}
	return &record, nil
}
