package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database/models/inventory"
)

// CatalogService is the inventory catalog: advisory availability queries plus
// the compare-and-swap status primitive. The CAS is the only mutation path
// for unit/component status and the only serialization point in the engine —
// no catalog-wide lock is ever taken.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a catalog service on the given connection
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// FindAvailable returns ready-to-use, unexpired components of the given type
// and blood group held by orgID, earliest expiry first (FEFO). The result is
// advisory: the authoritative check is the CAS at fulfillment time.
func (s *CatalogService) FindAvailable(componentType, bloodGroup string, orgID uuid.UUID) ([]inventory.Component, error) {
	if !inventory.IsValidComponentType(componentType) {
		return nil, fmt.Errorf("%w: unknown component type %q", ErrValidation, componentType)
	}
	if !inventory.IsValidBloodGroup(bloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", ErrValidation, bloodGroup)
	}

	var components []inventory.Component
	err := s.db.
		Where("type = ? AND blood_group = ? AND organization_id = ?", componentType, bloodGroup, orgID).
		Where("status = ? AND expiry_date > ?", inventory.StatusReadyToUse, time.Now().UTC()).
		Order("expiry_date asc, id asc").
		Find(&components).Error
	if err != nil {
		return nil, err
	}
	return components, nil
}

// TransitionStatus applies the component status CAS on the service's own
// connection. See transitionComponentStatus for the semantics.
func (s *CatalogService) TransitionStatus(id uuid.UUID, expected, next string) error {
	return transitionComponentStatus(s.db, id, expected, next, time.Now().UTC())
}

// TransitionUnitStatus is the same CAS primitive for whole blood units. The
// external lab workflow drives units through collected → lab → processing →
// ready_to_use with this call.
func (s *CatalogService) TransitionUnitStatus(id uuid.UUID, expected, next string) error {
	if !validStatus(expected) || !validStatus(next) {
		return fmt.Errorf("%w: unknown status", ErrValidation)
	}
	res := s.db.Model(&inventory.BloodUnit{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{"status": next, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classifyCASMiss(s.db, &inventory.BloodUnit{}, id, expected)
	}
	return nil
}

// transitionComponentStatus updates a component's status only if the current
// status matches expected. When the target status is reserved, a latent
// expiry also fails the swap, forcing the caller to re-select. Zero rows
// affected means either the component vanished (NotFound) or somebody else
// got there first (AllocationConflict).
func transitionComponentStatus(tx *gorm.DB, id uuid.UUID, expected, next string, now time.Time) error {
	if !validStatus(expected) || !validStatus(next) {
		return fmt.Errorf("%w: unknown status", ErrValidation)
	}

	q := tx.Model(&inventory.Component{}).
		Where("id = ? AND status = ?", id, expected)
	if next == inventory.StatusReserved {
		q = q.Where("expiry_date > ?", now)
	}

	res := q.Updates(map[string]interface{}{"status": next, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classifyCASMiss(tx, &inventory.Component{}, id, expected)
	}
	return nil
}

// classifyCASMiss distinguishes a missing row from a lost race after a CAS
// matched nothing.
func classifyCASMiss(tx *gorm.DB, model interface{}, id uuid.UUID, expected string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s is no longer %s", ErrAllocationConflict, id, expected)
}

func validStatus(s string) bool {
	for _, v := range inventory.ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsConflict reports whether err is an allocation conflict, for callers that
// want to re-query and retry with a fresh selection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAllocationConflict)
}
