package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/database/models"
	"bloodlink-backend/shared/database/models/inventory"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// newEngine wires the full service graph on one test database. The event hub
// is nil: publishing is a no-op in tests.
func newEngine(t *testing.T, db *gorm.DB) (*CatalogService, *CustodyService, *RequestService) {
	t.Helper()

	audit := NewAuditService()
	catalog := NewCatalogService(db)
	custody := NewCustodyService(db, audit)
	requests := NewRequestService(db, audit, custody, nil)
	return catalog, custody, requests
}

func seedOrg(t *testing.T, db *gorm.DB, name, orgType string, parentID *uuid.UUID) models.Organization {
	t.Helper()

	org := models.Organization{
		Name:     name,
		Type:     orgType,
		ParentID: parentID,
		IsActive: true,
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("seed organization %s: %v", name, err)
	}
	return org
}

func seedPrincipal(org models.Organization, role string) Principal {
	return Principal{
		UserID:         uuid.New(),
		OrganizationID: org.ID,
		Role:           role,
	}
}

// seedComponent creates a blood unit and one derived component in the given
// status, expiring at expiry.
func seedComponent(t *testing.T, db *gorm.DB, org models.Organization, componentType, bloodGroup, status string, expiry time.Time) inventory.Component {
	t.Helper()

	group := bloodGroup
	unit := inventory.BloodUnit{
		UnitCode:       "TEST-" + uuid.NewString()[:8],
		OrganizationID: org.ID,
		BloodGroup:     &group,
		VolumeML:       450,
		Status:         inventory.StatusProcessing,
		CollectedAt:    time.Now().UTC().Add(-24 * time.Hour),
	}
	if err := db.Create(&unit).Error; err != nil {
		t.Fatalf("seed blood unit: %v", err)
	}

	component := inventory.Component{
		BloodUnitID:     unit.ID,
		OrganizationID:  org.ID,
		Type:            componentType,
		BloodGroup:      bloodGroup,
		VolumeML:        280,
		ExpiryDate:      expiry,
		Status:          status,
		StorageLocation: org.Name + " fridge",
	}
	if err := db.Create(&component).Error; err != nil {
		t.Fatalf("seed component: %v", err)
	}
	return component
}

// componentStatus reloads a component and returns its current status.
func componentStatus(t *testing.T, db *gorm.DB, id uuid.UUID) string {
	t.Helper()

	var component inventory.Component
	if err := db.First(&component, "id = ?", id).Error; err != nil {
		t.Fatalf("reload component %s: %v", id, err)
	}
	return component.Status
}
