package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bloodlink-backend/shared/database/models"
	"bloodlink-backend/shared/database/models/inventory"
)

func TestFindAvailableOrdersByExpiry(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)

	now := time.Now().UTC()
	late := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, now.Add(30*24*time.Hour))
	early := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, now.Add(5*24*time.Hour))
	middle := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, now.Add(15*24*time.Hour))

	components, err := catalog.FindAvailable(inventory.ComponentPRC, "O+", org.ID)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if len(components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(components))
	}

	want := []uuid.UUID{early.ID, middle.ID, late.ID}
	for i, component := range components {
		if component.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], component.ID)
		}
	}
}

func TestFindAvailableExcludesExpiredAndOtherStates(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)

	now := time.Now().UTC()
	ready := seedComponent(t, db, org, inventory.ComponentFFP, "A-", inventory.StatusReadyToUse, now.Add(48*time.Hour))
	seedComponent(t, db, org, inventory.ComponentFFP, "A-", inventory.StatusReadyToUse, now.Add(-time.Hour))
	seedComponent(t, db, org, inventory.ComponentFFP, "A-", inventory.StatusReserved, now.Add(48*time.Hour))
	seedComponent(t, db, org, inventory.ComponentFFP, "A-", inventory.StatusQuarantine, now.Add(48*time.Hour))
	seedComponent(t, db, org, inventory.ComponentPRC, "A-", inventory.StatusReadyToUse, now.Add(48*time.Hour))

	components, err := catalog.FindAvailable(inventory.ComponentFFP, "A-", org.ID)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if len(components) != 1 {
		t.Fatalf("expected 1 component, got %d", len(components))
	}
	if components[0].ID != ready.ID {
		t.Errorf("expected %s, got %s", ready.ID, components[0].ID)
	}
}

func TestFindAvailableScopedToOrganization(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)
	holder := seedOrg(t, db, "Holder", models.OrgTypeStandalone, nil)
	other := seedOrg(t, db, "Other", models.OrgTypeStandalone, nil)

	expiry := time.Now().UTC().Add(72 * time.Hour)
	seedComponent(t, db, holder, inventory.ComponentPlatelets, "B+", inventory.StatusReadyToUse, expiry)

	components, err := catalog.FindAvailable(inventory.ComponentPlatelets, "B+", other.ID)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if len(components) != 0 {
		t.Fatalf("expected no components for non-holding org, got %d", len(components))
	}
}

func TestFindAvailableRejectsBadInputs(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)

	if _, err := catalog.FindAvailable("serum", "O+", uuid.New()); !errors.Is(err, ErrValidation) {
		t.Errorf("bad component type: expected validation error, got %v", err)
	}
	if _, err := catalog.FindAvailable(inventory.ComponentPRC, "Q+", uuid.New()); !errors.Is(err, ErrValidation) {
		t.Errorf("bad blood group: expected validation error, got %v", err)
	}
}

func TestTransitionStatusCAS(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)

	expiry := time.Now().UTC().Add(72 * time.Hour)
	component := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	if err := catalog.TransitionStatus(component.ID, inventory.StatusReadyToUse, inventory.StatusReserved); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if got := componentStatus(t, db, component.ID); got != inventory.StatusReserved {
		t.Fatalf("expected reserved, got %s", got)
	}

	// Second swap against the stale expectation loses.
	err := catalog.TransitionStatus(component.ID, inventory.StatusReadyToUse, inventory.StatusReserved)
	if !errors.Is(err, ErrAllocationConflict) {
		t.Fatalf("expected allocation conflict, got %v", err)
	}
	if !IsConflict(err) {
		t.Error("IsConflict should report true for allocation conflicts")
	}
	if got := componentStatus(t, db, component.ID); got != inventory.StatusReserved {
		t.Errorf("lost swap must not mutate, status is %s", got)
	}
}

func TestTransitionStatusMissingComponent(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)

	err := catalog.TransitionStatus(uuid.New(), inventory.StatusReadyToUse, inventory.StatusReserved)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransitionStatusRefusesReservingExpired(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)

	component := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, time.Now().UTC().Add(-time.Minute))

	err := catalog.TransitionStatus(component.ID, inventory.StatusReadyToUse, inventory.StatusReserved)
	if !errors.Is(err, ErrAllocationConflict) {
		t.Fatalf("expected allocation conflict for expired component, got %v", err)
	}
	if got := componentStatus(t, db, component.ID); got != inventory.StatusReadyToUse {
		t.Errorf("expired component must stay ready_to_use, got %s", got)
	}
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)

	err := catalog.TransitionStatus(uuid.New(), "ready_to_use", "vaporized")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionUnitStatus(t *testing.T) {
	db := newTestDB(t)
	catalog, _, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)

	group := "AB+"
	unit := inventory.BloodUnit{
		UnitCode:       "UNIT-CAS-1",
		OrganizationID: org.ID,
		BloodGroup:     &group,
		VolumeML:       450,
		Status:         inventory.StatusCollected,
		CollectedAt:    time.Now().UTC(),
	}
	if err := db.Create(&unit).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}

	if err := catalog.TransitionUnitStatus(unit.ID, inventory.StatusCollected, inventory.StatusLab); err != nil {
		t.Fatalf("collected → lab: %v", err)
	}

	err := catalog.TransitionUnitStatus(unit.ID, inventory.StatusCollected, inventory.StatusLab)
	if !errors.Is(err, ErrAllocationConflict) {
		t.Fatalf("stale expectation: expected allocation conflict, got %v", err)
	}
}
