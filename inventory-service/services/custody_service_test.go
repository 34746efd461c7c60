package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bloodlink-backend/shared/database/models"
	"bloodlink-backend/shared/database/models/inventory"
	"bloodlink-backend/shared/database/models/transfer"
)

func TestOpenAndConfirmCustodyRecord(t *testing.T) {
	db := newTestDB(t)
	_, custody, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)
	giver := seedPrincipal(org, models.RoleInventory)
	receiver := seedPrincipal(org, models.RoleInventory)

	component := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, time.Now().UTC().Add(72*time.Hour))

	record, err := custody.Open(giver, OpenInput{
		SubjectID:    component.ID,
		Stage:        transfer.StageStorageMove,
		FromLocation: "fridge 1",
		ToLocation:   "fridge 2",
		Notes:        "routine rotation",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if record.Confirmed {
		t.Fatal("fresh record must be unconfirmed")
	}
	if record.GiverID != giver.UserID {
		t.Errorf("giver: expected %s, got %s", giver.UserID, record.GiverID)
	}
	if record.ReceiverID != nil {
		t.Error("receiver must be unset until confirmation")
	}

	confirmed, err := custody.Confirm(receiver, record.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !confirmed.Confirmed {
		t.Fatal("record must be confirmed after Confirm")
	}
	if confirmed.ReceiverID == nil || *confirmed.ReceiverID != receiver.UserID {
		t.Error("receiver must be recorded on confirmation")
	}
	if confirmed.ConfirmedAt == nil {
		t.Error("confirmation timestamp must be set")
	}
}

func TestConfirmCustodyRecordIsSingleShot(t *testing.T) {
	db := newTestDB(t)
	_, custody, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)
	giver := seedPrincipal(org, models.RoleInventory)
	receiver := seedPrincipal(org, models.RoleInventory)

	component := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, time.Now().UTC().Add(72*time.Hour))

	record, err := custody.Open(giver, OpenInput{
		SubjectID:    component.ID,
		Stage:        transfer.StageStorageMove,
		FromLocation: "fridge 1",
		ToLocation:   "fridge 2",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first, err := custody.Confirm(receiver, record.ID)
	if err != nil {
		t.Fatalf("first Confirm: %v", err)
	}

	late := seedPrincipal(org, models.RoleDispatcher)
	if _, err := custody.Confirm(late, record.ID); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("second Confirm: expected already confirmed, got %v", err)
	}

	// The losing confirm must not overwrite the recorded receiver.
	var current transfer.CustodyRecord
	if err := db.First(&current, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if current.ReceiverID == nil || *current.ReceiverID != *first.ReceiverID {
		t.Error("receiver changed after a lost confirm")
	}
}

func TestConfirmMissingCustodyRecord(t *testing.T) {
	db := newTestDB(t)
	_, custody, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)

	if _, err := custody.Confirm(seedPrincipal(org, models.RoleInventory), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenCustodyRecordValidation(t *testing.T) {
	db := newTestDB(t)
	_, custody, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)
	p := seedPrincipal(org, models.RoleInventory)

	component := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, time.Now().UTC().Add(72*time.Hour))

	if _, err := custody.Open(p, OpenInput{SubjectID: component.ID, Stage: "teleport", FromLocation: "a", ToLocation: "b"}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown stage: expected validation error, got %v", err)
	}
	if _, err := custody.Open(p, OpenInput{SubjectID: component.ID, Stage: transfer.StageStorageMove, ToLocation: "b"}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing from location: expected validation error, got %v", err)
	}
	if _, err := custody.Open(p, OpenInput{SubjectID: uuid.New(), Stage: transfer.StageStorageMove, FromLocation: "a", ToLocation: "b"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing component: expected not found, got %v", err)
	}
}

func TestCustodyHistoryOrdering(t *testing.T) {
	db := newTestDB(t)
	_, custody, _ := newEngine(t, db)
	org := seedOrg(t, db, "Central Hospital", models.OrgTypeStandalone, nil)
	p := seedPrincipal(org, models.RoleInventory)

	component := seedComponent(t, db, org, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, time.Now().UTC().Add(72*time.Hour))

	moves := []struct{ from, to string }{
		{"fridge 1", "fridge 2"},
		{"fridge 2", "fridge 3"},
		{"fridge 3", "dispatch bay"},
	}
	for _, move := range moves {
		if _, err := custody.Open(p, OpenInput{
			SubjectID:    component.ID,
			Stage:        transfer.StageStorageMove,
			FromLocation: move.from,
			ToLocation:   move.to,
		}); err != nil {
			t.Fatalf("Open %s → %s: %v", move.from, move.to, err)
		}
	}

	history, err := custody.History(component.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != len(moves) {
		t.Fatalf("expected %d records, got %d", len(moves), len(history))
	}
	for i, record := range history {
		if record.FromLocation != moves[i].from || record.ToLocation != moves[i].to {
			t.Errorf("record %d: expected %s → %s, got %s → %s",
				i, moves[i].from, moves[i].to, record.FromLocation, record.ToLocation)
		}
	}
}
