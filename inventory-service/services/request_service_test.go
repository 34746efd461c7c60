package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bloodlink-backend/shared/database/models"
	"bloodlink-backend/shared/database/models/audit"
	"bloodlink-backend/shared/database/models/inventory"
	"bloodlink-backend/shared/database/models/transfer"
)

func internalRequestInput(fulfillingOrgID uuid.UUID) CreateRequestInput {
	id := fulfillingOrgID
	return CreateRequestInput{
		Type:            transfer.RequestInternal,
		FulfillingOrgID: &id,
		ComponentType:   inventory.ComponentPRC,
		BloodGroup:      "O+",
		Quantity:        2,
		Urgency:         transfer.UrgencyUrgent,
	}
}

func TestCreateRequestValidation(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	p := seedPrincipal(hospital, models.RoleDispatcher)

	cases := []struct {
		name  string
		input CreateRequestInput
	}{
		{"unknown type", CreateRequestInput{Type: "sideways", ComponentType: inventory.ComponentPRC, BloodGroup: "O+", Quantity: 1}},
		{"unknown component type", CreateRequestInput{Type: transfer.RequestInternal, FulfillingOrgID: &bank.ID, ComponentType: "serum", BloodGroup: "O+", Quantity: 1}},
		{"unknown blood group", CreateRequestInput{Type: transfer.RequestInternal, FulfillingOrgID: &bank.ID, ComponentType: inventory.ComponentPRC, BloodGroup: "Z-", Quantity: 1}},
		{"zero quantity", CreateRequestInput{Type: transfer.RequestInternal, FulfillingOrgID: &bank.ID, ComponentType: inventory.ComponentPRC, BloodGroup: "O+", Quantity: 0}},
		{"unknown urgency", CreateRequestInput{Type: transfer.RequestInternal, FulfillingOrgID: &bank.ID, ComponentType: inventory.ComponentPRC, BloodGroup: "O+", Quantity: 1, Urgency: "whenever"}},
		{"internal without fulfilling org", CreateRequestInput{Type: transfer.RequestInternal, ComponentType: inventory.ComponentPRC, BloodGroup: "O+", Quantity: 1}},
		{"internal to itself", CreateRequestInput{Type: transfer.RequestInternal, FulfillingOrgID: &hospital.ID, ComponentType: inventory.ComponentPRC, BloodGroup: "O+", Quantity: 1}},
		{"external without name", CreateRequestInput{Type: transfer.RequestExternal, ComponentType: inventory.ComponentPRC, BloodGroup: "O+", Quantity: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := requests.Create(p, tc.input); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateRequestDefaultsUrgency(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)

	in := internalRequestInput(bank.ID)
	in.Urgency = ""
	request, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if request.Urgency != transfer.UrgencyRoutine {
		t.Errorf("expected routine urgency, got %s", request.Urgency)
	}
	if request.Status != transfer.StatusPending {
		t.Errorf("expected pending, got %s", request.Status)
	}
}

func TestCreateRequestRejectsInactiveFulfiller(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Closed Bank", models.OrgTypeStandalone, nil)
	if err := db.Model(&bank).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate bank: %v", err)
	}

	_, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), internalRequestInput(bank.ID))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for inactive org, got %v", err)
	}
}

func TestApproveOnlyByFulfillingOrg(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)

	request, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), internalRequestInput(bank.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := requests.Approve(seedPrincipal(hospital, models.RoleAdmin), request.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("requesting org approving: expected forbidden, got %v", err)
	}

	approved, err := requests.Approve(seedPrincipal(bank, models.RoleDispatcher), request.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != transfer.StatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}

	// A second approve loses the state swap.
	if _, err := requests.Approve(seedPrincipal(bank, models.RoleDispatcher), request.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("duplicate approve: expected state conflict, got %v", err)
	}
}

func TestRejectRequiresReasonAndIsTerminal(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	request, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), internalRequestInput(bank.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := requests.Reject(banker, request.ID, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty reason: expected validation error, got %v", err)
	}

	rejected, err := requests.Reject(banker, request.ID, "no O+ stock this week")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != transfer.StatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "no O+ stock this week" {
		t.Error("rejection reason not stored")
	}

	if _, err := requests.Approve(banker, request.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("approve after reject: expected state conflict, got %v", err)
	}
}

func TestFulfillReservesAtomically(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	first := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)
	second := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	in := internalRequestInput(bank.ID)
	in.DeliveryLocation = "Hospital ward 3"
	request, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := requests.Approve(banker, request.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	fulfilled, err := requests.Fulfill(banker, request.ID, FulfillInput{
		ComponentIDs:    []uuid.UUID{first.ID, second.ID},
		TransportMethod: "courier",
	})
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if fulfilled.Status != transfer.StatusFulfilledDispatched {
		t.Errorf("expected fulfilled_dispatched, got %s", fulfilled.Status)
	}
	if len(fulfilled.FulfilledComponents) != 2 {
		t.Errorf("expected 2 bound components, got %d", len(fulfilled.FulfilledComponents))
	}

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		if got := componentStatus(t, db, id); got != inventory.StatusReserved {
			t.Errorf("component %s: expected reserved, got %s", id, got)
		}
		var custodyCount int64
		if err := db.Model(&transfer.CustodyRecord{}).
			Where("subject_id = ? AND request_id = ? AND stage = ? AND confirmed = ?", id, request.ID, transfer.StageIssue, false).
			Count(&custodyCount).Error; err != nil {
			t.Fatalf("count custody records: %v", err)
		}
		if custodyCount != 1 {
			t.Errorf("component %s: expected 1 open issue record, got %d", id, custodyCount)
		}
	}
}

func TestFulfillRollsBackWhenOneComponentIsTaken(t *testing.T) {
	db := newTestDB(t)
	catalog, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	free := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)
	taken := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	// Somebody else reserves `taken` between selection and fulfillment.
	if err := catalog.TransitionStatus(taken.ID, inventory.StatusReadyToUse, inventory.StatusReserved); err != nil {
		t.Fatalf("pre-reserve: %v", err)
	}

	in := internalRequestInput(bank.ID)
	in.DeliveryLocation = "Hospital ward 3"
	request, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = requests.Fulfill(banker, request.ID, FulfillInput{
		ComponentIDs: []uuid.UUID{free.ID, taken.ID},
	})
	if !errors.Is(err, ErrAllocationConflict) {
		t.Fatalf("expected allocation conflict, got %v", err)
	}

	// All-or-nothing: the free component is untouched, the request is still
	// pending, and nothing was bound.
	if got := componentStatus(t, db, free.ID); got != inventory.StatusReadyToUse {
		t.Errorf("free component: expected ready_to_use after rollback, got %s", got)
	}
	current, err := requests.Get(request.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if current.Status != transfer.StatusPending {
		t.Errorf("request: expected pending after rollback, got %s", current.Status)
	}
	var boundCount int64
	if err := db.Model(&transfer.RequestComponent{}).Where("request_id = ?", request.ID).Count(&boundCount).Error; err != nil {
		t.Fatalf("count bindings: %v", err)
	}
	if boundCount != 0 {
		t.Errorf("expected no bindings after rollback, got %d", boundCount)
	}
	var custodyCount int64
	if err := db.Model(&transfer.CustodyRecord{}).Where("request_id = ?", request.ID).Count(&custodyCount).Error; err != nil {
		t.Fatalf("count custody records: %v", err)
	}
	if custodyCount != 0 {
		t.Errorf("expected no custody records after rollback, got %d", custodyCount)
	}
}

func TestFulfillSelectionValidation(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	component := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)
	wrongType := seedComponent(t, db, bank, inventory.ComponentFFP, "O+", inventory.StatusReadyToUse, expiry)
	otherOrg := seedOrg(t, db, "Elsewhere", models.OrgTypeStandalone, nil)
	foreign := seedComponent(t, db, otherOrg, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	in := internalRequestInput(bank.ID)
	in.DeliveryLocation = "Hospital ward 3"
	request, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		name string
		in   FulfillInput
		want error
	}{
		{"empty selection", FulfillInput{}, ErrValidation},
		{"over quantity", FulfillInput{ComponentIDs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}, ErrValidation},
		{"duplicate ids", FulfillInput{ComponentIDs: []uuid.UUID{component.ID, component.ID}}, ErrValidation},
		{"missing component", FulfillInput{ComponentIDs: []uuid.UUID{uuid.New()}}, ErrNotFound},
		{"type mismatch", FulfillInput{ComponentIDs: []uuid.UUID{wrongType.ID}}, ErrValidation},
		{"foreign holder", FulfillInput{ComponentIDs: []uuid.UUID{foreign.ID}}, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := requests.Fulfill(banker, request.ID, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// Validation failures must leave the request pending and stock untouched.
	current, err := requests.Get(request.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if current.Status != transfer.StatusPending {
		t.Errorf("expected pending, got %s", current.Status)
	}
	if got := componentStatus(t, db, component.ID); got != inventory.StatusReadyToUse {
		t.Errorf("expected ready_to_use, got %s", got)
	}
}

func TestFulfillRequiresDeliveryLocation(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	component := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	in := internalRequestInput(bank.ID)
	request, err := requests.Create(seedPrincipal(hospital, models.RoleDispatcher), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := requests.Fulfill(banker, request.ID, FulfillInput{ComponentIDs: []uuid.UUID{component.ID}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("no delivery location anywhere: expected validation error, got %v", err)
	}

	fulfilled, err := requests.Fulfill(banker, request.ID, FulfillInput{
		ComponentIDs:     []uuid.UUID{component.ID},
		DeliveryLocation: "Hospital ER",
	})
	if err != nil {
		t.Fatalf("Fulfill with explicit location: %v", err)
	}
	if fulfilled.DeliveryLocation != "Hospital ER" {
		t.Errorf("expected delivery location persisted, got %q", fulfilled.DeliveryLocation)
	}
}

func TestConfirmDeliveryMovesOwnership(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	requester := seedPrincipal(hospital, models.RoleDispatcher)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	component := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	in := internalRequestInput(bank.ID)
	in.Quantity = 1
	in.DeliveryLocation = "Hospital ward 3"
	request, err := requests.Create(requester, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := requests.Approve(banker, request.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := requests.Fulfill(banker, request.ID, FulfillInput{ComponentIDs: []uuid.UUID{component.ID}}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	// Only the requesting org may confirm.
	if _, err := requests.ConfirmDelivery(banker, request.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("fulfiller confirming: expected forbidden, got %v", err)
	}

	delivered, err := requests.ConfirmDelivery(requester, request.ID)
	if err != nil {
		t.Fatalf("ConfirmDelivery: %v", err)
	}
	if delivered.Status != transfer.StatusDelivered {
		t.Errorf("expected delivered, got %s", delivered.Status)
	}
	if delivered.ActualDeliveryAt == nil {
		t.Error("actual delivery timestamp must be set")
	}

	var current inventory.Component
	if err := db.First(&current, "id = ?", component.ID).Error; err != nil {
		t.Fatalf("reload component: %v", err)
	}
	if current.Status != inventory.StatusIssued {
		t.Errorf("expected issued, got %s", current.Status)
	}
	if current.OrganizationID != hospital.ID {
		t.Error("internal delivery must move ownership to the requesting organization")
	}
	if current.StorageLocation != "Hospital ward 3" {
		t.Errorf("expected storage at delivery location, got %q", current.StorageLocation)
	}

	var record transfer.CustodyRecord
	if err := db.Where("subject_id = ? AND request_id = ?", component.ID, request.ID).First(&record).Error; err != nil {
		t.Fatalf("load custody record: %v", err)
	}
	if !record.Confirmed {
		t.Error("issue custody record must be confirmed by delivery")
	}
	if record.ReceiverID == nil || *record.ReceiverID != requester.UserID {
		t.Error("receiver must be the confirming requester")
	}

	// A second confirm loses the state swap.
	if _, err := requests.ConfirmDelivery(requester, request.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("duplicate confirm: expected state conflict, got %v", err)
	}
}

func TestExternalRequestKeepsOwnership(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	staff := seedPrincipal(hospital, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	component := seedComponent(t, db, hospital, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	request, err := requests.Create(staff, CreateRequestInput{
		Type:            transfer.RequestExternal,
		ExternalName:    "Field Clinic 7",
		ExternalAddress: "Route 9 camp",
		ComponentType:   inventory.ComponentPRC,
		BloodGroup:      "O+",
		Quantity:        1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// External requests are worked by the requesting organization itself.
	if _, err := requests.Approve(staff, request.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := requests.Fulfill(staff, request.ID, FulfillInput{ComponentIDs: []uuid.UUID{component.ID}}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if _, err := requests.ConfirmDelivery(staff, request.ID); err != nil {
		t.Fatalf("ConfirmDelivery: %v", err)
	}

	var current inventory.Component
	if err := db.First(&current, "id = ?", component.ID).Error; err != nil {
		t.Fatalf("reload component: %v", err)
	}
	if current.Status != inventory.StatusIssued {
		t.Errorf("expected issued, got %s", current.Status)
	}
	if current.OrganizationID != hospital.ID {
		t.Error("external delivery must not move ownership to a managed catalog")
	}
	if current.StorageLocation != "Route 9 camp" {
		t.Errorf("expected external address as final location, got %q", current.StorageLocation)
	}
}

func TestCancelBeforeDispatch(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	requester := seedPrincipal(hospital, models.RoleDispatcher)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	request, err := requests.Create(requester, internalRequestInput(bank.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := requests.Cancel(banker, request.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("fulfiller cancelling: expected forbidden, got %v", err)
	}

	cancelled, err := requests.Cancel(requester, request.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != transfer.StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := requests.Approve(banker, request.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("approve after cancel: expected state conflict, got %v", err)
	}
}

func TestCancelAfterDispatchIsRefused(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	requester := seedPrincipal(hospital, models.RoleDispatcher)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	component := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	in := internalRequestInput(bank.ID)
	in.Quantity = 1
	in.DeliveryLocation = "Hospital ward 3"
	request, err := requests.Create(requester, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := requests.Fulfill(banker, request.ID, FulfillInput{ComponentIDs: []uuid.UUID{component.ID}}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	if _, err := requests.Cancel(requester, request.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("cancel after dispatch: expected state conflict, got %v", err)
	}
	if got := componentStatus(t, db, component.ID); got != inventory.StatusReserved {
		t.Errorf("refused cancel must not touch reservations, got %s", got)
	}
}

func TestLifecycleEmitsAuditTrail(t *testing.T) {
	db := newTestDB(t)
	_, _, requests := newEngine(t, db)
	hospital := seedOrg(t, db, "Hospital", models.OrgTypeStandalone, nil)
	bank := seedOrg(t, db, "Blood Bank", models.OrgTypeStandalone, nil)
	requester := seedPrincipal(hospital, models.RoleDispatcher)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	component := seedComponent(t, db, bank, inventory.ComponentPRC, "O+", inventory.StatusReadyToUse, expiry)

	in := internalRequestInput(bank.ID)
	in.Quantity = 1
	in.DeliveryLocation = "Hospital ward 3"
	request, err := requests.Create(requester, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := requests.Approve(banker, request.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := requests.Fulfill(banker, request.ID, FulfillInput{ComponentIDs: []uuid.UUID{component.ID}}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if _, err := requests.ConfirmDelivery(requester, request.ID); err != nil {
		t.Fatalf("ConfirmDelivery: %v", err)
	}

	wantActions := []string{"request.create", "request.approve", "component.reserve", "custody.open", "request.fulfill", "component.issue", "request.deliver"}
	for _, action := range wantActions {
		var count int64
		if err := db.Model(&audit.AuditEvent{}).Where("action = ?", action).Count(&count).Error; err != nil {
			t.Fatalf("count %s events: %v", action, err)
		}
		if count == 0 {
			t.Errorf("expected at least one %s audit event", action)
		}
	}
}

// TestTwoOrgTransferScenario walks the full happy path between a hospital
// branch and a blood bank branch, checking stock visibility on both sides.
func TestTwoOrgTransferScenario(t *testing.T) {
	db := newTestDB(t)
	catalog, _, requests := newEngine(t, db)

	network := seedOrg(t, db, "Meridian Network", models.OrgTypeHospitalNetwork, nil)
	hospital := seedOrg(t, db, "Meridian General", models.OrgTypeBranch, &network.ID)
	chain := seedOrg(t, db, "RedCell Chain", models.OrgTypeBloodBankChain, nil)
	bank := seedOrg(t, db, "RedCell Central", models.OrgTypeBranch, &chain.ID)

	requester := seedPrincipal(hospital, models.RoleDispatcher)
	banker := seedPrincipal(bank, models.RoleDispatcher)

	now := time.Now().UTC()
	soon := seedComponent(t, db, bank, inventory.ComponentPRC, "A+", inventory.StatusReadyToUse, now.Add(3*24*time.Hour))
	later := seedComponent(t, db, bank, inventory.ComponentPRC, "A+", inventory.StatusReadyToUse, now.Add(21*24*time.Hour))

	request, err := requests.Create(requester, CreateRequestInput{
		Type:             transfer.RequestInternal,
		FulfillingOrgID:  &bank.ID,
		ComponentType:    inventory.ComponentPRC,
		BloodGroup:       "A+",
		Quantity:         2,
		Urgency:          transfer.UrgencyEmergency,
		DeliveryLocation: "Meridian General ER",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := requests.Approve(banker, request.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// The dispatcher selects from a FEFO-ordered availability view.
	available, err := catalog.FindAvailable(inventory.ComponentPRC, "A+", bank.ID)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if len(available) != 2 || available[0].ID != soon.ID {
		t.Fatalf("expected FEFO view [%s %s], got %d rows", soon.ID, later.ID, len(available))
	}

	ids := []uuid.UUID{available[0].ID, available[1].ID}
	if _, err := requests.Fulfill(banker, request.ID, FulfillInput{ComponentIDs: ids, TransportMethod: "cold chain van"}); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	// Reserved stock vanishes from availability immediately.
	available, err = catalog.FindAvailable(inventory.ComponentPRC, "A+", bank.ID)
	if err != nil {
		t.Fatalf("FindAvailable after fulfill: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("expected empty availability after dispatch, got %d", len(available))
	}

	if _, err := requests.ConfirmDelivery(requester, request.ID); err != nil {
		t.Fatalf("ConfirmDelivery: %v", err)
	}

	// Ownership moved: both components now sit in the hospital's catalog.
	for _, id := range ids {
		var component inventory.Component
		if err := db.First(&component, "id = ?", id).Error; err != nil {
			t.Fatalf("reload %s: %v", id, err)
		}
		if component.OrganizationID != hospital.ID {
			t.Errorf("component %s: expected hospital ownership", id)
		}
		if component.Status != inventory.StatusIssued {
			t.Errorf("component %s: expected issued, got %s", id, component.Status)
		}
	}
}
