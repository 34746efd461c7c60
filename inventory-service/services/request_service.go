package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bloodlink-backend/shared/database/models"
	"bloodlink-backend/shared/database/models/inventory"
	"bloodlink-backend/shared/database/models/transfer"
)

// RequestService drives the inter-organization request state machine.
// Every transition is itself a compare-and-swap on the request row, so a
// duplicate or late call loses the swap and gets a StateConflict — there is
// no id-based deduplication. Fulfillment and delivery run as single
// transactions: a partial result is never observable.
type RequestService struct {
	db      *gorm.DB
	audit   *AuditService
	custody *CustodyService
	hub     *EventHub
}

// NewRequestService creates a request service. hub may be nil.
func NewRequestService(db *gorm.DB, audit *AuditService, custody *CustodyService, hub *EventHub) *RequestService {
	return &RequestService{db: db, audit: audit, custody: custody, hub: hub}
}

// CreateRequestInput is the payload for opening a request.
type CreateRequestInput struct {
	Type             string
	FulfillingOrgID  *uuid.UUID
	ExternalName     string
	ExternalAddress  string
	ExternalContact  string
	ComponentType    string
	BloodGroup       string
	Quantity         int
	Urgency          string
	DeliveryLocation string
}

// FulfillInput carries the manually curated component selection plus the
// transport metadata for dispatch.
type FulfillInput struct {
	ComponentIDs       []uuid.UUID
	TransportMethod    string
	DeliveryLocation   string
	ExpectedDeliveryAt *time.Time
	TransportNotes     string
}

// Create validates and opens a request in pending state. No inventory effect.
func (s *RequestService) Create(p Principal, in CreateRequestInput) (*transfer.InterOrgRequest, error) {
	if in.Type != transfer.RequestInternal && in.Type != transfer.RequestExternal {
		return nil, fmt.Errorf("%w: unknown request type %q", ErrValidation, in.Type)
	}
	if !inventory.IsValidComponentType(in.ComponentType) {
		return nil, fmt.Errorf("%w: unknown component type %q", ErrValidation, in.ComponentType)
	}
	if !inventory.IsValidBloodGroup(in.BloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", ErrValidation, in.BloodGroup)
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if in.Urgency == "" {
		in.Urgency = transfer.UrgencyRoutine
	}
	if !transfer.IsValidUrgency(in.Urgency) {
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrValidation, in.Urgency)
	}

	request := transfer.InterOrgRequest{
		Type:             in.Type,
		RequestingOrgID:  p.OrganizationID,
		ComponentType:    in.ComponentType,
		BloodGroup:       in.BloodGroup,
		Quantity:         in.Quantity,
		Urgency:          in.Urgency,
		Status:           transfer.StatusPending,
		DeliveryLocation: in.DeliveryLocation,
	}

	switch in.Type {
	case transfer.RequestInternal:
		if in.FulfillingOrgID == nil {
			return nil, fmt.Errorf("%w: internal requests need a fulfilling organization", ErrValidation)
		}
		if *in.FulfillingOrgID == p.OrganizationID {
			return nil, fmt.Errorf("%w: fulfilling organization must differ from requesting organization", ErrValidation)
		}
		fulfilling, err := s.resolveOrganization(*in.FulfillingOrgID)
		if err != nil {
			return nil, err
		}
		request.FulfillingOrgID = &fulfilling.ID

	case transfer.RequestExternal:
		if in.ExternalName == "" {
			return nil, fmt.Errorf("%w: external requests need a named external party", ErrValidation)
		}
		request.ExternalName = in.ExternalName
		request.ExternalAddress = in.ExternalAddress
		request.ExternalContact = in.ExternalContact
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		return s.audit.Emit(tx, p, "request.create", request.ID, "", transfer.StatusPending, "")
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(RequestEvent{Action: "request.create", RequestID: request.ID, NewState: transfer.StatusPending, At: time.Now().UTC()})
	return &request, nil
}

// resolveOrganization loads an active organization and checks the tree
// invariant for branches (depth fixed at 2, parent must be parent-type).
func (s *RequestService) resolveOrganization(id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.First(&org, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: organization %s", ErrNotFound, id)
		}
		return nil, err
	}
	if !org.IsActive {
		return nil, fmt.Errorf("%w: organization %s is inactive", ErrValidation, id)
	}
	if org.Type == models.OrgTypeBranch {
		if org.ParentID == nil {
			return nil, fmt.Errorf("%w: branch %s has no parent", ErrValidation, id)
		}
		var parent models.Organization
		if err := s.db.First(&parent, "id = ?", *org.ParentID).Error; err != nil {
			return nil, fmt.Errorf("%w: branch %s parent unresolvable", ErrValidation, id)
		}
		if !parent.IsParentType() {
			return nil, fmt.Errorf("%w: branch %s parent is not a parent organization", ErrValidation, id)
		}
	}
	return &org, nil
}

// Get loads one request with its bound components.
func (s *RequestService) Get(id uuid.UUID) (*transfer.InterOrgRequest, error) {
	var request transfer.InterOrgRequest
	err := s.db.Preload("FulfilledComponents").First(&request, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &request, nil
}

// fulfillingOrgID resolves the organization whose staff may approve, reject
// and fulfill. External requests are worked by the requesting (managed)
// organization itself — the external party never operates this system.
func fulfillingOrgID(r *transfer.InterOrgRequest) uuid.UUID {
	if r.Type == transfer.RequestInternal && r.FulfillingOrgID != nil {
		return *r.FulfillingOrgID
	}
	return r.RequestingOrgID
}

// Approve commits intent to fulfill; no inventory effect.
func (s *RequestService) Approve(p Principal, id uuid.UUID) (*transfer.InterOrgRequest, error) {
	request, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != fulfillingOrgID(request) {
		return nil, fmt.Errorf("%w: only the fulfilling organization may approve", ErrForbidden)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transitionRequest(tx, request, []string{transfer.StatusPending}, transfer.StatusApproved, nil); err != nil {
			return err
		}
		return s.audit.Emit(tx, p, "request.approve", id, transfer.StatusPending, transfer.StatusApproved, "")
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(RequestEvent{Action: "request.approve", RequestID: id, OldState: transfer.StatusPending, NewState: transfer.StatusApproved, At: time.Now().UTC()})
	return s.Get(id)
}

// Reject declines a pending request with a mandatory reason.
func (s *RequestService) Reject(p Principal, id uuid.UUID, reason string) (*transfer.InterOrgRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", ErrValidation)
	}
	request, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != fulfillingOrgID(request) {
		return nil, fmt.Errorf("%w: only the fulfilling organization may reject", ErrForbidden)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"rejection_reason": reason}
		if err := s.transitionRequest(tx, request, []string{transfer.StatusPending}, transfer.StatusRejected, updates); err != nil {
			return err
		}
		return s.audit.Emit(tx, p, "request.reject", id, transfer.StatusPending, transfer.StatusRejected, reason)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(RequestEvent{Action: "request.reject", RequestID: id, OldState: transfer.StatusPending, NewState: transfer.StatusRejected, At: time.Now().UTC()})
	return s.Get(id)
}

// Fulfill reserves the supplied components against the request and dispatches
// it, all inside one transaction. Every component CAS must succeed; the first
// miss aborts, the rollback restores every row touched so far, and the caller
// gets the conflict to re-select against a fresh FindAvailable.
func (s *RequestService) Fulfill(p Principal, id uuid.UUID, in FulfillInput) (*transfer.InterOrgRequest, error) {
	request, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	fulfillingOrg := fulfillingOrgID(request)
	if p.OrganizationID != fulfillingOrg {
		return nil, fmt.Errorf("%w: only the fulfilling organization may fulfill", ErrForbidden)
	}

	if len(in.ComponentIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one component is required", ErrValidation)
	}
	if len(in.ComponentIDs) > request.Quantity {
		return nil, fmt.Errorf("%w: %d components supplied for a quantity of %d", ErrValidation, len(in.ComponentIDs), request.Quantity)
	}
	seen := make(map[uuid.UUID]bool, len(in.ComponentIDs))
	for _, componentID := range in.ComponentIDs {
		if seen[componentID] {
			return nil, fmt.Errorf("%w: duplicate component %s", ErrValidation, componentID)
		}
		seen[componentID] = true
	}

	deliveryLocation := in.DeliveryLocation
	if deliveryLocation == "" {
		deliveryLocation = request.DeliveryLocation
	}
	if deliveryLocation == "" && request.Type == transfer.RequestExternal {
		deliveryLocation = request.ExternalAddress
	}
	if deliveryLocation == "" {
		return nil, fmt.Errorf("%w: a delivery location is required", ErrValidation)
	}

	fulfillingOrgRecord, err := s.resolveOrganization(fulfillingOrg)
	if err != nil {
		return nil, err
	}

	// Consistent ordering keeps concurrent fulfillments from deadlocking on
	// overlapping selections.
	componentIDs := make([]uuid.UUID, len(in.ComponentIDs))
	copy(componentIDs, in.ComponentIDs)
	sort.Slice(componentIDs, func(i, j int) bool {
		return componentIDs[i].String() < componentIDs[j].String()
	})

	now := time.Now().UTC()
	oldState := request.Status

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"transport_method":     in.TransportMethod,
			"delivery_location":    deliveryLocation,
			"expected_delivery_at": in.ExpectedDeliveryAt,
			"transport_notes":      in.TransportNotes,
		}
		if err := s.transitionRequest(tx, request,
			[]string{transfer.StatusPending, transfer.StatusApproved},
			transfer.StatusFulfilledDispatched, updates); err != nil {
			return err
		}

		var components []inventory.Component
		if err := tx.Where("id IN ?", componentIDs).Find(&components).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]inventory.Component, len(components))
		for _, component := range components {
			byID[component.ID] = component
		}

		for _, componentID := range componentIDs {
			component, ok := byID[componentID]
			if !ok {
				return fmt.Errorf("%w: component %s", ErrNotFound, componentID)
			}
			if component.OrganizationID != fulfillingOrg {
				return fmt.Errorf("%w: component %s is not held by the fulfilling organization", ErrValidation, componentID)
			}
			if component.Type != request.ComponentType || component.BloodGroup != request.BloodGroup {
				return fmt.Errorf("%w: component %s does not match the requested type/group", ErrValidation, componentID)
			}
		}

		for _, componentID := range componentIDs {
			if err := transitionComponentStatus(tx, componentID, inventory.StatusReadyToUse, inventory.StatusReserved, now); err != nil {
				return err
			}

			if err := tx.Create(&transfer.RequestComponent{RequestID: id, ComponentID: componentID}).Error; err != nil {
				return err
			}

			component := byID[componentID]
			fromLocation := component.StorageLocation
			if fromLocation == "" {
				fromLocation = fulfillingOrgRecord.Name
			}
			if _, err := s.custody.openTx(tx, p, OpenInput{
				SubjectID:    componentID,
				RequestID:    &id,
				Stage:        transfer.StageIssue,
				FromLocation: fromLocation,
				ToLocation:   deliveryLocation,
				Notes:        in.TransportNotes,
			}); err != nil {
				return err
			}

			if err := s.audit.Emit(tx, p, "component.reserve", componentID, inventory.StatusReadyToUse, inventory.StatusReserved, ""); err != nil {
				return err
			}
		}

		return s.audit.Emit(tx, p, "request.fulfill", id, oldState, transfer.StatusFulfilledDispatched, in.TransportNotes)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(RequestEvent{Action: "request.fulfill", RequestID: id, OldState: oldState, NewState: transfer.StatusFulfilledDispatched, At: now})
	return s.Get(id)
}

// ConfirmDelivery closes the transfer as the requesting organization: each
// bound component's custody record is confirmed, the component becomes
// issued, and for internal requests ownership moves to the requesting
// organization. The one step that moves ownership, not merely status.
func (s *RequestService) ConfirmDelivery(p Principal, id uuid.UUID) (*transfer.InterOrgRequest, error) {
	request, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != request.RequestingOrgID {
		return nil, fmt.Errorf("%w: only the requesting organization may confirm delivery", ErrForbidden)
	}

	now := time.Now().UTC()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"actual_delivery_at": now}
		if err := s.transitionRequest(tx, request,
			[]string{transfer.StatusFulfilledDispatched}, transfer.StatusDelivered, updates); err != nil {
			return err
		}

		var bound []transfer.RequestComponent
		if err := tx.Where("request_id = ?", id).Find(&bound).Error; err != nil {
			return err
		}
		if len(bound) == 0 {
			return fmt.Errorf("%w: dispatched request %s has no bound components", ErrStateConflict, id)
		}

		for _, binding := range bound {
			record, err := openIssueRecord(tx, id, binding.ComponentID)
			if err != nil {
				return err
			}
			if err := confirmCustodyRecord(tx, record.ID, p.UserID, now); err != nil {
				return err
			}

			if err := transitionComponentStatus(tx, binding.ComponentID, inventory.StatusReserved, inventory.StatusIssued, now); err != nil {
				return err
			}

			componentUpdates := map[string]interface{}{
				"storage_location": request.DeliveryLocation,
				"updated_at":       now,
			}
			if request.Type == transfer.RequestInternal {
				// Ownership transfer: the component now lives in the
				// requesting organization's catalog.
				componentUpdates["organization_id"] = request.RequestingOrgID
			} else if request.ExternalAddress != "" {
				componentUpdates["storage_location"] = request.ExternalAddress
			}
			if err := tx.Model(&inventory.Component{}).Where("id = ?", binding.ComponentID).
				Updates(componentUpdates).Error; err != nil {
				return err
			}

			if err := s.audit.Emit(tx, p, "component.issue", binding.ComponentID, inventory.StatusReserved, inventory.StatusIssued, ""); err != nil {
				return err
			}
		}

		return s.audit.Emit(tx, p, "request.deliver", id, transfer.StatusFulfilledDispatched, transfer.StatusDelivered, "")
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(RequestEvent{Action: "request.deliver", RequestID: id, OldState: transfer.StatusFulfilledDispatched, NewState: transfer.StatusDelivered, At: now})
	return s.Get(id)
}

// Cancel withdraws a request before dispatch. Any component that was
// tentatively reserved against it is reverted to ready_to_use.
func (s *RequestService) Cancel(p Principal, id uuid.UUID) (*transfer.InterOrgRequest, error) {
	request, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != request.RequestingOrgID {
		return nil, fmt.Errorf("%w: only the requesting organization may cancel", ErrForbidden)
	}

	now := time.Now().UTC()
	oldState := request.Status

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transitionRequest(tx, request,
			[]string{transfer.StatusPending, transfer.StatusApproved}, transfer.StatusCancelled, nil); err != nil {
			return err
		}

		// Defensive: a request in pending/approved should hold nothing, but
		// if anything was tentatively flagged, release it.
		var bound []transfer.RequestComponent
		if err := tx.Where("request_id = ?", id).Find(&bound).Error; err != nil {
			return err
		}
		for _, binding := range bound {
			res := tx.Model(&inventory.Component{}).
				Where("id = ? AND status = ?", binding.ComponentID, inventory.StatusReserved).
				Updates(map[string]interface{}{"status": inventory.StatusReadyToUse, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
		}
		if len(bound) > 0 {
			if err := tx.Where("request_id = ?", id).Delete(&transfer.RequestComponent{}).Error; err != nil {
				return err
			}
		}

		return s.audit.Emit(tx, p, "request.cancel", id, oldState, transfer.StatusCancelled, "")
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(RequestEvent{Action: "request.cancel", RequestID: id, OldState: oldState, NewState: transfer.StatusCancelled, At: now})
	return s.Get(id)
}

// transitionRequest is the state-machine CAS: the row moves to next only if
// its current status is one of from. A miss is reported as StateConflict
// carrying the actual current status.
func (s *RequestService) transitionRequest(tx *gorm.DB, request *transfer.InterOrgRequest, from []string, next string, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": time.Now().UTC(),
	}
	for key, value := range extra {
		updates[key] = value
	}

	res := tx.Model(&transfer.InterOrgRequest{}).
		Where("id = ? AND status IN ?", request.ID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current transfer.InterOrgRequest
		if err := tx.First(&current, "id = ?", request.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: request %s", ErrNotFound, request.ID)
			}
			return err
		}
		return fmt.Errorf("%w: request is %s, cannot move to %s", ErrStateConflict, current.Status, next)
	}
	request.Status = next
	return nil
}
