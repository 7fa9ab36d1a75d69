// Package dispatch holds the status vocabulary and transition guards of
// the order fulfillment lifecycle. The guards are pure so every rule
// can be checked without touching the database; the services layer
// consults them before writing any status change.
package dispatch

import (
	"strings"

	"github.com/example/gatewatch/internal/models"
)

// DispatchRecord statuses.
const (
	StatusPending                 = "pending"
	StatusCustomerDetailsRequired = "customer_details_required"
	StatusReadyForLoad            = "ready_for_load"
	StatusReadyForPickup          = "ready_for_pickup"
	StatusAssignedTransport       = "assigned_transport"
	StatusInTransit               = "in_transit"
	StatusEnteredForPickup        = "entered_for_pickup"
	StatusLoaded                  = "loaded"
	StatusCompleted               = "completed"
	StatusRejected                = "rejected"
)

// RequiresCustomerDetails reports whether the delivery type may not
// leave pending without customer contact and address.
func RequiresCustomerDetails(deliveryType string) bool {
	return deliveryType == models.DeliverySelf || deliveryType == models.DeliveryPartLoad
}

// CustomerDetailsComplete checks the invariant that gates processing
// for self-pickup and part-load orders.
func CustomerDetailsComplete(o *models.Order) bool {
	if !RequiresCustomerDetails(o.DeliveryType) {
		return true
	}
	return strings.TrimSpace(o.CustomerContact) != "" && strings.TrimSpace(o.CustomerAddress) != ""
}

// CanProcess reports whether processing may begin from the current
// status. Re-processing after the details gate cleared is allowed.
func CanProcess(status string) bool {
	return status == "" || status == StatusPending || status == StatusCustomerDetailsRequired
}

// NextAfterProcess returns the status an order enters once dispatch
// processing succeeds, branching by delivery type.
func NextAfterProcess(deliveryType string) string {
	switch deliveryType {
	case models.DeliverySelf:
		return StatusReadyForLoad
	case models.DeliveryPartLoad:
		return StatusReadyForPickup
	default:
		return StatusAssignedTransport
	}
}

// CanSendIn reports whether security may send the vehicle in. Valid
// only while the record waits at the gate.
func CanSendIn(status string) bool {
	return status == StatusReadyForLoad || status == StatusReadyForPickup
}

// CanMarkLoaded guards the physical-load confirmation. Self-pickup
// requires the vehicle to have entered first; part-load additionally
// permits loading straight from ready_for_pickup. The exact-status
// check is what makes two concurrent "mark loaded" clicks fail instead
// of double-applying.
func CanMarkLoaded(deliveryType, status string) bool {
	switch deliveryType {
	case models.DeliverySelf:
		return status == StatusEnteredForPickup
	case models.DeliveryPartLoad:
		return status == StatusReadyForPickup || status == StatusEnteredForPickup
	default:
		return false
	}
}

// CanRelease reports whether security may verify and release the goods.
func CanRelease(status string) bool {
	return status == StatusLoaded
}

// CanAdvanceTransit reports whether a company/free delivery may move
// from assigned transport to in transit.
func CanAdvanceTransit(status string) bool {
	return status == StatusAssignedTransport
}

// CanMarkDelivered reports whether a company/free delivery may complete.
func CanMarkDelivered(status string) bool {
	return status == StatusInTransit
}

// CanReject reports whether the record may still be rejected. Only
// pre-entry states are rejectable; once the vehicle is inside, the flow
// must run forward to release.
func CanReject(status string) bool {
	switch status {
	case StatusPending, StatusCustomerDetailsRequired, StatusReadyForLoad, StatusReadyForPickup:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusRejected
}

// NamesMatch compares the supplied identity against the recorded
// customer name, ignoring case and surrounding/duplicate whitespace.
func NamesMatch(supplied, recorded string) bool {
	return normalizeName(supplied) != "" && normalizeName(supplied) == normalizeName(recorded)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
