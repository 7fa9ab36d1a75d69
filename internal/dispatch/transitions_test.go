package dispatch

import (
	"testing"

	"github.com/example/gatewatch/internal/models"
)

func TestCustomerDetailsComplete(t *testing.T) {
	tests := []struct {
		name         string
		deliveryType string
		contact      string
		address      string
		want         bool
	}{
		{"self with both", models.DeliverySelf, "998901112233", "Chilonzor 5", true},
		{"self missing contact", models.DeliverySelf, "", "Chilonzor 5", false},
		{"self missing address", models.DeliverySelf, "998901112233", "", false},
		{"self whitespace only", models.DeliverySelf, "  ", " ", false},
		{"part_load missing both", models.DeliveryPartLoad, "", "", false},
		{"company missing both", models.DeliveryCompany, "", "", true},
		{"free missing both", models.DeliveryFree, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &models.Order{
				DeliveryType:    tt.deliveryType,
				CustomerContact: tt.contact,
				CustomerAddress: tt.address,
			}
			if got := CustomerDetailsComplete(o); got != tt.want {
				t.Errorf("CustomerDetailsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextAfterProcess(t *testing.T) {
	tests := []struct {
		deliveryType string
		want         string
	}{
		{models.DeliverySelf, StatusReadyForLoad},
		{models.DeliveryPartLoad, StatusReadyForPickup},
		{models.DeliveryCompany, StatusAssignedTransport},
		{models.DeliveryFree, StatusAssignedTransport},
	}
	for _, tt := range tests {
		if got := NextAfterProcess(tt.deliveryType); got != tt.want {
			t.Errorf("NextAfterProcess(%q) = %q, want %q", tt.deliveryType, got, tt.want)
		}
	}
}

func TestCanMarkLoaded(t *testing.T) {
	tests := []struct {
		name         string
		deliveryType string
		status       string
		want         bool
	}{
		{"self after entry", models.DeliverySelf, StatusEnteredForPickup, true},
		{"self before entry", models.DeliverySelf, StatusReadyForLoad, false},
		{"self already loaded", models.DeliverySelf, StatusLoaded, false},
		{"self completed", models.DeliverySelf, StatusCompleted, false},
		{"part_load before entry", models.DeliveryPartLoad, StatusReadyForPickup, true},
		{"part_load after entry", models.DeliveryPartLoad, StatusEnteredForPickup, true},
		{"part_load already loaded", models.DeliveryPartLoad, StatusLoaded, false},
		{"company never", models.DeliveryCompany, StatusEnteredForPickup, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMarkLoaded(tt.deliveryType, tt.status); got != tt.want {
				t.Errorf("CanMarkLoaded(%q, %q) = %v, want %v", tt.deliveryType, tt.status, got, tt.want)
			}
		})
	}
}

// Marking loaded twice in a row must fail the second time: the first
// call moves the record to loaded, which no delivery type accepts.
func TestMarkLoadedTwiceFails(t *testing.T) {
	status := StatusEnteredForPickup
	if !CanMarkLoaded(models.DeliverySelf, status) {
		t.Fatal("first mark-loaded should be permitted")
	}
	status = StatusLoaded
	if CanMarkLoaded(models.DeliverySelf, status) {
		t.Error("second mark-loaded should be rejected")
	}
}

// The forward path never re-enters an earlier state: entered_for_pickup
// is reachable only from the ready states, loaded only from the states
// CanMarkLoaded admits, release only from loaded.
func TestLifecycleMonotonic(t *testing.T) {
	for _, status := range []string{StatusPending, StatusEnteredForPickup, StatusLoaded, StatusCompleted} {
		if CanSendIn(status) {
			t.Errorf("CanSendIn(%q) = true, want false", status)
		}
	}
	for _, status := range []string{StatusPending, StatusReadyForLoad, StatusEnteredForPickup, StatusCompleted} {
		if CanRelease(status) {
			t.Errorf("CanRelease(%q) = true, want false", status)
		}
	}
	if !CanSendIn(StatusReadyForLoad) || !CanSendIn(StatusReadyForPickup) {
		t.Error("both ready states should admit send-in")
	}
	if !CanRelease(StatusLoaded) {
		t.Error("loaded should admit release")
	}
}

func TestCanReject(t *testing.T) {
	rejectable := []string{StatusPending, StatusCustomerDetailsRequired, StatusReadyForLoad, StatusReadyForPickup}
	for _, s := range rejectable {
		if !CanReject(s) {
			t.Errorf("CanReject(%q) = false, want true", s)
		}
	}
	notRejectable := []string{StatusEnteredForPickup, StatusLoaded, StatusCompleted, StatusRejected, StatusInTransit}
	for _, s := range notRejectable {
		if CanReject(s) {
			t.Errorf("CanReject(%q) = true, want false", s)
		}
	}
}

// After rejection no guard admits a further transition.
func TestRejectedIsTerminal(t *testing.T) {
	s := StatusRejected
	if !IsTerminal(s) {
		t.Fatal("rejected should be terminal")
	}
	if CanProcess(s) || CanSendIn(s) || CanRelease(s) ||
		CanMarkLoaded(models.DeliverySelf, s) || CanMarkLoaded(models.DeliveryPartLoad, s) ||
		CanAdvanceTransit(s) || CanMarkDelivered(s) || CanReject(s) {
		t.Error("no transition should be permitted out of rejected")
	}
}

func TestTransitPath(t *testing.T) {
	if !CanAdvanceTransit(StatusAssignedTransport) {
		t.Error("assigned_transport should advance to in_transit")
	}
	if CanAdvanceTransit(StatusInTransit) {
		t.Error("in_transit cannot be advanced to itself")
	}
	if !CanMarkDelivered(StatusInTransit) {
		t.Error("in_transit should complete on delivery")
	}
	if CanMarkDelivered(StatusAssignedTransport) {
		t.Error("delivery cannot be confirmed before transit starts")
	}
}

func TestNamesMatch(t *testing.T) {
	tests := []struct {
		supplied string
		recorded string
		want     bool
	}{
		{"Aziz Karimov", "Aziz Karimov", true},
		{"aziz karimov", "Aziz Karimov", true},
		{"  Aziz   Karimov ", "Aziz Karimov", true},
		{"Aziz", "Aziz Karimov", false},
		{"", "Aziz Karimov", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := NamesMatch(tt.supplied, tt.recorded); got != tt.want {
			t.Errorf("NamesMatch(%q, %q) = %v, want %v", tt.supplied, tt.recorded, got, tt.want)
		}
	}
}
