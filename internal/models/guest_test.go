package models

import (
	"testing"
	"time"
)

func TestGuestVisitTransitions(t *testing.T) {
	tests := []struct {
		status      string
		canCheckIn  bool
		canCheckOut bool
		canCancel   bool
		canEdit     bool
	}{
		{GuestScheduled, true, false, true, true},
		{GuestCheckedIn, false, true, false, true},
		{GuestCheckedOut, false, false, false, false},
		{GuestCancelled, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			g := &GuestVisit{Status: tt.status}
			if got := g.CanCheckIn(); got != tt.canCheckIn {
				t.Errorf("CanCheckIn() = %v, want %v", got, tt.canCheckIn)
			}
			if got := g.CanCheckOut(); got != tt.canCheckOut {
				t.Errorf("CanCheckOut() = %v, want %v", got, tt.canCheckOut)
			}
			if got := g.CanCancel(); got != tt.canCancel {
				t.Errorf("CanCancel() = %v, want %v", got, tt.canCancel)
			}
			if got := g.CanEdit(); got != tt.canEdit {
				t.Errorf("CanEdit() = %v, want %v", got, tt.canEdit)
			}
		})
	}
}

func TestGoingOutLogIsOpen(t *testing.T) {
	open := &GoingOutLog{Status: GoingOutOut}
	if !open.IsOpen() {
		t.Error("log without coming_back_time should be open")
	}

	back := time.Now()
	closed := &GoingOutLog{Status: GoingOutReturned, ComingBackTime: &back}
	if closed.IsOpen() {
		t.Error("log with coming_back_time should be closed")
	}
}

func TestGatePassFlagged(t *testing.T) {
	tests := []struct {
		mismatches int
		want       bool
	}{
		{0, false},
		{2, false},
		{3, true},
		{5, true},
	}
	for _, tt := range tests {
		p := &GatePass{MismatchCount: tt.mismatches}
		if got := p.Flagged(); got != tt.want {
			t.Errorf("Flagged() with %d mismatches = %v, want %v", tt.mismatches, got, tt.want)
		}
	}
}
