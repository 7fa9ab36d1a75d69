package models

import "time"

// GuestVisit statuses.
const (
	GuestScheduled  = "scheduled"
	GuestCheckedIn  = "checked_in"
	GuestCheckedOut = "checked_out"
	GuestCancelled  = "cancelled"
)

// GuestVisit is the lightweight visitor state machine operated from the
// same security desk as the gate passes.
type GuestVisit struct {
	BaseModel
	GuestName     string     `json:"guest_name"`
	Contact       string     `json:"contact"`
	Company       string     `json:"company"`
	MeetingPerson string     `json:"meeting_person"`
	Department    string     `json:"department"`
	VisitDate     time.Time  `json:"visit_date"`
	Purpose       string     `json:"purpose"`
	IDProof       string     `json:"id_proof"`
	Status        string     `gorm:"index" json:"status"`
	InTime        *time.Time `json:"in_time"`
	OutTime       *time.Time `json:"out_time"`
}

// CanCheckIn reports whether the visit may move to checked_in.
func (g *GuestVisit) CanCheckIn() bool {
	return g.Status == GuestScheduled
}

// CanCheckOut reports whether the visit may move to checked_out.
func (g *GuestVisit) CanCheckOut() bool {
	return g.Status == GuestCheckedIn
}

// CanCancel reports whether the visit may be cancelled. Cancel is only
// reachable from scheduled; a checked-in guest must be checked out.
func (g *GuestVisit) CanCancel() bool {
	return g.Status == GuestScheduled
}

// CanEdit reports whether the visit details may still be changed.
func (g *GuestVisit) CanEdit() bool {
	return g.Status == GuestScheduled || g.Status == GuestCheckedIn
}
